package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/lam4est/CinemaX/internal/checkout"
	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTokens struct {
	invalidated int
}

func (c *countingTokens) Invalidate() {
	c.invalidated++
}

func TestCheckoutRegistry(t *testing.T) {
	authority := new(mocks.MockAuthority)
	app := newTestApplication(authority)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	app.checkouts.now = func() time.Time { return now }
	app.checkouts.idleTimeout = 20 * time.Minute

	first := app.checkouts.get("session-1")
	assert.Same(t, first, app.checkouts.get("session-1"))

	now = now.Add(15 * time.Minute)
	app.checkouts.get("session-2")

	now = now.Add(10 * time.Minute)
	evicted := app.checkouts.evictIdle()

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, app.checkouts.count())
	assert.Equal(t, checkout.StageIdle, first.View(context.Background()).Stage)

	assert.NotSame(t, first, app.checkouts.get("session-1"))
}

func TestRunJanitorStopsWithContext(t *testing.T) {
	app := newTestApplication(new(mocks.MockAuthority))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		app.checkouts.runJanitor(ctx, time.Millisecond)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestCaptureBearer(t *testing.T) {
	app := newTestApplication(new(mocks.MockAuthority))
	app.sessionManager = scs.New()

	tokens := &countingTokens{}

	var seen string
	handler := app.sessionManager.LoadAndSave(app.ensureSession(app.captureBearer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := app.sessionManager.Token(r.Context())

			app.checkouts.mu.Lock()
			if _, ok := app.checkouts.sessions[token]; !ok {
				app.checkouts.sessions[token] = &checkoutSession{
					controller: checkout.NewController(nil, nil, nil, nil, discardLogger()),
					tokens:     tokens,
				}
			}
			app.checkouts.mu.Unlock()

			seen = app.sessionManager.GetString(r.Context(), SessionKeyBearer.String())
		}),
	)))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	r.Header.Set("Authorization", "Bearer first")
	handler.ServeHTTP(w, r)

	require.Equal(t, "first", seen)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	tests := []struct {
		name            string
		header          string
		wantToken       string
		wantInvalidated int
	}{
		{name: "same token", header: "Bearer first", wantToken: "first", wantInvalidated: 0},
		{name: "no header keeps stored token", header: "", wantToken: "first", wantInvalidated: 0},
		{name: "not a bearer token", header: "Basic Zm9vOmJhcg==", wantToken: "first", wantInvalidated: 0},
		{name: "new token", header: "Bearer second", wantToken: "second", wantInvalidated: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/checkout", nil)
			for _, c := range cookies {
				r.AddCookie(c)
			}
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantToken, seen)
			assert.Equal(t, tt.wantInvalidated, tokens.invalidated)
		})
	}
}

func TestCheckoutErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: domain.ErrSelectionLimitReached, want: http.StatusUnprocessableEntity},
		{err: domain.ErrSeatUnavailable, want: http.StatusUnprocessableEntity},
		{err: &domain.SeatConflictError{SeatIDs: []string{"A1"}, Err: domain.ErrSeatUnavailable}, want: http.StatusConflict},
		{err: &domain.SeatConflictError{Err: domain.ErrBookingConflict}, want: http.StatusConflict},
		{err: domain.ErrCheckoutAlreadyInProgress, want: http.StatusConflict},
		{err: domain.ErrSuperseded, want: http.StatusConflict},
		{err: &domain.PaymentRejectedError{Message: "Card declined"}, want: http.StatusPaymentRequired},
		{err: domain.ErrPaymentUnreachable, want: http.StatusServiceUnavailable},
		{err: domain.ErrOrderUnavailable, want: http.StatusServiceUnavailable},
		{err: domain.ErrUnauthorized, want: http.StatusUnauthorized},
		{err: domain.ErrShowtimeNotFound, want: http.StatusNotFound},
		{err: domain.ErrUnsupportedPaymentMethod, want: http.StatusBadRequest},
		{err: context.Canceled, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, checkoutErrorStatus(tt.err))
		})
	}
}
