package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/lam4est/CinemaX/internal/booking"
	"github.com/lam4est/CinemaX/internal/checkout"
	"github.com/lam4est/CinemaX/internal/metrics"
	"github.com/lam4est/CinemaX/internal/mocks"
	"github.com/lam4est/CinemaX/internal/payment"
	"github.com/lam4est/CinemaX/internal/seatcache"
	"github.com/lam4est/CinemaX/internal/validator"
	"github.com/prometheus/client_golang/prometheus"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApplication builds an application whose checkouts talk to the given
// mock authority. Sessions live in memory.
func newTestApplication(authority *mocks.MockAuthority, opts ...func(*application)) *application {
	logger := discardLogger()

	app := &application{
		config:         config{Env: "test"},
		logger:         logger,
		validator:      validator.NewValidator(),
		sessionManager: scs.New(),
		registry:       prometheus.NewRegistry(),
	}

	app.config.Stripe.Currency = "usd"
	app.metrics = metrics.New(app.registry)

	app.checkouts = newCheckoutRegistry(func() *checkoutSession {
		cache := seatcache.New(authority, seatcache.NewMemoryStore(), logger)
		orchestrator := booking.NewOrchestrator(cache, authority, logger)
		gateways := payment.NewRegistry(
			payment.NewCardSettlement(authority, app.validator, logger, nil),
			payment.NewRedirectSettlement(authority, nil, logger, nil),
		)

		return &checkoutSession{
			controller: checkout.NewController(authority, cache, orchestrator, gateways, logger),
		}
	}, time.Hour, app.metrics, logger)

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// newBrowser returns a client that keeps the session cookie between requests.
func newBrowser(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}

	return &http.Client{Jar: jar}
}

func doRequest(t *testing.T, client *http.Client, srv *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	return resp.StatusCode, respBody
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", body, err)
	}

	return v
}
