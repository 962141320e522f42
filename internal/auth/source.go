// Package auth supplies the bearer token attached to booking authority calls.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lam4est/CinemaX/internal/domain"
)

var errNoToken = errors.New("no token available yet")

// Refresher obtains a fresh token from wherever the session keeps it.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

type RefresherFunc func(ctx context.Context) (string, error)

func (f RefresherFunc) Refresh(ctx context.Context) (string, error) {
	return f(ctx)
}

type RetryPolicy struct {
	MaxAttempts uint
	Backoff     time.Duration
}

// DefaultRetryPolicy waits for the identity provider the same way the web
// client does: five tries, one second apart.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	Backoff:     time.Second,
}

// Source caches one session's token and refreshes it when it is missing,
// expired or invalidated after a 401.
type Source struct {
	refresher Refresher
	policy    RetryPolicy
	leeway    time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu    sync.Mutex
	token string
}

type Option func(*Source)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Source) {
		s.policy = p
	}
}

func WithLeeway(d time.Duration) Option {
	return func(s *Source) {
		s.leeway = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		s.now = now
	}
}

func NewSource(refresher Refresher, logger *slog.Logger, opts ...Option) *Source {
	s := &Source{
		refresher: refresher,
		policy:    DefaultRetryPolicy,
		leeway:    30 * time.Second,
		now:       time.Now,
		logger:    logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Token returns the cached token, refreshing it first if needed. It fails with
// ErrUnauthorized once the retry policy is exhausted.
func (s *Source) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && !s.expired(s.token) {
		return s.token, nil
	}

	attempts := s.policy.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	token, err := backoff.Retry(ctx, func() (string, error) {
		token, err := s.refresher.Refresh(ctx)
		if err != nil {
			return "", err
		}

		if token == "" {
			return "", errNoToken
		}

		if s.expired(token) {
			return "", fmt.Errorf("refreshed token already expired")
		}

		return token, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(s.policy.Backoff)),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Debug("token refresh failed, retrying", "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		s.token = ""
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	s.token = token

	return token, nil
}

// Peek returns a usable token without retrying. Public reads use it so
// anonymous visitors are not delayed by the retry policy.
func (s *Source) Peek(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && !s.expired(s.token) {
		return s.token
	}

	token, err := s.refresher.Refresh(ctx)
	if err != nil || token == "" || s.expired(token) {
		return ""
	}

	s.token = token

	return token
}

func (s *Source) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
}

// expired reads the exp claim without verifying the signature; verification
// is the authority's job. Opaque tokens never expire locally.
func (s *Source) expired(token string) bool {
	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return !s.now().Add(s.leeway).Before(exp.Time)
}
