package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lam4est/CinemaX/internal/checkout"
	"github.com/lam4est/CinemaX/internal/metrics"
)

type sessionKey string

const (
	SessionKeyGuest  = sessionKey("guest")
	SessionKeyBearer = sessionKey("bearer")
)

func (s sessionKey) String() string {
	return string(s)
}

type tokenInvalidator interface {
	Invalidate()
}

// checkoutSession is the in-memory part of a browser session.
type checkoutSession struct {
	controller *checkout.Controller
	tokens     tokenInvalidator
	lastSeen   time.Time
}

// checkoutRegistry maps scs session tokens to their checkout. Entries idle for
// longer than the session idle timeout are dropped by the janitor.
type checkoutRegistry struct {
	mu          sync.Mutex
	sessions    map[string]*checkoutSession
	newCheckout func() *checkoutSession
	idleTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

func newCheckoutRegistry(
	newCheckout func() *checkoutSession,
	idleTimeout time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger) *checkoutRegistry {

	return &checkoutRegistry{
		sessions:    make(map[string]*checkoutSession),
		newCheckout: newCheckout,
		idleTimeout: idleTimeout,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

func (reg *checkoutRegistry) get(token string) *checkout.Controller {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	s, ok := reg.sessions[token]
	if !ok {
		s = reg.newCheckout()
		reg.sessions[token] = s
		reg.metrics.SetActiveCheckouts(len(reg.sessions))
	}

	s.lastSeen = reg.now()

	return s.controller
}

// invalidateTokens drops the cached bearer token of a session, if it has a
// checkout yet.
func (reg *checkoutRegistry) invalidateTokens(token string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if s, ok := reg.sessions[token]; ok && s.tokens != nil {
		s.tokens.Invalidate()
	}
}

func (reg *checkoutRegistry) evictIdle() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	cutoff := reg.now().Add(-reg.idleTimeout)
	evicted := 0

	for token, s := range reg.sessions {
		if s.lastSeen.Before(cutoff) {
			s.controller.Leave()
			delete(reg.sessions, token)
			evicted++
		}
	}

	reg.metrics.SetActiveCheckouts(len(reg.sessions))

	return evicted
}

func (reg *checkoutRegistry) count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return len(reg.sessions)
}

func (reg *checkoutRegistry) runJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := reg.evictIdle(); n > 0 {
				reg.logger.Info("dropped idle checkouts", "count", n, "active", reg.count())
			}
		}
	}
}
