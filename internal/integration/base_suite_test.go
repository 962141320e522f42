package integration_test

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lam4est/CinemaX/internal/auth"
	"github.com/lam4est/CinemaX/internal/authority"
	"github.com/lam4est/CinemaX/internal/booking"
	"github.com/lam4est/CinemaX/internal/checkout"
	"github.com/lam4est/CinemaX/internal/payment"
	"github.com/lam4est/CinemaX/internal/seatcache"
	"github.com/lam4est/CinemaX/internal/validator"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

type BaseSuite struct {
	suite.Suite
	ctx            context.Context
	logger         *slog.Logger
	cacheContainer *RedisContainer
	redis          *redis.Client
	authority      *fakeAuthority
	server         *httptest.Server
}

func (s *BaseSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("integration tests need docker")
	}

	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	redisContainer, err := getCacheContainer(s.ctx)
	if err != nil {
		s.T().Skipf("failed to start container: %s", err)
	}

	s.cacheContainer = redisContainer
	s.redis = redis.NewClient(&redis.Options{
		Addr:            redisContainer.ConnectionString,
		ConnMaxIdleTime: 2 * time.Minute,
	})

	s.Require().NoError(s.redis.Ping(s.ctx).Err())
}

func (s *BaseSuite) TearDownSuite() {
	if s.redis != nil {
		s.redis.Close()
	}

	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

func (s *BaseSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushDB(s.ctx).Err())

	s.authority = newFakeAuthority()
	s.server = httptest.NewServer(s.authority.routes())
}

func (s *BaseSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
}

// newClient returns an authority client for one visitor. An empty token
// makes the visitor anonymous.
func (s *BaseSuite) newClient(token string) (*authority.Client, *auth.Source) {
	client, err := authority.New(authority.Config{
		BaseURL: s.server.URL + "/api/v1",
		Timeout: 5 * time.Second,
	}, s.logger, nil)
	s.Require().NoError(err)

	tokens := auth.NewSource(
		auth.RefresherFunc(func(context.Context) (string, error) {
			return token, nil
		}),
		s.logger,
		auth.WithRetryPolicy(auth.RetryPolicy{MaxAttempts: 2, Backoff: 10 * time.Millisecond}),
	)

	return client.WithTokens(tokens), tokens
}

// newController wires a checkout the way the server does, with its seat
// snapshots kept in redis under namespace.
func (s *BaseSuite) newController(namespace, token string) *checkout.Controller {
	client, _ := s.newClient(token)

	cache := seatcache.New(client, seatcache.NewRedisStore(s.redis, namespace, time.Minute), s.logger)
	orchestrator := booking.NewOrchestrator(cache, client, s.logger)
	gateways := payment.NewRegistry(
		payment.NewCardSettlement(client, validator.NewValidator(), s.logger, nil),
		payment.NewRedirectSettlement(client, payment.UnavailableOrderMinter{}, s.logger, nil),
	)

	return checkout.NewController(client, cache, orchestrator, gateways, s.logger)
}
