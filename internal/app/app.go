package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lam4est/CinemaX/internal/auth"
	"github.com/lam4est/CinemaX/internal/authority"
	"github.com/lam4est/CinemaX/internal/booking"
	"github.com/lam4est/CinemaX/internal/checkout"
	"github.com/lam4est/CinemaX/internal/metrics"
	"github.com/lam4est/CinemaX/internal/payment"
	"github.com/lam4est/CinemaX/internal/seatcache"
	appvalidator "github.com/lam4est/CinemaX/internal/validator"
	"github.com/lam4est/CinemaX/internal/vcs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var (
	version = vcs.Version()
)

const janitorInterval = time.Minute

type application struct {
	config         config
	logger         *slog.Logger
	redis          *redis.Client
	validator      *validator.Validate
	sessionManager *scs.SessionManager
	registry       *prometheus.Registry
	metrics        *metrics.Metrics

	authority *authority.Client
	minter    payment.OrderMinter
	seatStore func(namespace string) seatcache.Store
	checkouts *checkoutRegistry
}

func Run() error {
	cfg, displayVersion, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	if displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	app := &application{
		config:    cfg,
		logger:    slog.New(slog.NewTextHandler(os.Stdout, nil)),
		validator: appvalidator.NewValidator(),
	}

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.OtelCollectorUrl != "" {
		app.logger = slog.New(NewMultiHandler(
			slog.NewTextHandler(os.Stdout, nil),
			otelslog.NewHandler("cinemax-bff"),
		))
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry)

	app.authority, err = authority.New(authority.Config{
		BaseURL:          cfg.Authority.BaseURL,
		Timeout:          cfg.Authority.Timeout,
		BreakerThreshold: cfg.Authority.BreakerThreshold,
	}, app.logger, app.metrics)
	if err != nil {
		return err
	}

	app.minter = payment.UnavailableOrderMinter{}
	if cfg.Stripe.SecretKey != "" {
		stripe.Key = cfg.Stripe.SecretKey
		app.minter = payment.NewStripeOrderMinter(cfg.Stripe.Currency, cfg.Stripe.SuccessUrl, cfg.Stripe.CancelUrl)
	}

	if cfg.Redis.URL != "" {
		app.redis, err = newRedisClient(cfg)
		if err != nil {
			return err
		}
		defer app.redis.Close()
	}

	app.seatStore = func(string) seatcache.Store {
		return seatcache.NewMemoryStore()
	}

	if cfg.SeatCache.Backend == "redis" {
		app.seatStore = func(namespace string) seatcache.Store {
			return seatcache.NewRedisStore(app.redis, namespace, cfg.SeatCache.TTL)
		}
	}

	app.sessionManager = newSessionManager(app.redis, cfg)
	app.checkouts = newCheckoutRegistry(app.newCheckout, cfg.Session.IdleTimeout, app.metrics, app.logger)

	return app.run()
}

// newCheckout wires the per-session components around the shared authority
// client. The session's bearer token is read from the session on demand.
func (app *application) newCheckout() *checkoutSession {
	id := uuid.NewString()
	logger := app.logger.With("checkout_id", id)

	tokens := auth.NewSource(
		auth.RefresherFunc(func(ctx context.Context) (string, error) {
			return app.sessionManager.GetString(ctx, SessionKeyBearer.String()), nil
		}),
		logger,
		auth.WithRetryPolicy(auth.RetryPolicy{
			MaxAttempts: app.config.Auth.MaxAttempts,
			Backoff:     app.config.Auth.Backoff,
		}),
		auth.WithLeeway(app.config.Auth.Leeway),
	)

	client := app.authority.WithTokens(tokens)

	cache := seatcache.New(client, app.seatStore(id), logger, seatcache.WithMetrics(app.metrics))
	orchestrator := booking.NewOrchestrator(cache, client, logger, booking.WithMetrics(app.metrics))
	gateways := payment.NewRegistry(
		payment.NewCardSettlement(client, app.validator, logger, app.metrics),
		payment.NewRedirectSettlement(client, app.minter, logger, app.metrics),
	)

	return &checkoutSession{
		controller: checkout.NewController(client, cache, orchestrator, gateways, logger),
		tokens:     tokens,
	}
}

func newSessionManager(client *redis.Client, cfg config) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = memstore.New()
	if client != nil {
		sessionManager.Store = goredisstore.New(client)
	}

	sessionManager.IdleTimeout = cfg.Session.IdleTimeout
	sessionManager.Cookie.Name = cfg.Session.CookieName
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Env == "prod"

	return sessionManager
}

func newRedisClient(cfg config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	}

	if strings.Contains(cfg.Redis.URL, "://") {
		parsed, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}

		parsed.MaxIdleConns = opts.MaxIdleConns
		parsed.MaxActiveConns = opts.MaxActiveConns
		parsed.ConnMaxIdleTime = opts.ConnMaxIdleTime
		opts = parsed
	}

	rdb := redis.NewClient(opts)

	err := redisotel.InstrumentTracing(rdb)
	if err != nil {
		rdb.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func (app *application) run() error {
	srv := &http.Server{
		Addr:        fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:     app.routes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 5 * time.Second,
		// a payment call may take the full authority timeout
		WriteTimeout: app.config.Authority.Timeout + 10*time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	ctx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()

	go app.checkouts.runJanitor(ctx, janitorInterval)

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		shutdownError <- srv.Shutdown(ctx)
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "authority", app.config.Authority.BaseURL)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
