package app

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "cinemax"

// config is read from CINEMAX_* environment variables (optionally from a .env
// file) and can be overridden with command line flags.
type config struct {
	Port int    `default:"3000"`
	Env  string `default:"dev"`

	Authority struct {
		BaseURL          string        `split_words:"true" default:"http://localhost:8000/api/v1"`
		Timeout          time.Duration `default:"15s"`
		BreakerThreshold int64         `split_words:"true" default:"5"`
	}

	Auth struct {
		MaxAttempts uint          `split_words:"true" default:"5"`
		Backoff     time.Duration `default:"1s"`
		Leeway      time.Duration `default:"30s"`
	}

	Redis struct {
		URL          string
		MaxOpenConns int           `split_words:"true" default:"25"`
		MaxIdleConns int           `split_words:"true" default:"10"`
		MaxIdleTime  time.Duration `split_words:"true" default:"2m"`
	}

	Session struct {
		IdleTimeout time.Duration `split_words:"true" default:"20m"`
		CookieName  string        `split_words:"true" default:"session_id"`
	}

	SeatCache struct {
		Backend string        `default:"memory"`
		TTL     time.Duration `default:"30m"`
	} `split_words:"true"`

	Stripe struct {
		SecretKey  string `split_words:"true"`
		SuccessUrl string `split_words:"true" default:"http://localhost:3000/checkout/payments/redirect/approve?orderId={CHECKOUT_SESSION_ID}"`
		CancelUrl  string `split_words:"true" default:"http://localhost:3000/checkout/payments/redirect/cancel"`
		Currency   string `default:"usd"`
	}

	OtelCollectorUrl string `split_words:"true"`
}

// loadConfig builds the configuration for the given command line arguments.
// It reports whether only the version was requested.
func loadConfig(args []string) (config, bool, error) {
	var cfg config

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, false, fmt.Errorf("loading .env: %w", err)
	}

	err = envconfig.Process(envPrefix, &cfg)
	if err != nil {
		return cfg, false, err
	}

	flags := flag.NewFlagSet("cinemax", flag.ContinueOnError)

	flags.IntVar(&cfg.Port, "port", cfg.Port, "server port")
	flags.StringVar(&cfg.Env, "env", cfg.Env, "Environment (dev|staging|prod)")

	flags.StringVar(&cfg.Authority.BaseURL, "authority-url", cfg.Authority.BaseURL, "Booking authority base URL")
	flags.DurationVar(&cfg.Authority.Timeout, "authority-timeout", cfg.Authority.Timeout, "Booking authority request timeout")
	flags.Int64Var(&cfg.Authority.BreakerThreshold, "authority-breaker-threshold", cfg.Authority.BreakerThreshold, "Consecutive authority failures before the breaker opens")

	flags.UintVar(&cfg.Auth.MaxAttempts, "auth-max-attempts", cfg.Auth.MaxAttempts, "Token refresh attempts")
	flags.DurationVar(&cfg.Auth.Backoff, "auth-backoff", cfg.Auth.Backoff, "Delay between token refresh attempts")
	flags.DurationVar(&cfg.Auth.Leeway, "auth-leeway", cfg.Auth.Leeway, "Treat tokens expiring within this window as expired")

	flags.StringVar(&cfg.Redis.URL, "redis-url", cfg.Redis.URL, "Redis address, sessions and seat maps stay in memory when empty")
	flags.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", cfg.Redis.MaxOpenConns, "Redis max open connections")
	flags.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", cfg.Redis.MaxIdleConns, "Redis max idle connections")
	flags.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", cfg.Redis.MaxIdleTime, "Redis max idle time for connections")

	flags.DurationVar(&cfg.Session.IdleTimeout, "session-idle-timeout", cfg.Session.IdleTimeout, "Idle time after which a checkout is dropped")
	flags.StringVar(&cfg.SeatCache.Backend, "seat-cache", cfg.SeatCache.Backend, "Seat map store (memory|redis)")

	flags.StringVar(&cfg.Stripe.SecretKey, "stripe-key", cfg.Stripe.SecretKey, "Stripe secret key")
	flags.StringVar(&cfg.Stripe.SuccessUrl, "stripe-success-url", cfg.Stripe.SuccessUrl, "Stripe payment success page")
	flags.StringVar(&cfg.Stripe.CancelUrl, "stripe-cancel-url", cfg.Stripe.CancelUrl, "Stripe payment cancel page")
	flags.StringVar(&cfg.Stripe.Currency, "currency", cfg.Stripe.Currency, "ISO currency of showtime prices")

	flags.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", cfg.OtelCollectorUrl, "OpenTelemetry collector gRPC endpoint")

	displayVersion := flags.Bool("version", false, "Display version and exit")

	err = flags.Parse(args)
	if err != nil {
		return cfg, false, err
	}

	switch cfg.SeatCache.Backend {
	case "memory":
	case "redis":
		if cfg.Redis.URL == "" {
			return cfg, false, errors.New("seat-cache=redis needs a redis-url")
		}
	default:
		return cfg, false, fmt.Errorf("unknown seat cache backend %q", cfg.SeatCache.Backend)
	}

	return cfg, *displayVersion, nil
}
