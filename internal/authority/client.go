// Package authority is the HTTP client of the remote booking authority. It
// never retries: transient failures are reported to the caller, which leaves
// retrying to the user.
package authority

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/metrics"
	circuit "github.com/rubyist/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTimeout          = 15 * time.Second
	DefaultBreakerThreshold = 5

	maxBodyBytes = 1 << 20
)

var errUnavailable = errors.New("authority unavailable")

type Config struct {
	BaseURL          string
	Timeout          time.Duration
	BreakerThreshold int64
}

// TokenSource is the session's bearer token supplier.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Peek(ctx context.Context) string
	Invalidate()
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	breaker    *circuit.Breaker
	timeout    time.Duration
	tokens     TokenSource
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid authority base url: %w", err)
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid authority base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuit.NewConsecutiveBreaker(threshold),
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}, nil
}

// WithTokens returns a client bound to one session's tokens. The transport and
// the breaker are shared with the parent.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	bound := *c
	bound.tokens = tokens

	return &bound
}

type authMode int

const (
	authOptional authMode = iota
	authRequired
)

type call struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        any
	auth        authMode
	unreachable error
}

type reply struct {
	status int
	body   []byte
}

func (r *reply) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *reply) decode(dst any) error {
	if len(r.body) == 0 {
		return nil
	}

	return json.Unmarshal(r.body, dst)
}

type errorBody struct {
	Message          string   `json:"message"`
	Error            string   `json:"error"`
	Detail           string   `json:"detail"`
	Seats            []string `json:"seats"`
	UnavailableSeats []string `json:"unavailable_seats"`
}

func (r *reply) errorBody() errorBody {
	var body errorBody
	_ = json.Unmarshal(r.body, &body)

	return body
}

func (e errorBody) explained() bool {
	return e.Message != "" || e.Error != "" || e.Detail != ""
}

func (e errorBody) message(status int) string {
	for _, msg := range []string{e.Message, e.Error, e.Detail} {
		if msg != "" {
			return msg
		}
	}

	return fmt.Sprintf("HTTP error! status: %d", status)
}

// do performs one request. Transport failures, timeouts and 5xx replies count
// against the breaker. They come back wrapped in call.unreachable, except a 5xx
// whose body explains the failure: that reply is returned for the caller to
// surface. A 401 drops the session token.
func (c *Client) do(ctx context.Context, cl call) (*reply, error) {
	defer c.metrics.ObserveAuthority(cl.op, time.Now())

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(reqCtx, cl)
	if err != nil {
		return nil, err
	}

	var (
		rep       *reply
		abandoned error
	)

	err = c.breaker.Call(func() error {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				abandoned = ctx.Err()
				return nil
			}
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return err
		}

		rep = &reply{status: resp.StatusCode, body: body}

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("authority responded %d", resp.StatusCode)
		}

		return nil
	}, 0)

	if abandoned != nil {
		return nil, abandoned
	}

	if err != nil {
		c.logger.Warn("authority call failed", "operation", cl.op, "error", err)

		if rep == nil || !rep.errorBody().explained() {
			return nil, fmt.Errorf("%w: %w: %w", cl.unreachable, errUnavailable, err)
		}
	}

	if rep.status == http.StatusUnauthorized {
		if c.tokens != nil {
			c.tokens.Invalidate()
		}

		c.logger.Info("authority rejected token, invalidating", "operation", cl.op)

		return nil, domain.ErrUnauthorized
	}

	return rep, nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	target := c.baseURL.JoinPath(cl.path)
	if strings.HasSuffix(cl.path, "/") && !strings.HasSuffix(target.Path, "/") {
		target.Path += "/"
	}
	target.RawQuery = cl.query.Encode()

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", cl.op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", cl.op, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.token(ctx, cl.auth)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

func (c *Client) token(ctx context.Context, mode authMode) (string, error) {
	if c.tokens == nil {
		if mode == authRequired {
			return "", domain.ErrUnauthorized
		}
		return "", nil
	}

	if mode == authOptional {
		return c.tokens.Peek(ctx), nil
	}

	return c.tokens.Token(ctx)
}
