// Package catalog is a client for the Gutendex book catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/jackzampolin/libra/internal/metrics"
)

const (
	DefaultBaseURL = "https://gutendex.com"
	DefaultTimeout = 15 * time.Second
	breakerName    = "catalog"
)

// Config holds configuration for the catalog client.
type Config struct {
	BaseURL string
	Timeout time.Duration // per request

	// Outbound pacing. Zero RequestsPerSecond disables the limiter.
	RequestsPerSecond float64
	Burst             int

	Breaker    BreakerConfig
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// BreakerConfig controls the circuit breaker around catalog requests.
type BreakerConfig struct {
	Enabled      bool
	MinRequests  uint32        // requests observed before the ratio is checked (default: 10)
	FailureRatio float64       // ratio that opens the circuit (default: 0.6)
	OpenTimeout  time.Duration // time spent open before probing (default: 30s)
	Interval     time.Duration // closed-state counting window (default: 1m)
}

// Client issues catalog searches and lookups. Every call is a fresh request.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
}

// NewClient creates a catalog client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    cfg.HTTPClient,
		limiter: limiter,
		logger:  cfg.Logger,
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, cfg.Logger)
	}
	return c
}

// Search runs a full-text/filtered search and returns one page of results,
// truncated to q.Limit when set.
func (c *Client) Search(ctx context.Context, q Query) (*SearchResult, error) {
	if !q.Sort.Valid() {
		return nil, fmt.Errorf("%w: unknown sort mode %q", ErrInvalidQuery, q.Sort)
	}
	if q.Page < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("%w: negative page or limit", ErrInvalidQuery)
	}

	u := c.baseURL + "/books"
	if enc := q.Values().Encode(); enc != "" {
		u += "?" + enc
	}

	var res SearchResult
	if err := c.get(ctx, "search", u, &res); err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(res.Books) > q.Limit {
		res.Books = res.Books[:q.Limit]
	}
	return &res, nil
}

// FetchByID returns a single book. Any non-success response matches ErrNotFound.
func (c *Client) FetchByID(ctx context.Context, id int) (*Book, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive, got %d", ErrInvalidQuery, id)
	}

	var book Book
	err := c.get(ctx, "fetch", fmt.Sprintf("%s/books/%d", c.baseURL, id), &book)
	if err != nil {
		var ne *NetworkError
		if errors.As(err, &ne) && ne.StatusCode != 0 {
			return nil, fmt.Errorf("%w: book %d: %w", ErrNotFound, id, err)
		}
		return nil, err
	}
	return &book, nil
}

func (c *Client) get(ctx context.Context, op, url string, target any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Op: op, URL: url, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.execute(func() error { return c.roundTrip(ctx, op, url, target) })
	metrics.CatalogRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.CatalogRequests.WithLabelValues(op, metrics.StatusOK).Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CatalogRequests.WithLabelValues(op, metrics.StatusRejected).Inc()
		c.logger.Warn("catalog request rejected by circuit breaker", "op", op)
		return &NetworkError{Op: op, URL: url, Err: err}
	default:
		metrics.CatalogRequests.WithLabelValues(op, metrics.StatusError).Inc()
	}

	c.logger.Debug("catalog request", "op", op, "url", url, "duration", time.Since(start), "error", err)
	return err
}

func (c *Client) execute(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &NetworkError{Op: op, URL: url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("catalog %s: failed to decode response: %w", op, err)
	}
	return nil
}

func newBreaker(cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[struct{}] {
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 10
	}
	if cfg.FailureRatio == 0 {
		cfg.FailureRatio = 0.6
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var ne *NetworkError
			if errors.As(err, &ne) {
				return !ne.serverSide()
			}
			return true
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// BreakerState reports the circuit breaker state ("closed", "open",
// "half-open"), or "disabled" when the client has no breaker.
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}
