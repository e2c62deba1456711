// Package completion sends single free-text prompts to a chat completion
// provider and returns the raw text answer.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/libra/internal/credential"
	"github.com/jackzampolin/libra/internal/metrics"
	"github.com/jackzampolin/libra/internal/providers"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1500
	DefaultTimeout     = 60 * time.Second
)

// ErrMissingCredential is returned before any request when no API key is set.
var ErrMissingCredential = errors.New("completion: no API key configured")

// Resolver returns the provider to use for the next call.
type Resolver func() (providers.LLMClient, error)

// Fixed always resolves to client.
func Fixed(client providers.LLMClient) Resolver {
	return func() (providers.LLMClient, error) { return client, nil }
}

// FromRegistry resolves name on every call so config reloads take effect.
func FromRegistry(reg *providers.Registry, name string) Resolver {
	return func() (providers.LLMClient, error) { return reg.GetLLM(name) }
}

// Options controls sampling and timeouts.
type Options struct {
	Model       string // provider default when empty
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Client issues completion calls using a credential from a Store.
type Client struct {
	resolve Resolver
	creds   credential.Store
	opts    Options
	logger  *slog.Logger
}

// New creates a completion client.
func New(resolve Resolver, creds credential.Store, opts Options) *Client {
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{resolve: resolve, creds: creds, opts: opts, logger: opts.Logger}
}

// Available reports whether a credential is configured.
func (c *Client) Available() bool {
	return c.creds != nil && c.creds.Has()
}

// Complete sends prompt as a single user message and returns the trimmed
// answer. Provider failures are returned wrapped; *providers.APIError is
// reachable via errors.As.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Available() {
		return "", ErrMissingCredential
	}

	llm, err := c.resolve()
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}

	requestID := uuid.NewString()
	start := time.Now()
	res, err := llm.Chat(ctx, &providers.ChatRequest{
		Messages:    []providers.Message{{Role: "user", Content: prompt}},
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
		Timeout:     c.opts.Timeout,
		APIKey:      c.creds.Get(),
		RequestID:   requestID,
	})
	elapsed := time.Since(start)
	metrics.CompletionDuration.WithLabelValues(llm.Name()).Observe(elapsed.Seconds())

	if err != nil {
		metrics.CompletionRequests.WithLabelValues(llm.Name(), metrics.StatusError).Inc()
		c.logger.Warn("completion failed",
			"provider", llm.Name(),
			"request_id", requestID,
			"prompt_chars", len(prompt),
			"duration", elapsed,
			"error", err)
		return "", fmt.Errorf("completion via %s: %w", llm.Name(), err)
	}

	metrics.CompletionRequests.WithLabelValues(llm.Name(), metrics.StatusOK).Inc()
	metrics.CompletionTokens.WithLabelValues(llm.Name(), "prompt").Add(float64(res.PromptTokens))
	metrics.CompletionTokens.WithLabelValues(llm.Name(), "completion").Add(float64(res.CompletionTokens))
	c.logger.Debug("completion",
		"provider", llm.Name(),
		"model", res.ModelUsed,
		"request_id", requestID,
		"prompt_chars", len(prompt),
		"total_tokens", res.TotalTokens,
		"duration", elapsed)

	return strings.TrimSpace(res.Content), nil
}
