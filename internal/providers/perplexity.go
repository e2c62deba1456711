package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	PerplexityName         = "perplexity"
	PerplexityBaseURL      = "https://api.perplexity.ai"
	PerplexityDefaultModel = "sonar"
)

// PerplexityConfig holds configuration for the Perplexity client.
type PerplexityConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int           // Max attempts (default: 3)
	RetryDelay   time.Duration // Base delay between retries (default: 1s)
	HTTPClient   *http.Client  // Optional (tests)
	Logger       *slog.Logger
}

// PerplexityClient implements LLMClient using the Perplexity chat completions API.
type PerplexityClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
	logger       *slog.Logger
}

// NewPerplexityClient creates a new Perplexity client.
func NewPerplexityClient(cfg PerplexityConfig) *PerplexityClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = PerplexityBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = PerplexityDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &PerplexityClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client:       cfg.HTTPClient,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		logger:       cfg.Logger,
	}
}

// Name returns the client identifier.
func (c *PerplexityClient) Name() string {
	return PerplexityName
}

// Chat sends a chat completion request, retrying transient failures.
func (c *PerplexityClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	result := &ChatResult{
		Provider:  PerplexityName,
		ModelUsed: model,
		RequestID: req.RequestID,
	}

	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if apiKey == "" {
		return failResult(result, "auth", ErrNoAPIKey), ErrNoAPIKey
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	jitter := c.retryDelay / 2
	if jitter <= 0 {
		jitter = time.Millisecond
	}

	body := chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	resp, err := retry.DoWithData(
		func() (*chatCompletionResponse, error) {
			result.Attempts++
			return c.doRequest(ctx, apiKey, &body)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(jitter),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying perplexity request", "attempt", n+1, "request_id", req.RequestID, "error", err)
		}),
	)
	result.ExecutionTime = time.Since(start)
	if err != nil {
		return failResult(result, errorType(err), err), err
	}

	result.Content = resp.Choices[0].Message.Content
	result.PromptTokens = resp.Usage.PromptTokens
	result.CompletionTokens = resp.Usage.CompletionTokens
	result.TotalTokens = resp.Usage.TotalTokens
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}
	result.Success = true
	return result, nil
}

func (c *PerplexityClient) doRequest(ctx context.Context, apiKey string, body *chatCompletionRequest) (*chatCompletionResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: PerplexityName, StatusCode: resp.StatusCode, Message: apiErrorMessage(respBody)}
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if out.Error != nil {
		return nil, &APIError{Provider: PerplexityName, StatusCode: resp.StatusCode, Message: out.Error.Message}
	}
	if len(out.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return &out, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

func errorType(err error) string {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return fmt.Sprintf("http_%d", apiErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "context_cancelled"
	default:
		return "request_failed"
	}
}

// apiErrorMessage pulls a message out of an error body, falling back to the
// truncated raw body.
func apiErrorMessage(body []byte) string {
	var wrapped struct {
		Error *apiErrorBody `json:"error"`
	}
	if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}
	const maxBody = 512
	if len(body) > maxBody {
		return string(body[:maxBody])
	}
	return string(body)
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *apiErrorBody `json:"error,omitempty"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}
