package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DeepSeekName         = "deepseek"
	DeepSeekBaseURL      = "https://api.deepseek.com/v1"
	DeepSeekDefaultModel = "deepseek-chat"
)

// OpenAICompatConfig configures a client for any OpenAI-compatible chat API.
type OpenAICompatConfig struct {
	Name         string // client identifier (default: "deepseek")
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int
	HTTPClient   *http.Client // Optional (tests)
}

// OpenAICompatClient implements LLMClient using the official OpenAI SDK
// pointed at a compatible base URL.
type OpenAICompatClient struct {
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
	client       openai.Client
}

// NewOpenAICompatClient creates a client. Defaults target DeepSeek.
func NewOpenAICompatClient(cfg OpenAICompatConfig) *OpenAICompatClient {
	if cfg.Name == "" {
		cfg.Name = DeepSeekName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DeepSeekBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DeepSeekDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return &OpenAICompatClient{
		name:         cfg.Name,
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client:       openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAICompatClient) Name() string {
	return c.name
}

// Chat sends a chat completion request.
func (c *OpenAICompatClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	result := &ChatResult{
		Provider:  c.name,
		ModelUsed: model,
		RequestID: req.RequestID,
		Attempts:  1,
	}

	var reqOpts []option.RequestOption
	switch {
	case req.APIKey != "":
		reqOpts = append(reqOpts, option.WithAPIKey(req.APIKey))
	case c.apiKey == "":
		return failResult(result, "auth", ErrNoAPIKey), ErrNoAPIKey
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params, reqOpts...)
	result.ExecutionTime = time.Since(start)
	if err != nil {
		err = c.mapError(err)
		return failResult(result, errorType(err), err), err
	}
	if len(resp.Choices) == 0 {
		return failResult(result, "empty_response", ErrEmptyResponse), ErrEmptyResponse
	}

	result.Content = resp.Choices[0].Message.Content
	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.CompletionTokens = int(resp.Usage.CompletionTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}
	result.Success = true
	return result, nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func (c *OpenAICompatClient) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &APIError{Provider: c.name, StatusCode: apiErr.StatusCode, Message: apiErr.Message}
	}
	return err
}
