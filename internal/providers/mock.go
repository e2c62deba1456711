package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ResponseText string
	Err          error // returned from every call when set
	FailAfter    int   // Fail after N requests (0 = never)

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	lastRequest  *ChatRequest
}

// NewMockClient creates a mock client returning text.
func NewMockClient(text string) *MockClient {
	return &MockClient{ResponseText: text}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat returns the scripted response.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	count := c.requestCount.Add(1)
	c.mu.Lock()
	c.lastRequest = req
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: req.RequestID,
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	if c.Err != nil {
		return failResult(result, "mock_failure", c.Err), c.Err
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		err := fmt.Errorf("mock client failed after %d requests", c.FailAfter)
		return failResult(result, "mock_failure", err), err
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return failResult(result, "context_cancelled", ctx.Err()), ctx.Err()
		}
	}

	result.Success = true
	result.Content = c.ResponseText
	result.CompletionTokens = len(c.ResponseText) / 4
	result.TotalTokens = result.CompletionTokens
	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// LastRequest returns the most recent request, or nil.
func (c *MockClient) LastRequest() *ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRequest
}

// Reset resets the request counter.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
}

// ErrMockFailure is a convenience error for configuring failing mocks.
var ErrMockFailure = errors.New("mock client configured to fail")

// Verify interface
var _ LLMClient = (*MockClient)(nil)
