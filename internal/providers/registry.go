package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry manages the configured completion providers.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]LLMClient
	logger     *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
	}
}

// SetLogger sets the logger used for registration events.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client under name, replacing any existing one.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
}

// UnregisterLLM removes a client.
func (r *Registry) UnregisterLLM(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.llmClients, name)
}

// GetLLM returns a registered LLM client.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// ListLLM returns the sorted names of registered clients.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type       string // "perplexity", "deepseek", "openai-compat"
	Model      string
	APIKey     string // Resolved API key; may be empty when keys come per request
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
	Enabled    bool
}

// NewRegistryFromConfig creates a registry with the enabled providers.
func NewRegistryFromConfig(cfg map[string]LLMProviderConfig, logger *slog.Logger) *Registry {
	r := NewRegistry()
	r.logger = logger
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured are unregistered; changed ones are
// rebuilt.
func (r *Registry) Reload(cfg map[string]LLMProviderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg {
		if !provCfg.Enabled {
			continue
		}
		want[name] = true

		existing, hasExisting := r.llmClients[name]
		if hasExisting && !needsLLMUpdate(existing, provCfg) {
			continue
		}
		client := createLLMClient(name, provCfg, r.logger)
		if client == nil {
			r.log("unknown LLM provider type", "name", name, "type", provCfg.Type)
			continue
		}
		r.llmClients[name] = client
		if hasExisting {
			r.log("updated LLM client", "name", name, "type", provCfg.Type)
		} else {
			r.log("registered LLM client", "name", name, "type", provCfg.Type)
		}
	}

	for name := range r.llmClients {
		if !want[name] {
			delete(r.llmClients, name)
			r.log("unregistered LLM client", "name", name)
		}
	}
}

func (r *Registry) log(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(name string, cfg LLMProviderConfig, logger *slog.Logger) LLMClient {
	switch cfg.Type {
	case PerplexityName:
		return NewPerplexityClient(PerplexityConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			Logger:       logger,
		})
	case DeepSeekName, "openai-compat":
		return NewOpenAICompatClient(OpenAICompatConfig{
			Name:         name,
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
		})
	default:
		return nil
	}
}

// needsLLMUpdate checks if an LLM client needs to be recreated.
func needsLLMUpdate(client LLMClient, cfg LLMProviderConfig) bool {
	switch c := client.(type) {
	case *PerplexityClient:
		return cfg.Type != PerplexityName ||
			c.apiKey != cfg.APIKey ||
			(cfg.Model != "" && c.defaultModel != cfg.Model) ||
			(cfg.BaseURL != "" && c.baseURL != cfg.BaseURL)
	case *OpenAICompatClient:
		return cfg.Type == PerplexityName ||
			c.apiKey != cfg.APIKey ||
			(cfg.Model != "" && c.defaultModel != cfg.Model) ||
			(cfg.BaseURL != "" && c.baseURL != cfg.BaseURL)
	default:
		return true
	}
}
