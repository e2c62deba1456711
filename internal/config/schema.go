package config

import (
	"fmt"
	"time"

	"github.com/jackzampolin/libra/internal/catalog"
	"github.com/jackzampolin/libra/internal/recommend"
)

// Config holds libra configuration.
// Stored at: ~/.libra/config.yaml
type Config struct {
	Catalog      CatalogCfg                `mapstructure:"catalog" yaml:"catalog"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Completion   CompletionCfg             `mapstructure:"completion" yaml:"completion"`
	Matcher      MatcherCfg                `mapstructure:"matcher" yaml:"matcher"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	Credential   CredentialCfg             `mapstructure:"credential" yaml:"credential"`
	Prompts      map[string]any            `mapstructure:"prompts" yaml:"prompts,omitempty"` // nested by key segment: recommend.preface
}

// CatalogCfg configures the remote book catalog.
type CatalogCfg struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`                         // per request
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"` // 0 disables the limiter
	Burst             int           `mapstructure:"burst" yaml:"burst"`
	Breaker           BreakerCfg    `mapstructure:"breaker" yaml:"breaker"`
}

// BreakerCfg configures the catalog circuit breaker.
type BreakerCfg struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	MinRequests  uint32        `mapstructure:"min_requests" yaml:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio" yaml:"failure_ratio"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`   // time spent open
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"` // closed-state window
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type       string        `mapstructure:"type" yaml:"type"`         // "perplexity", "deepseek", "openai-compat"
	Model      string        `mapstructure:"model" yaml:"model"`       // Model name
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`   // API key (supports ${ENV_VAR} syntax)
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"` // Provider default when empty
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg selects which provider serves each use.
type DefaultsCfg struct {
	RecommendProvider string `mapstructure:"recommend_provider" yaml:"recommend_provider"`
	PrefaceProvider   string `mapstructure:"preface_provider" yaml:"preface_provider"`
}

// CompletionCfg controls sampling for completion calls.
type CompletionCfg struct {
	Temperature      float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PrefaceMaxTokens int           `mapstructure:"preface_max_tokens" yaml:"preface_max_tokens"`
	PrefaceTimeout   time.Duration `mapstructure:"preface_timeout" yaml:"preface_timeout"`
}

// MatcherCfg tunes recommendation resolution.
type MatcherCfg struct {
	BatchSize     int           `mapstructure:"batch_size" yaml:"batch_size"`
	MaxCandidates int           `mapstructure:"max_candidates" yaml:"max_candidates"`
	Sufficient    int           `mapstructure:"sufficient" yaml:"sufficient"`
	MinAcceptable int           `mapstructure:"min_acceptable" yaml:"min_acceptable"`
	BatchPause    time.Duration `mapstructure:"batch_pause" yaml:"batch_pause"`
	CallTimeout   time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
	CategoryLimit int           `mapstructure:"category_limit" yaml:"category_limit"`
	Categories    []string      `mapstructure:"categories" yaml:"categories"`
}

// ServerCfg configures the local HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// CredentialCfg locates the persisted API key.
type CredentialCfg struct {
	File string `mapstructure:"file" yaml:"file"` // default: ~/.libra/credentials.yaml
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	m := recommend.DefaultMatchOptions()
	return &Config{
		Catalog: CatalogCfg{
			BaseURL:           catalog.DefaultBaseURL,
			Timeout:           catalog.DefaultTimeout,
			RequestsPerSecond: 5,
			Burst:             5,
			Breaker: BreakerCfg{
				Enabled:      true,
				MinRequests:  10,
				FailureRatio: 0.6,
				Timeout:      30 * time.Second,
				Interval:     time.Minute,
			},
		},
		LLMProviders: map[string]LLMProviderCfg{
			"perplexity": {
				Type:       "perplexity",
				Model:      "sonar",
				APIKey:     "${PERPLEXITY_API_KEY}",
				MaxRetries: 3,
				Timeout:    60 * time.Second,
				Enabled:    true,
			},
			"deepseek": {
				Type:       "deepseek",
				Model:      "deepseek-chat",
				APIKey:     "${DEEPSEEK_API_KEY}",
				MaxRetries: 2,
				Timeout:    60 * time.Second,
				Enabled:    true,
			},
		},
		Defaults: DefaultsCfg{
			RecommendProvider: "perplexity",
			PrefaceProvider:   "deepseek",
		},
		Completion: CompletionCfg{
			Temperature:      0.7,
			MaxTokens:        1500,
			Timeout:          60 * time.Second,
			PrefaceMaxTokens: 1024,
			PrefaceTimeout:   60 * time.Second,
		},
		Matcher: MatcherCfg{
			BatchSize:     m.BatchSize,
			MaxCandidates: m.MaxCandidates,
			Sufficient:    m.Sufficient,
			MinAcceptable: m.MinAcceptable,
			BatchPause:    m.BatchPause,
			CallTimeout:   m.CallTimeout,
			CategoryLimit: m.CategoryLimit,
			Categories:    m.Categories,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// PromptOverrides flattens the prompts section into dotted prompt keys.
func (c *Config) PromptOverrides() map[string]string {
	out := make(map[string]string)
	flattenPrompts(out, "", c.Prompts)
	return out
}

func flattenPrompts(out map[string]string, prefix string, node map[string]any) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]any:
			flattenPrompts(out, key, val)
		case map[any]any:
			m := make(map[string]any, len(val))
			for mk, mv := range val {
				m[fmt.Sprint(mk)] = mv
			}
			flattenPrompts(out, key, m)
		}
	}
}

// MatchOptions converts the matcher section. Zero values fall back to the
// matcher's own defaults.
func (c MatcherCfg) MatchOptions() recommend.MatchOptions {
	return recommend.MatchOptions{
		BatchSize:     c.BatchSize,
		MaxCandidates: c.MaxCandidates,
		Sufficient:    c.Sufficient,
		MinAcceptable: c.MinAcceptable,
		BatchPause:    c.BatchPause,
		CallTimeout:   c.CallTimeout,
		CategoryLimit: c.CategoryLimit,
		Categories:    c.Categories,
	}
}

// ClientConfig converts the catalog section.
func (c CatalogCfg) ClientConfig() catalog.Config {
	return catalog.Config{
		BaseURL:           c.BaseURL,
		Timeout:           c.Timeout,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
		Breaker: catalog.BreakerConfig{
			Enabled:      c.Breaker.Enabled,
			MinRequests:  c.Breaker.MinRequests,
			FailureRatio: c.Breaker.FailureRatio,
			OpenTimeout:  c.Breaker.Timeout,
			Interval:     c.Breaker.Interval,
		},
	}
}
