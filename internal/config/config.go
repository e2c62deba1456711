package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/libra/internal/providers"
)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
// configDir is searched for config.yaml when cfgFile is empty.
func NewManager(cfgFile, configDir string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    slog.Default(),
	}

	if err := cm.initViper(cfgFile, configDir); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// SetLogger sets the logger used for reload messages.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile, configDir string) error {
	v := cm.v
	if err := setDefaults(v, DefaultConfig()); err != nil {
		return err
	}

	// Environment variables with LIBRA_ prefix, e.g. LIBRA_SERVER_PORT
	v.SetEnvPrefix("LIBRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if configDir != "" {
			v.AddConfigPath(configDir)
		}
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults registers every leaf of cfg as a viper default so partial
// config files and env overrides merge with it key by key.
func setDefaults(v *viper.Viper, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to read defaults: %w", err)
	}
	setLeaves(v, "", tree)
	return nil
}

func setLeaves(v *viper.Viper, prefix string, node any) {
	switch n := node.(type) {
	case map[string]any:
		for k, child := range n {
			setLeaves(v, joinKey(prefix, k), child)
		}
	case map[any]any:
		for k, child := range n {
			setLeaves(v, joinKey(prefix, fmt.Sprint(k)), child)
		}
	default:
		v.SetDefault(prefix, n)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the config file in use, or "" when running on defaults.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.mu.RLock()
			cm.logger.Warn("config reload failed", "file", e.Name, "error", err)
			cm.mu.RUnlock()
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		logger := cm.logger
		cm.mu.Unlock()

		logger.Info("config reloaded", "file", e.Name, "op", e.Op.String())
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() map[string]providers.LLMProviderConfig {
	cfg := make(map[string]providers.LLMProviderConfig, len(c.LLMProviders))
	for name, llm := range c.LLMProviders {
		cfg[name] = providers.LLMProviderConfig{
			Type:       llm.Type,
			Model:      llm.Model,
			APIKey:     ResolveEnvVars(llm.APIKey),
			BaseURL:    llm.BaseURL,
			MaxRetries: llm.MaxRetries,
			Timeout:    llm.Timeout,
			Enabled:    llm.Enabled,
		}
	}
	return cfg
}

// ProviderKey returns the resolved API key of a configured provider.
func (c *Config) ProviderKey(name string) string {
	p, ok := c.LLMProviders[name]
	if !ok {
		return ""
	}
	return ResolveEnvVars(p.APIKey)
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Libra configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell or .env: export PERPLEXITY_API_KEY=xxx DEEPSEEK_API_KEY=xxx
# A key saved with 'libra api credential set' takes precedence over PERPLEXITY_API_KEY.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
