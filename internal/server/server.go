package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/libra/internal/api"
	"github.com/jackzampolin/libra/internal/catalog"
	"github.com/jackzampolin/libra/internal/completion"
	"github.com/jackzampolin/libra/internal/config"
	"github.com/jackzampolin/libra/internal/credential"
	"github.com/jackzampolin/libra/internal/home"
	"github.com/jackzampolin/libra/internal/prompts"
	"github.com/jackzampolin/libra/internal/prompts/suggest"
	"github.com/jackzampolin/libra/internal/providers"
	"github.com/jackzampolin/libra/internal/recommend"
	"github.com/jackzampolin/libra/internal/server/endpoints"
	"github.com/jackzampolin/libra/internal/svcctx"
)

const shutdownTimeout = 30 * time.Second

// Server is the main Libra HTTP server.
// Services are built in Start; until then endpoints that need them answer 503.
type Server struct {
	httpServer *http.Server
	registry   *providers.Registry
	configMgr  *config.Manager
	home       *home.Dir
	logger     *slog.Logger
	catalog    catalog.Catalog

	// services holds all core services for context enrichment
	services atomic.Pointer[svcctx.Services]

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	running  bool
	listener net.Listener
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: server.host from config)
	Host string
	// Port is the port to listen on; "0" picks a free port
	Port string
	// ConfigManager provides configuration with hot-reload support (required)
	ConfigManager *config.Manager
	// Home is the libra home directory, used for the credential file
	Home *home.Dir
	// Catalog replaces the Gutendex client built from config
	Catalog catalog.Catalog
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("server: config manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := cfg.ConfigManager.Get()
	if cfg.Host == "" {
		cfg.Host = c.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = c.Server.Port
	}

	// Create provider registry
	registry := providers.NewRegistryFromConfig(c.ToProviderRegistryConfig(), cfg.Logger)

	s := &Server{
		registry:  registry,
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,
		catalog:   cfg.Catalog,
	}

	cfg.ConfigManager.OnChange(s.reload)

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	s.endpointRegistry.Register(endpoints.All()...)

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.handler(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * recommend.DefaultPrefaceTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// handler builds the middleware chain around mux.
func (s *Server) handler(mux *http.ServeMux) http.Handler {
	var h http.Handler = mux
	h = withAccessLog(s.logger, h)
	h = s.withServices(h)
	h = withRequestID(h)
	h = withRecovery(s.logger, h)
	return h
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Init builds the catalog, completion and recommendation services.
// Start calls it; tests may call it directly and serve Handler.
func (s *Server) Init(ctx context.Context) error {
	if s.services.Load() != nil {
		return nil
	}
	svc, err := s.buildServices(ctx)
	if err != nil {
		return err
	}
	s.services.Store(svc)
	return nil
}

func (s *Server) buildServices(_ context.Context) (*svcctx.Services, error) {
	cfg := s.configMgr.Get()

	cat := s.catalog
	if cat == nil {
		cc := cfg.Catalog.ClientConfig()
		cc.Logger = s.logger.With("component", "catalog")
		cat = catalog.NewClient(cc)
	}

	credPath := cfg.Credential.File
	if credPath == "" && s.home != nil {
		credPath = s.home.CredentialPath()
	}
	var creds credential.Store = s.configKey(func(c *config.Config) string { return c.Defaults.RecommendProvider })
	if credPath != "" {
		file := credential.NewFileStore(credPath)
		if err := file.LoadErr(); err != nil {
			s.logger.Warn("credential file unreadable, ignoring", "path", credPath, "error", err)
		}
		creds = credential.Fallback(file, creds)
	}

	resolver := prompts.NewResolver(s.logger)
	suggest.RegisterPrompts(resolver)
	if err := resolver.SetOverrides(cfg.PromptOverrides()); err != nil {
		return nil, fmt.Errorf("prompt overrides: %w", err)
	}

	recommender := recommend.NewService(recommend.Config{
		Catalog: cat,
		Completion: completion.New(
			completion.FromRegistry(s.registry, cfg.Defaults.RecommendProvider),
			creds,
			completion.Options{
				Temperature: cfg.Completion.Temperature,
				MaxTokens:   cfg.Completion.MaxTokens,
				Timeout:     cfg.Completion.Timeout,
				Logger:      s.logger.With("component", "completion"),
			}),
		Preface: completion.New(
			completion.FromRegistry(s.registry, cfg.Defaults.PrefaceProvider),
			s.configKey(func(c *config.Config) string { return c.Defaults.PrefaceProvider }),
			completion.Options{
				Temperature: cfg.Completion.Temperature,
				MaxTokens:   cfg.Completion.PrefaceMaxTokens,
				Timeout:     cfg.Completion.PrefaceTimeout,
				Logger:      s.logger.With("component", "preface"),
			}),
		Prompts:        resolver,
		Options:        cfg.Matcher.MatchOptions(),
		PrefaceTimeout: cfg.Completion.PrefaceTimeout,
		Logger:         s.logger.With("component", "recommend"),
	})

	s.logger.Info("services initialized",
		"recommend_provider", cfg.Defaults.RecommendProvider,
		"preface_provider", cfg.Defaults.PrefaceProvider,
		"recommendations", recommender.RecommendationsAvailable(),
		"preface", recommender.PrefaceAvailable())

	return &svcctx.Services{
		Catalog:     cat,
		Recommender: recommender,
		Credential:  creds,
		Registry:    s.registry,
		Prompts:     resolver,
		Config:      s.configMgr,
		Logger:      s.logger,
		Home:        s.home,
	}, nil
}

// providerKey is a read-only credential that follows config reloads.
type providerKey struct {
	mgr  *config.Manager
	name func(*config.Config) string
}

func (s *Server) configKey(name func(*config.Config) string) providerKey {
	return providerKey{mgr: s.configMgr, name: name}
}

func (k providerKey) Get() string {
	c := k.mgr.Get()
	return c.ProviderKey(k.name(c))
}

func (k providerKey) Has() bool          { return k.Get() != "" }
func (k providerKey) Set(_ string) error { return credential.ErrReadOnly }

// reload applies a changed config file to the running services.
func (s *Server) reload(c *config.Config) {
	s.registry.Reload(c.ToProviderRegistryConfig())
	s.logger.Info("provider registry reloaded from config")

	svc := s.services.Load()
	if svc == nil {
		return
	}
	svc.Recommender.SetOptions(c.Matcher.MatchOptions())
	if err := svc.Prompts.SetOverrides(c.PromptOverrides()); err != nil {
		s.logger.Error("prompt overrides rejected, keeping previous", "error", err)
	}
}

// Start initializes services and serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Init(ctx); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown drains in-flight requests.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.listener = nil
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the address the server is listening on, or the configured
// address before Start has bound it.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Services returns the initialized services, or nil before Init.
func (s *Server) Services() *svcctx.Services {
	return s.services.Load()
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc := s.services.Load(); svc != nil {
			ctx = svcctx.WithServices(ctx, svc)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until Init has completed.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services.Load() == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
