// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/libra/internal/catalog"
	"github.com/jackzampolin/libra/internal/config"
	"github.com/jackzampolin/libra/internal/credential"
	"github.com/jackzampolin/libra/internal/home"
	"github.com/jackzampolin/libra/internal/prompts"
	"github.com/jackzampolin/libra/internal/providers"
	"github.com/jackzampolin/libra/internal/recommend"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Catalog     catalog.Catalog
	Recommender *recommend.Service
	Credential  credential.Store
	Registry    *providers.Registry
	Prompts     *prompts.Resolver
	Config      *config.Manager
	Logger      *slog.Logger
	Home        *home.Dir
}

type servicesKey struct{}

type requestIDKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// WithRequestID attaches a request ID to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// CatalogFrom extracts the book catalog from context.
func CatalogFrom(ctx context.Context) catalog.Catalog {
	if s := ServicesFrom(ctx); s != nil {
		return s.Catalog
	}
	return nil
}

// RecommenderFrom extracts the recommendation service from context.
func RecommenderFrom(ctx context.Context) *recommend.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Recommender
	}
	return nil
}

// CredentialFrom extracts the credential store from context.
func CredentialFrom(ctx context.Context) credential.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Credential
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// PromptsFrom extracts the prompt resolver from context.
func PromptsFrom(ctx context.Context) *prompts.Resolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.Prompts
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context, tagged with the request ID
// when one is present. Never returns nil.
func LoggerFrom(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		logger = s.Logger
	}
	if id := RequestIDFrom(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	return logger
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
