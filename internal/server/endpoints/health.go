package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/libra/internal/api"
	"github.com/jackzampolin/libra/internal/svcctx"
	"github.com/jackzampolin/libra/version"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status   string `json:"status" yaml:"status"`
	Services string `json:"services,omitempty" yaml:"services,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp, func(w io.Writer) {
				fmt.Fprintf(w, "Status: %s\n", resp.Status)
			})
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if svcctx.RecommenderFrom(r.Context()) == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Services: "not_initialized"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Services: "ok"})
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp, func(w io.Writer) {
				fmt.Fprintf(w, "Status:   %s\n", resp.Status)
				fmt.Fprintf(w, "Services: %s\n", resp.Services)
			})
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string          `json:"server" yaml:"server"`
	Version   string          `json:"version" yaml:"version"`
	Commit    string          `json:"commit" yaml:"commit"`
	Providers ProvidersStatus `json:"providers" yaml:"providers"`
	Features  FeaturesStatus  `json:"features" yaml:"features"`
	Catalog   CatalogStatus   `json:"catalog" yaml:"catalog"`
}

// ProvidersStatus shows registered LLM providers.
type ProvidersStatus struct {
	LLM []string `json:"llm" yaml:"llm"`
}

// FeaturesStatus reports which completion-backed features can run.
type FeaturesStatus struct {
	CredentialConfigured bool `json:"credential_configured" yaml:"credential_configured"`
	Recommendations      bool `json:"recommendations" yaml:"recommendations"`
	Preface              bool `json:"preface" yaml:"preface"`
}

// CatalogStatus shows the catalog circuit breaker.
type CatalogStatus struct {
	Breaker string `json:"breaker" yaml:"breaker"`
}

type breakerReporter interface {
	BreakerState() string
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Server:  "running",
		Version: version.GitRelease,
		Commit:  version.GitCommit,
		Catalog: CatalogStatus{Breaker: "not_initialized"},
	}

	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers.LLM = registry.ListLLM()
	}
	if creds := svcctx.CredentialFrom(ctx); creds != nil {
		resp.Features.CredentialConfigured = creds.Has()
	}
	if rec := svcctx.RecommenderFrom(ctx); rec != nil {
		resp.Features.Recommendations = rec.RecommendationsAvailable()
		resp.Features.Preface = rec.PrefaceAvailable()
	}
	if br, ok := svcctx.CatalogFrom(ctx).(breakerReporter); ok {
		resp.Catalog.Breaker = br.BreakerState()
	} else if svcctx.CatalogFrom(ctx) != nil {
		resp.Catalog.Breaker = "unknown"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp, func(w io.Writer) {
				fmt.Fprintf(w, "Server:  %s (%s)\n", resp.Server, resp.Version)
				fmt.Fprintf(w, "Catalog: breaker %s\n", resp.Catalog.Breaker)
				fmt.Fprintf(w, "Providers:\n")
				fmt.Fprintf(w, "  LLM: %v\n", resp.Providers.LLM)
				fmt.Fprintf(w, "Features:\n")
				fmt.Fprintf(w, "  Credential:      %v\n", resp.Features.CredentialConfigured)
				fmt.Fprintf(w, "  Recommendations: %v\n", resp.Features.Recommendations)
				fmt.Fprintf(w, "  Preface:         %v\n", resp.Features.Preface)
			})
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
