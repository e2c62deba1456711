package endpoints

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/libra/internal/api"
	"github.com/jackzampolin/libra/internal/prompts"
	"github.com/jackzampolin/libra/internal/svcctx"
)

// PromptsListResponse contains all prompts in effect.
type PromptsListResponse struct {
	Prompts []prompts.ResolvedPrompt `json:"prompts" yaml:"prompts"`
}

// ListPromptsEndpoint handles GET /prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return true }

func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.PromptsFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusInternalServerError, "prompt resolver not available")
		return
	}
	writeJSON(w, http.StatusOK, PromptsListResponse{Prompts: resolver.All()})
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List the prompt templates in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PromptsListResponse
			if err := client.Get(cmd.Context(), "/prompts", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp, func(w io.Writer) {
				for _, p := range resp.Prompts {
					source := "embedded"
					if p.IsOverride {
						source = "config"
					}
					fmt.Fprintf(w, "%-24s %-8s %s\n", p.Key, source, p.Hash[:min(12, len(p.Hash))])
				}
			})
		},
	}
}
