package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/libra/internal/api"
	"github.com/jackzampolin/libra/internal/credential"
	"github.com/jackzampolin/libra/internal/svcctx"
)

// CredentialStatus reports whether a completion key is configured.
// The key itself is never returned.
type CredentialStatus struct {
	Configured bool `json:"configured" yaml:"configured"`
}

// SetCredentialRequest is the body of PUT /credential.
type SetCredentialRequest struct {
	APIKey string `json:"api_key"`
}

// GetCredentialEndpoint handles GET /credential.
type GetCredentialEndpoint struct{}

func (e *GetCredentialEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/credential", e.handler
}

func (e *GetCredentialEndpoint) RequiresInit() bool { return true }

func (e *GetCredentialEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CredentialStatus{Configured: svcctx.CredentialFrom(r.Context()).Has()})
}

func (e *GetCredentialEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a completion API key is configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CredentialStatus
			if err := client.Get(cmd.Context(), "/credential", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp, func(w io.Writer) {
				fmt.Fprintf(w, "Configured: %v\n", resp.Configured)
			})
		},
	}
}

// SetCredentialEndpoint handles PUT /credential.
type SetCredentialEndpoint struct{}

func (e *SetCredentialEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/credential", e.handler
}

func (e *SetCredentialEndpoint) RequiresInit() bool { return true }

func (e *SetCredentialEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req SetCredentialRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}
	storeCredential(w, r, req.APIKey)
}

func (e *SetCredentialEndpoint) Command(getServerURL func() string) *cobra.Command {
	var fromEnv bool
	cmd := &cobra.Command{
		Use:   "set [api-key]",
		Short: "Save the completion API key on the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			switch {
			case fromEnv:
				key = os.Getenv("PERPLEXITY_API_KEY")
			case len(args) == 1:
				key = args[0]
			}
			if strings.TrimSpace(key) == "" {
				return errors.New("an API key argument or --from-env is required")
			}
			client := api.NewClient(getServerURL())
			var resp CredentialStatus
			if err := client.Put(cmd.Context(), "/credential", SetCredentialRequest{APIKey: key}, &resp); err != nil {
				return err
			}
			return api.Output(resp, func(w io.Writer) { fmt.Fprintln(w, "API key saved") })
		},
	}
	cmd.Flags().BoolVar(&fromEnv, "from-env", false, "Read the key from PERPLEXITY_API_KEY")
	return cmd
}

// ClearCredentialEndpoint handles DELETE /credential.
type ClearCredentialEndpoint struct{}

func (e *ClearCredentialEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/credential", e.handler
}

func (e *ClearCredentialEndpoint) RequiresInit() bool { return true }

func (e *ClearCredentialEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	storeCredential(w, r, "")
}

func (e *ClearCredentialEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the saved completion API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/credential"); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatText {
				fmt.Println("API key cleared")
			}
			return nil
		},
	}
}

func storeCredential(w http.ResponseWriter, r *http.Request, key string) {
	store := svcctx.CredentialFrom(r.Context())
	if err := store.Set(key); err != nil {
		if errors.Is(err, credential.ErrReadOnly) {
			writeError(w, http.StatusConflict, "credential store is read-only")
			return
		}
		svcctx.LoggerFrom(r.Context()).Error("failed to store credential", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store credential")
		return
	}
	svcctx.LoggerFrom(r.Context()).Info("credential updated", "configured", key != "")
	writeJSON(w, http.StatusOK, CredentialStatus{Configured: store.Has()})
}
