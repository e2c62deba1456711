package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/libra/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Libra server via HTTP.

These commands require a running server (libra serve).
Use --server to specify a custom server URL.

Examples:
  libra api health                         # Check server health
  libra api books search moby dick         # Search the catalog
  libra api books similar 2701             # Books similar to Moby Dick
  libra api collections create "romane de aventură"
  libra api credential set --from-env      # Save PERPLEXITY_API_KEY on the server`,
}

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Catalog and per-book recommendation commands",
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Personalized and curated collection commands",
}

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Completion API key commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.MetricsEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ListPromptsEndpoint{}).Command(getServerURL))

	// Books as subcommand group
	booksCmd.AddCommand((&endpoints.SearchBooksEndpoint{}).Command(getServerURL))
	booksCmd.AddCommand((&endpoints.GetBookEndpoint{}).Command(getServerURL))
	booksCmd.AddCommand((&endpoints.SimilarBooksEndpoint{}).Command(getServerURL))
	booksCmd.AddCommand((&endpoints.PrefaceEndpoint{}).Command(getServerURL))

	// Collections as subcommand group
	collectionsCmd.AddCommand((&endpoints.CreateCollectionEndpoint{}).Command(getServerURL))
	collectionsCmd.AddCommand((&endpoints.CuratedEndpoint{}).Command(getServerURL))

	// Credential as subcommand group
	credentialCmd.AddCommand((&endpoints.GetCredentialEndpoint{}).Command(getServerURL))
	credentialCmd.AddCommand((&endpoints.SetCredentialEndpoint{}).Command(getServerURL))
	credentialCmd.AddCommand((&endpoints.ClearCredentialEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(booksCmd)
	apiCmd.AddCommand(collectionsCmd)
	apiCmd.AddCommand(credentialCmd)
	rootCmd.AddCommand(apiCmd)
}
