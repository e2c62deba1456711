package endpoints

import (
	"github.com/jackzampolin/libra/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},
		&MetricsEndpoint{},

		// Book endpoints
		&SearchBooksEndpoint{},
		&GetBookEndpoint{},
		&SimilarBooksEndpoint{},
		&PrefaceEndpoint{},

		// Collection endpoints
		&CreateCollectionEndpoint{},
		&CuratedEndpoint{},

		// Credential endpoints
		&GetCredentialEndpoint{},
		&SetCredentialEndpoint{},
		&ClearCredentialEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
	}
}
