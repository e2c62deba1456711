// Package suggest holds the recommendation and preface prompts.
package suggest

import (
	_ "embed"
	"strings"

	"github.com/jackzampolin/libra/internal/prompts"
)

//go:embed similar.tmpl
var similarPrompt string

//go:embed collection.tmpl
var collectionPrompt string

//go:embed preface.tmpl
var prefacePrompt string

// Prompt keys
const (
	SimilarKey    = "recommend.similar"
	CollectionKey = "recommend.collection"
	PrefaceKey    = "recommend.preface"
)

// SimilarData fills the similar-books prompt.
type SimilarData struct {
	Title   string
	Authors string
	Count   int
}

// NewSimilarData joins authors the way the prompt expects them.
func NewSimilarData(title string, authors []string, count int) SimilarData {
	return SimilarData{Title: title, Authors: strings.Join(authors, ", "), Count: count}
}

// CollectionData fills the collection prompt.
type CollectionData struct {
	Prompt string
	Count  int
}

// PrefaceData fills the preface prompt.
type PrefaceData struct {
	Title   string
	Authors string
}

// NewPrefaceData joins authors with ", ".
func NewPrefaceData(title string, authors []string) PrefaceData {
	return PrefaceData{Title: title, Authors: strings.Join(authors, ", ")}
}

// RegisterPrompts registers the embedded defaults with r.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SimilarKey,
		Text:        similarPrompt,
		Description: "Similar books - JSON array of title/author pairs for a book just read",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         CollectionKey,
		Text:        collectionPrompt,
		Description: "Personalized collection - JSON object with a title and books for a free-text request",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         PrefaceKey,
		Text:        prefacePrompt,
		Description: "Romanian preface for a catalog book",
	})
}
