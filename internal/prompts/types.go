// Package prompts manages LLM prompt templates.
//
// Embedded .tmpl files are the defaults. Any key may be overridden from the
// prompts section of the config file; overrides are reloaded with the config.
//
// Resolution order for a key:
//  1. Config override (if set and non-empty)
//  2. Embedded default
package prompts

// EmbeddedPrompt is a prompt compiled into the binary.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: recommend.similar
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 of Text
}

// ResolvedPrompt is the text in effect for a key.
type ResolvedPrompt struct {
	Key         string   `json:"key" yaml:"key"`
	Text        string   `json:"text" yaml:"text"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Variables   []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	IsOverride  bool     `json:"is_override" yaml:"is_override"`
	Hash        string   `json:"hash" yaml:"hash"`
}
