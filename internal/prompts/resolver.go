package prompts

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownPrompt is returned for keys that were never registered.
var ErrUnknownPrompt = errors.New("prompt not found")

// Resolver resolves prompt keys to their effective text.
type Resolver struct {
	mu        sync.RWMutex
	embedded  map[string]EmbeddedPrompt
	overrides map[string]string
	logger    *slog.Logger
}

// NewResolver creates an empty resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		embedded:  make(map[string]EmbeddedPrompt),
		overrides: make(map[string]string),
		logger:    logger,
	}
}

// Register adds an embedded default. Re-registering a key replaces it.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.mu.Lock()
	r.embedded[prompt.Key] = prompt
	r.mu.Unlock()
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// SetOverrides replaces all overrides. Blank values and unknown keys are
// ignored; overrides that fail to parse are rejected with an error and the
// previous overrides are kept.
func (r *Resolver) SetOverrides(overrides map[string]string) error {
	next := make(map[string]string, len(overrides))

	r.mu.RLock()
	for key, text := range overrides {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if _, ok := r.embedded[key]; !ok {
			r.logger.Warn("ignoring override for unknown prompt", "key", key)
			continue
		}
		next[key] = text
	}
	r.mu.RUnlock()

	for key, text := range next {
		if _, err := parse(key, text); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.overrides = next
	r.mu.Unlock()
	if len(next) > 0 {
		r.logger.Info("prompt overrides loaded", "count", len(next))
	}
	return nil
}

// Resolve returns the effective text for key.
func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	embedded, ok := r.embedded[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrompt, key)
	}
	if text, ok := r.overrides[key]; ok {
		return &ResolvedPrompt{
			Key:         key,
			Text:        text,
			Description: embedded.Description,
			Variables:   ExtractVariables(text),
			IsOverride:  true,
			Hash:        HashText(text),
		}, nil
	}
	return &ResolvedPrompt{
		Key:         key,
		Text:        embedded.Text,
		Description: embedded.Description,
		Variables:   embedded.Variables,
		Hash:        embedded.Hash,
	}, nil
}

// Render resolves key and executes it with data. A broken override falls
// back to the embedded default.
func (r *Resolver) Render(key string, data any) (string, error) {
	p, err := r.Resolve(key)
	if err != nil {
		return "", err
	}
	out, err := Execute(key, p.Text, data)
	if err == nil || !p.IsOverride {
		return out, err
	}

	r.logger.Warn("prompt override failed, using default", "key", key, "error", err)
	r.mu.RLock()
	text := r.embedded[key].Text
	r.mu.RUnlock()
	return Execute(key, text, data)
}

// All returns every registered prompt as currently resolved, sorted by key.
func (r *Resolver) All() []ResolvedPrompt {
	r.mu.RLock()
	keys := make([]string, 0, len(r.embedded))
	for k := range r.embedded {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)

	out := make([]ResolvedPrompt, 0, len(keys))
	for _, k := range keys {
		if p, err := r.Resolve(k); err == nil {
			out = append(out, *p)
		}
	}
	return out
}
