package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jackzampolin/libra/internal/catalog"
	"github.com/jackzampolin/libra/internal/metrics"
	"github.com/jackzampolin/libra/internal/prompts"
	"github.com/jackzampolin/libra/internal/prompts/suggest"
)

const (
	DefaultSimilarCount    = 10
	DefaultCollectionCount = 20
	DefaultPrefaceTimeout  = 60 * time.Second

	// Degraded-path search limits.
	directSimilarLimit    = 10
	directCollectionLimit = 20
)

var (
	// ErrPrefaceUnavailable is returned when no preface provider is configured.
	ErrPrefaceUnavailable = errors.New("preface generation is not configured")

	// ErrPrefaceTimeout is returned when the preface provider does not answer in time.
	ErrPrefaceTimeout = errors.New("preface generation timed out")
)

// Completer sends one prompt and returns the model's text.
// *completion.Client implements it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Available() bool
}

// Config wires a Service. Catalog is required; everything else is optional.
type Config struct {
	Catalog        catalog.Catalog
	Completion     Completer // recommendations; nil means always degraded
	Preface        Completer // preface generation; nil disables Preface
	Prompts        *prompts.Resolver
	Matcher        *Matcher
	Options        MatchOptions
	PrefaceTimeout time.Duration
	Logger         *slog.Logger
	Rand           *rand.Rand
}

// Service turns a book or a free-text request into catalog books, using the
// completion provider when it can and direct catalog search when it cannot.
type Service struct {
	catalog    catalog.Catalog
	completion Completer
	preface    Completer
	prompts    *prompts.Resolver
	matcher    *Matcher
	logger     *slog.Logger

	prefaceTimeout time.Duration

	mu   sync.RWMutex
	opts MatchOptions

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService creates a Service from cfg.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.NewResolver(cfg.Logger)
		suggest.RegisterPrompts(cfg.Prompts)
	}
	if cfg.Matcher == nil {
		cfg.Matcher = NewMatcher(cfg.Catalog, cfg.Logger)
	}
	if cfg.PrefaceTimeout <= 0 {
		cfg.PrefaceTimeout = DefaultPrefaceTimeout
	}
	if cfg.Rand == nil {
		now := uint64(time.Now().UnixNano())
		cfg.Rand = rand.New(rand.NewPCG(now, now>>32))
	}
	return &Service{
		catalog:        cfg.Catalog,
		completion:     cfg.Completion,
		preface:        cfg.Preface,
		prompts:        cfg.Prompts,
		matcher:        cfg.Matcher,
		logger:         cfg.Logger,
		prefaceTimeout: cfg.PrefaceTimeout,
		opts:           cfg.Options,
		rng:            cfg.Rand,
	}
}

// Options returns the current match options.
func (s *Service) Options() MatchOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// SetOptions replaces the match options used by subsequent calls.
func (s *Service) SetOptions(opts MatchOptions) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
}

// RecommendationsAvailable reports whether the completion path can be used.
func (s *Service) RecommendationsAvailable() bool {
	return s.completion != nil && s.completion.Available()
}

// PrefaceAvailable reports whether Preface can be used.
func (s *Service) PrefaceAvailable() bool {
	return s.preface != nil && s.preface.Available()
}

// SimilarTo returns catalog books similar to b. It never fails; an empty
// result means nothing was found.
func (s *Service) SimilarTo(ctx context.Context, b catalog.Book, count int) []catalog.Book {
	if count <= 0 {
		count = DefaultSimilarCount
	}
	log := s.logger.With("operation", "similar", "book_id", b.ID)

	recs, reason := s.similarRecommendations(ctx, b, count)
	if reason != "" {
		log.Info("using direct search", "reason", reason)
		metrics.DegradedResponses.WithLabelValues("similar", reason).Inc()
		return s.similarDirect(ctx, b, count)
	}

	books := s.matcher.Resolve(ctx, recs, s.Options())
	out := make([]catalog.Book, 0, len(books))
	for _, found := range books {
		if found.ID != b.ID {
			out = append(out, found)
		}
	}
	log.Info("similar books resolved", "recommended", len(recs), "resolved", len(out))
	return out
}

// similarRecommendations asks the model for similar books. A non-empty
// reason means the degraded path must be used instead.
func (s *Service) similarRecommendations(ctx context.Context, b catalog.Book, count int) ([]Recommendation, string) {
	if !s.RecommendationsAvailable() {
		return nil, "no_credential"
	}
	prompt, err := s.prompts.Render(suggest.SimilarKey, suggest.NewSimilarData(b.Title, b.AuthorNames(), count))
	if err != nil {
		s.logger.Error("similar prompt failed to render", "error", err)
		return nil, "prompt_error"
	}
	raw, err := s.completion.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("similar completion failed", "book_id", b.ID, "error", err)
		return nil, "completion_error"
	}
	recs := ParseList(raw)
	if len(recs) == 0 {
		return nil, "parse_error"
	}
	return recs, ""
}

// similarDirect searches by the lead author, then by the first two title
// words when the author yields nothing.
func (s *Service) similarDirect(ctx context.Context, b catalog.Book, count int) []catalog.Book {
	acc := newAccumulator()
	acc.seen[b.ID] = struct{}{}

	if author := b.LeadAuthor(); author != "" {
		s.searchInto(ctx, acc, catalog.Query{Text: author, Limit: directSimilarLimit})
	}
	if acc.len() == 0 {
		words := strings.Fields(b.Title)
		if len(words) > 2 {
			words = words[:2]
		}
		if len(words) > 0 {
			s.searchInto(ctx, acc, catalog.Query{Text: strings.Join(words, " "), Limit: directSimilarLimit})
		}
	}

	if acc.len() > count {
		return acc.books[:count]
	}
	return acc.books
}

// PersonalizedCollection builds a titled collection for a free-text request.
// It never fails; Degraded reports whether direct search was used.
func (s *Service) PersonalizedCollection(ctx context.Context, prompt string, count int) Collection {
	prompt = strings.TrimSpace(prompt)
	if count <= 0 {
		count = DefaultCollectionCount
	}
	fallbackTitle := DirectCollectionTitle(prompt)
	if prompt == "" {
		metrics.DegradedResponses.WithLabelValues("collection", "empty_prompt").Inc()
		return Collection{Title: fallbackTitle, Books: []catalog.Book{}, Degraded: true}
	}

	parsed, reason := s.collectionRecommendations(ctx, prompt, count)
	if reason != "" {
		s.logger.Info("using direct search", "operation", "collection", "reason", reason)
		metrics.DegradedResponses.WithLabelValues("collection", reason).Inc()
		return Collection{Title: fallbackTitle, Books: s.collectionDirect(ctx, prompt), Degraded: true}
	}

	title := parsed.Title
	if title == "" {
		title = fallbackTitle
	}
	books := s.matcher.Resolve(ctx, parsed.Books, s.Options())
	s.logger.Info("collection resolved", "recommended", len(parsed.Books), "resolved", len(books))
	return Collection{Title: title, Books: books}
}

func (s *Service) collectionRecommendations(ctx context.Context, prompt string, count int) (ParsedCollection, string) {
	if !s.RecommendationsAvailable() {
		return ParsedCollection{}, "no_credential"
	}
	text, err := s.prompts.Render(suggest.CollectionKey, suggest.CollectionData{Prompt: prompt, Count: count})
	if err != nil {
		s.logger.Error("collection prompt failed to render", "error", err)
		return ParsedCollection{}, "prompt_error"
	}
	raw, err := s.completion.Complete(ctx, text)
	if err != nil {
		s.logger.Warn("collection completion failed", "error", err)
		return ParsedCollection{}, "completion_error"
	}
	parsed := ParseCollection(raw)
	if !parsed.OK() {
		return ParsedCollection{}, "parse_error"
	}
	return parsed, ""
}

// collectionDirect searches the catalog with keywords from the prompt,
// translated to English when a known Romanian keyword is present.
func (s *Service) collectionDirect(ctx context.Context, prompt string) []catalog.Book {
	terms := strings.Join(keywords(prompt, 3), " ")
	if terms == "" {
		terms = prompt
	}
	acc := newAccumulator()
	s.searchInto(ctx, acc, catalog.Query{
		Text:  TranslateSearchTerms(terms),
		Sort:  catalog.SortPopular,
		Limit: directCollectionLimit,
	})
	return acc.books
}

// DirectCollectionTitle is the title given to collections built without
// the completion provider.
func DirectCollectionTitle(prompt string) string {
	return fmt.Sprintf(`Colecție de cărți pentru "%s"`, prompt)
}

func (s *Service) searchInto(ctx context.Context, acc *accumulator, q catalog.Query) {
	res, err := s.catalog.Search(ctx, q)
	if err != nil || res == nil {
		s.logger.Warn("direct search failed", "error", err)
		return
	}
	for _, b := range res.Books {
		acc.add(b)
	}
}

// Preface generates a Romanian preface for b. Unlike recommendations there
// is no fallback, so errors are returned.
func (s *Service) Preface(ctx context.Context, b catalog.Book) (string, error) {
	if !s.PrefaceAvailable() {
		return "", ErrPrefaceUnavailable
	}
	prompt, err := s.prompts.Render(suggest.PrefaceKey, suggest.NewPrefaceData(b.Title, b.AuthorNames()))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.prefaceTimeout)
	defer cancel()

	text, err := s.preface.Complete(ctx, prompt)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s", ErrPrefaceTimeout, s.prefaceTimeout)
	}
	if err != nil {
		return "", fmt.Errorf("generate preface for book %d: %w", b.ID, err)
	}
	if text == "" {
		return "", fmt.Errorf("generate preface for book %d: empty response", b.ID)
	}
	return text, nil
}

// Curated samples n prompts for the landing page.
func (s *Service) Curated(n int) []CuratedPrompt {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return PickCurated(s.rng, n)
}
