package recommend

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/libra/internal/catalog"
	"github.com/jackzampolin/libra/internal/metrics"
)

// DefaultCategories broaden the search when too few recommendations resolve.
var DefaultCategories = []string{"fiction", "classic", "adventure", "romance", "philosophy"}

// MatchOptions tunes resolution. Zero fields take defaults.
type MatchOptions struct {
	BatchSize     int           // concurrent resolutions per batch (default: 5)
	MaxCandidates int           // recommendations considered at most (default: 20)
	Sufficient    int           // stop once this many unique books are found (default: 10)
	MinAcceptable int           // below this, fall back to category search (default: 5)
	BatchPause    time.Duration // pause between batches (default: 300ms; negative disables)
	CallTimeout   time.Duration // per catalog search (default: 10s)
	CategoryLimit int           // results taken per fallback category (default: 5)
	Categories    []string
	Strategies    []Strategy
}

// DefaultMatchOptions returns the standard tuning.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		BatchSize:     5,
		MaxCandidates: 20,
		Sufficient:    10,
		MinAcceptable: 5,
		BatchPause:    300 * time.Millisecond,
		CallTimeout:   10 * time.Second,
		CategoryLimit: 5,
		Categories:    DefaultCategories,
		Strategies:    DefaultStrategies,
	}
}

func (o MatchOptions) withDefaults() MatchOptions {
	d := DefaultMatchOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = d.MaxCandidates
	}
	if o.Sufficient <= 0 {
		o.Sufficient = d.Sufficient
	}
	if o.MinAcceptable <= 0 {
		o.MinAcceptable = d.MinAcceptable
	}
	if o.BatchPause == 0 {
		o.BatchPause = d.BatchPause
	}
	if o.CallTimeout == 0 {
		o.CallTimeout = d.CallTimeout
	}
	if o.CategoryLimit <= 0 {
		o.CategoryLimit = d.CategoryLimit
	}
	if o.Categories == nil {
		o.Categories = d.Categories
	}
	if len(o.Strategies) == 0 {
		o.Strategies = d.Strategies
	}
	return o
}

// Matcher resolves recommendations to real catalog entries.
type Matcher struct {
	catalog catalog.Searcher
	logger  *slog.Logger
}

// NewMatcher creates a matcher backed by s.
func NewMatcher(s catalog.Searcher, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{catalog: s, logger: logger}
}

// ResolveEach resolves recs concurrently, at most BatchSize at a time, and
// returns one outcome per input in input order.
func (m *Matcher) ResolveEach(ctx context.Context, recs []Recommendation, opts MatchOptions) []ResolvedBook {
	opts = opts.withDefaults()
	out := make([]ResolvedBook, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.BatchSize)
	for i, rec := range recs {
		g.Go(func() error {
			out[i] = Cascade(gctx, m.catalog, opts.Strategies, rec, opts.CallTimeout)
			return nil
		})
	}
	g.Wait()
	return out
}

// Resolve ranks recs, resolves them in sequential batches, and returns the
// unique catalog entries found in order. Category results are appended when
// fewer than MinAcceptable entries resolve. It never fails; an empty result
// means nothing matched.
func (m *Matcher) Resolve(ctx context.Context, recs []Recommendation, opts MatchOptions) []catalog.Book {
	opts = opts.withDefaults()

	ranked := Rank(recs)
	if len(ranked) > opts.MaxCandidates {
		ranked = ranked[:opts.MaxCandidates]
	}

	acc := newAccumulator()
	for start := 0; start < len(ranked); start += opts.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+opts.BatchSize, len(ranked))

		added := 0
		for _, r := range m.ResolveEach(ctx, ranked[start:end], opts) {
			book, ok := r.Book()
			if !ok {
				metrics.Unresolved.Inc()
				continue
			}
			metrics.StrategyHits.WithLabelValues(r.Strategy()).Inc()
			if acc.add(book) {
				added++
			}
		}
		m.logger.Debug("resolved batch", "batch", start/opts.BatchSize, "size", end-start, "added", added, "resolved", acc.len())

		if acc.len() >= opts.Sufficient {
			break
		}
		if end < len(ranked) && !pause(ctx, opts.BatchPause) {
			break
		}
	}

	if acc.len() < opts.MinAcceptable {
		m.fillFromCategories(ctx, acc, opts)
	}

	m.logger.Info("matched recommendations", "candidates", len(ranked), "resolved", acc.len())
	return acc.books
}

func (m *Matcher) fillFromCategories(ctx context.Context, acc *accumulator, opts MatchOptions) {
	for _, category := range opts.Categories {
		if acc.len() >= opts.Sufficient || ctx.Err() != nil {
			return
		}
		metrics.CategoryFallbacks.WithLabelValues(category).Inc()

		callCtx, cancel := context.WithTimeout(ctx, opts.CallTimeout)
		res, err := m.catalog.Search(callCtx, catalog.Query{
			Text:  category,
			Sort:  catalog.SortPopular,
			Limit: opts.CategoryLimit,
		})
		cancel()
		if err != nil || res == nil {
			m.logger.Warn("category fallback search failed", "category", category, "error", err)
			continue
		}
		for _, b := range res.Books {
			acc.add(b)
		}
	}
}

// pause waits for d or until ctx is done. It reports whether to continue.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// accumulator collects books in order, rejecting duplicate ids.
type accumulator struct {
	seen  map[int]struct{}
	books []catalog.Book
}

func newAccumulator() *accumulator {
	return &accumulator{seen: make(map[int]struct{}), books: []catalog.Book{}}
}

func (a *accumulator) add(b catalog.Book) bool {
	if _, dup := a.seen[b.ID]; dup {
		return false
	}
	a.seen[b.ID] = struct{}{}
	a.books = append(a.books, b)
	return true
}

func (a *accumulator) len() int { return len(a.books) }
