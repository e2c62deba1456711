package recommend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackzampolin/libra/internal/catalog"
)

// fakeCatalog answers searches from a map keyed by query text.
type fakeCatalog struct {
	mu      sync.Mutex
	results map[string][]catalog.Book
	errs    map[string]error
	books   map[int]catalog.Book
	latency time.Duration

	queries     []catalog.Query
	inFlight    int
	maxInFlight int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		results: make(map[string][]catalog.Book),
		errs:    make(map[string]error),
		books:   make(map[int]catalog.Book),
	}
}

func (f *fakeCatalog) on(text string, books ...catalog.Book) *fakeCatalog {
	f.results[text] = books
	for _, b := range books {
		f.books[b.ID] = b
	}
	return f
}

func (f *fakeCatalog) fail(text string, err error) *fakeCatalog {
	f.errs[text] = err
	return f
}

func (f *fakeCatalog) Search(ctx context.Context, q catalog.Query) (*catalog.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	books := f.results[q.Text]
	err := f.errs[q.Text]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(books) > q.Limit {
		books = books[:q.Limit]
	}
	return &catalog.SearchResult{Count: len(books), Books: books}, nil
}

func (f *fakeCatalog) FetchByID(_ context.Context, id int) (*catalog.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &b, nil
}

func (f *fakeCatalog) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeCatalog) callsFor(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, q := range f.queries {
		if q.Text == text {
			n++
		}
	}
	return n
}

func (f *fakeCatalog) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queries))
	for i, q := range f.queries {
		out[i] = q.Text
	}
	return out
}

func book(id int, title, author string) catalog.Book {
	return catalog.Book{ID: id, Title: title, Authors: []catalog.Person{{Name: author}}}
}

var errBoom = errors.New("boom")

// fastOptions disables the inter-batch pause.
func fastOptions() MatchOptions {
	o := DefaultMatchOptions()
	o.BatchPause = -1
	return o
}
