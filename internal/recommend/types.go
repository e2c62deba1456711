package recommend

import "github.com/jackzampolin/libra/internal/catalog"

// Recommendation is an unresolved title/author pair suggested by the model.
// It is never returned to callers; it is resolved against the catalog or dropped.
type Recommendation struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// ParsedCollection is a model-proposed collection before resolution.
type ParsedCollection struct {
	Title string           `json:"title"`
	Books []Recommendation `json:"books"`
}

// OK reports whether parsing produced anything to resolve.
func (p ParsedCollection) OK() bool {
	return len(p.Books) > 0
}

// Collection is a titled list of catalog books.
type Collection struct {
	Title    string         `json:"title" yaml:"title"`
	Books    []catalog.Book `json:"books" yaml:"books"`
	Degraded bool           `json:"degraded" yaml:"degraded"`
}

// ResolvedBook is the outcome of resolving one Recommendation: either a
// catalog entry or the unresolved pair. Use Resolved/Unresolved to construct
// and Book/Recommendation to inspect; exactly one side is set.
type ResolvedBook struct {
	book     *catalog.Book
	rec      Recommendation
	strategy string
}

// Resolved wraps a catalog match found by the named strategy.
func Resolved(b catalog.Book, strategy string) ResolvedBook {
	return ResolvedBook{book: &b, strategy: strategy}
}

// Unresolved wraps a recommendation no strategy matched.
func Unresolved(r Recommendation) ResolvedBook {
	return ResolvedBook{rec: r}
}

// Book returns the catalog entry, if resolved.
func (r ResolvedBook) Book() (catalog.Book, bool) {
	if r.book == nil {
		return catalog.Book{}, false
	}
	return *r.book, true
}

// Recommendation returns the original pair, if unresolved.
func (r ResolvedBook) Recommendation() (Recommendation, bool) {
	if r.book != nil {
		return Recommendation{}, false
	}
	return r.rec, true
}

// Strategy names the strategy that resolved the book, or "".
func (r ResolvedBook) Strategy() string {
	return r.strategy
}
