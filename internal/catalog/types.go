package catalog

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Person is an author or translator record.
type Person struct {
	Name      string `json:"name" yaml:"name"`
	BirthYear *int   `json:"birth_year" yaml:"birth_year,omitempty"`
	DeathYear *int   `json:"death_year" yaml:"death_year,omitempty"`
}

// Book is a catalog entry. Entries are never mutated after decoding.
type Book struct {
	ID            int               `json:"id" yaml:"id"`
	Title         string            `json:"title" yaml:"title"`
	Authors       []Person          `json:"authors" yaml:"authors"`
	Translators   []Person          `json:"translators" yaml:"translators,omitempty"`
	Subjects      []string          `json:"subjects" yaml:"subjects,omitempty"`
	Bookshelves   []string          `json:"bookshelves" yaml:"bookshelves,omitempty"`
	Languages     []string          `json:"languages" yaml:"languages"`
	Copyright     *bool             `json:"copyright" yaml:"copyright,omitempty"`
	MediaType     string            `json:"media_type" yaml:"media_type"`
	Formats       map[string]string `json:"formats" yaml:"formats,omitempty"`
	DownloadCount int               `json:"download_count" yaml:"download_count"`
	Summaries     []string          `json:"summaries,omitempty" yaml:"summaries,omitempty"`
}

// AuthorNames returns the author names in catalog order.
func (b Book) AuthorNames() []string {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		names = append(names, a.Name)
	}
	return names
}

// LeadAuthor returns the first listed author, or "" when there is none.
func (b Book) LeadAuthor() string {
	if len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0].Name
}

// SortMode orders search results.
type SortMode string

const (
	SortPopular    SortMode = "popular"
	SortAscending  SortMode = "ascending"
	SortDescending SortMode = "descending"
)

// Valid reports whether s is empty or one of the known modes.
func (s SortMode) Valid() bool {
	switch s {
	case "", SortPopular, SortAscending, SortDescending:
		return true
	}
	return false
}

// PageSize is the fixed page size of the remote catalog.
const PageSize = 32

// Query describes a catalog search. Zero fields are omitted from the request.
type Query struct {
	Text      string   `json:"text,omitempty"`
	Languages string   `json:"languages,omitempty"`
	Topic     string   `json:"topic,omitempty"`
	Sort      SortMode `json:"sort,omitempty"`
	Page      int      `json:"page,omitempty"`

	// Limit truncates the returned page. The remote API has no limit
	// parameter, so it is applied after decoding.
	Limit int `json:"limit,omitempty"`
}

// Values encodes the query as catalog URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if t := strings.TrimSpace(q.Text); t != "" {
		v.Set("search", t)
	}
	if q.Languages != "" {
		v.Set("languages", q.Languages)
	}
	if q.Topic != "" {
		v.Set("topic", q.Topic)
	}
	if q.Sort != "" {
		v.Set("sort", string(q.Sort))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

// SearchResult is one page of search results.
type SearchResult struct {
	Count    int     `json:"count" yaml:"count"`
	Next     *string `json:"next" yaml:"next,omitempty"`
	Previous *string `json:"previous" yaml:"previous,omitempty"`
	Books    []Book  `json:"results" yaml:"results"`
}

// Searcher runs catalog searches.
type Searcher interface {
	Search(ctx context.Context, q Query) (*SearchResult, error)
}

// Catalog is the full catalog surface.
type Catalog interface {
	Searcher
	FetchByID(ctx context.Context, id int) (*Book, error)
}
