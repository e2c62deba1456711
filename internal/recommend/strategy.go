package recommend

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackzampolin/libra/internal/catalog"
)

// Strategy builds a catalog query for a title/author pair. Build returns
// false when the strategy does not apply to the pair.
type Strategy struct {
	Name  string
	Build func(title, author string) (catalog.Query, bool)
}

// DefaultStrategies are tried in order of decreasing precision.
var DefaultStrategies = []Strategy{
	{Name: "title_author", Build: byTitleAndAuthor},
	{Name: "exact_title", Build: byExactTitle},
	{Name: "author_first_word", Build: byAuthorAndFirstTitleWord},
	{Name: "partial_title", Build: byPartialTitle},
	{Name: "author_last_name", Build: byAuthorLastName},
}

// minWordLen is the length a word must exceed to be used as a search term.
// It skips articles like "The" and short surnames that match too broadly.
const minWordLen = 3

func byTitleAndAuthor(title, author string) (catalog.Query, bool) {
	text := strings.TrimSpace(title + " " + author)
	return lookup(text), text != ""
}

func byExactTitle(title, _ string) (catalog.Query, bool) {
	title = strings.TrimSpace(title)
	return lookup(`"` + title + `"`), title != ""
}

func byAuthorAndFirstTitleWord(title, author string) (catalog.Query, bool) {
	words := strings.Fields(title)
	author = strings.TrimSpace(author)
	if len(words) == 0 || author == "" || utf8.RuneCountInString(words[0]) <= minWordLen {
		return catalog.Query{}, false
	}
	return lookup(`"` + author + `" ` + words[0]), true
}

func byPartialTitle(title, _ string) (catalog.Query, bool) {
	words := strings.Fields(title)
	if len(words) > 3 {
		words = words[:3]
	}
	text := strings.Join(words, " ")
	if utf8.RuneCountInString(text) <= minWordLen {
		return catalog.Query{}, false
	}
	return lookup(text), true
}

func byAuthorLastName(_, author string) (catalog.Query, bool) {
	words := strings.Fields(author)
	if len(words) == 0 {
		return catalog.Query{}, false
	}
	last := words[len(words)-1]
	if utf8.RuneCountInString(last) <= minWordLen {
		return catalog.Query{}, false
	}
	return lookup(last), true
}

func lookup(text string) catalog.Query {
	return catalog.Query{Text: text, Limit: 1}
}

// FirstHit applies try to each item in order and returns the first value
// produced, along with the item that produced it. It stops early when ctx
// is done.
func FirstHit[S, T any](ctx context.Context, items []S, try func(context.Context, S) (T, bool)) (T, S, bool) {
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}
		if v, ok := try(ctx, it); ok {
			return v, it, true
		}
	}
	var zeroT T
	var zeroS S
	return zeroT, zeroS, false
}

// Cascade resolves one recommendation by running strategies until one
// returns a catalog entry. Search errors count as misses. Each search runs
// under its own timeout when timeout > 0.
func Cascade(ctx context.Context, s catalog.Searcher, strategies []Strategy, rec Recommendation, timeout time.Duration) ResolvedBook {
	book, st, ok := FirstHit(ctx, strategies, func(ctx context.Context, st Strategy) (catalog.Book, bool) {
		q, applies := st.Build(rec.Title, rec.Author)
		if !applies {
			return catalog.Book{}, false
		}
		return searchFirst(ctx, s, q, timeout)
	})
	if !ok {
		return Unresolved(rec)
	}
	return Resolved(book, st.Name)
}

// searchFirst returns the first result of q, treating errors as no result.
func searchFirst(ctx context.Context, s catalog.Searcher, q catalog.Query, timeout time.Duration) (catalog.Book, bool) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := s.Search(ctx, q)
	if err != nil || res == nil || len(res.Books) == 0 {
		return catalog.Book{}, false
	}
	return res.Books[0], true
}
