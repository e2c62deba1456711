package recommend

import (
	"context"
	"testing"

	"github.com/jackzampolin/libra/internal/catalog"
)

func TestStrategies(t *testing.T) {
	tests := []struct {
		name          string
		build         func(title, author string) (queryText string, ok bool)
		title, author string
		want          string
		wantOK        bool
	}{
		{"title_author", textOf(byTitleAndAuthor), "Emma", "Jane Austen", "Emma Jane Austen", true},
		{"title_author no author", textOf(byTitleAndAuthor), "Emma", "", "Emma", true},
		{"title_author empty", textOf(byTitleAndAuthor), "", "", "", false},
		{"exact_title", textOf(byExactTitle), " Moby-Dick ", "x", `"Moby-Dick"`, true},
		{"exact_title empty", textOf(byExactTitle), "  ", "x", "", false},
		{"author_first_word", textOf(byAuthorAndFirstTitleWord), "Pride and Prejudice", "Jane Austen", `"Jane Austen" Pride`, true},
		{"author_first_word short word", textOf(byAuthorAndFirstTitleWord), "The Idiot", "Fyodor Dostoyevsky", "", false},
		{"author_first_word four runes", textOf(byAuthorAndFirstTitleWord), "Emma", "Jane Austen", `"Jane Austen" Emma`, true},
		{"author_first_word no author", textOf(byAuthorAndFirstTitleWord), "Pride and Prejudice", "", "", false},
		{"author_first_word diacritics", textOf(byAuthorAndFirstTitleWord), "Ion și Maria", "Liviu Rebreanu", "", false},
		{"partial_title", textOf(byPartialTitle), "The Count of Monte Cristo", "", "The Count of", true},
		{"partial_title short", textOf(byPartialTitle), "Ion", "", "", false},
		{"partial_title two words", textOf(byPartialTitle), "War and", "", "War and", true},
		{"author_last_name", textOf(byAuthorLastName), "x", "Herman Melville", "Melville", true},
		{"author_last_name short", textOf(byAuthorLastName), "x", "Pearl Buck Poe", "", false},
		{"author_last_name empty", textOf(byAuthorLastName), "x", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.build(tt.title, tt.author)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("query = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStrategies_LimitOne(t *testing.T) {
	for _, s := range DefaultStrategies {
		q, ok := s.Build("Adventures of Tom Sawyer", "Mark Twain")
		if !ok {
			t.Errorf("%s: did not apply", s.Name)
			continue
		}
		if q.Limit != 1 {
			t.Errorf("%s: Limit = %d, want 1", s.Name, q.Limit)
		}
	}

	// A leading article is too short for author_first_word; the rest still apply.
	for _, s := range DefaultStrategies {
		q, ok := s.Build("The Adventures of Tom Sawyer", "Mark Twain")
		if s.Name == "author_first_word" {
			if ok {
				t.Errorf("%s: applied to a leading article", s.Name)
			}
			continue
		}
		if !ok || q.Limit != 1 {
			t.Errorf("%s: ok = %v, Limit = %d", s.Name, ok, q.Limit)
		}
	}
}

func TestFirstHit(t *testing.T) {
	var tried []int
	v, item, ok := FirstHit(context.Background(), []int{1, 2, 3, 4}, func(_ context.Context, n int) (string, bool) {
		tried = append(tried, n)
		return "hit", n == 2
	})
	if !ok || v != "hit" || item != 2 {
		t.Fatalf("FirstHit() = %q, %d, %v", v, item, ok)
	}
	if len(tried) != 2 {
		t.Errorf("tried = %v, want [1 2]", tried)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, ok = FirstHit(ctx, []int{1}, func(context.Context, int) (string, bool) {
		t.Error("try called after cancel")
		return "", true
	})
	if ok {
		t.Error("FirstHit() succeeded after cancel")
	}
}

func textOf(build func(title, author string) (catalog.Query, bool)) func(string, string) (string, bool) {
	return func(title, author string) (string, bool) {
		q, ok := build(title, author)
		return q.Text, ok
	}
}
