package recommend

import "strings"

// PriorityAuthors are authors well represented in the public-domain catalog.
// Recommendations by them are resolved first.
var PriorityAuthors = []string{
	"Jane Austen", "Charles Dickens", "Mark Twain", "Fyodor Dostoyevsky",
	"Leo Tolstoy", "Victor Hugo", "Herman Melville", "Oscar Wilde",
	"William Shakespeare", "Jules Verne", "H.G. Wells", "Edgar Allan Poe",
	"Lewis Carroll", "Mary Shelley", "Bram Stoker", "Homer", "Plato",
	"Aristotle", "Alexandre Dumas", "Arthur Conan Doyle", "Brothers Grimm",
	"Hans Christian Andersen", "Jack London", "Rudyard Kipling", "Louisa May Alcott",
	"Nathaniel Hawthorne", "Henry James", "Kate Chopin", "Franz Kafka",
}

var priorityLower = func() []string {
	out := make([]string, len(PriorityAuthors))
	for i, a := range PriorityAuthors {
		out[i] = strings.ToLower(a)
	}
	return out
}()

// IsPriorityAuthor reports whether author contains a priority name,
// case-insensitively.
func IsPriorityAuthor(author string) bool {
	a := strings.ToLower(author)
	for _, p := range priorityLower {
		if strings.Contains(a, p) {
			return true
		}
	}
	return false
}

// Rank returns a copy of recs with priority-author recommendations first.
// Order within each group is preserved.
func Rank(recs []Recommendation) []Recommendation {
	out := make([]Recommendation, 0, len(recs))
	var rest []Recommendation
	for _, r := range recs {
		if IsPriorityAuthor(r.Author) {
			out = append(out, r)
		} else {
			rest = append(rest, r)
		}
	}
	return append(out, rest...)
}
