package recommend

import (
	"strings"
	"unicode/utf8"
)

// searchTerm maps a Romanian keyword to an English catalog query.
type searchTerm struct {
	ro, en string
}

// romanianTerms is checked in order; the first keyword found wins.
var romanianTerms = []searchTerm{
	{"filosofie", "philosophy"},
	{"dragoste", "romance love"},
	{"aventura", "adventure"},
	{"clasice", "classic"},
	{"importante", "famous"},
	{"romane", "novels"},
	{"poezii", "poetry"},
	{"povesti", "stories"},
	{"science", "science"},
	{"stiinta", "science"},
	{"fictiune", "fiction"},
	{"carti", "books"},
	{"literatura", "literature"},
	{"victoriana", "victorian"},
	{"rusă", "russian"},
	{"rusa", "russian"},
	{"mitologie", "mythology"},
	{"groază", "horror"},
	{"groaza", "horror"},
	{"detective", "detective"},
	{"politiste", "mystery"},
}

// TranslateSearchTerms replaces terms with the English query for the first
// Romanian keyword it contains. Terms without a known keyword are returned
// unchanged.
func TranslateSearchTerms(terms string) string {
	lower := strings.ToLower(terms)
	for _, t := range romanianTerms {
		if strings.Contains(lower, t.ro) {
			return t.en
		}
	}
	return terms
}

// keywords returns up to max words longer than minWordLen, in prompt order.
func keywords(prompt string, max int) []string {
	var out []string
	for _, w := range strings.Fields(prompt) {
		if utf8.RuneCountInString(w) <= minWordLen {
			continue
		}
		out = append(out, w)
		if len(out) == max {
			break
		}
	}
	return out
}
