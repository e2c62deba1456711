package recommend

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Model output is not a strict contract: models wrap JSON in prose or code
// fences despite instructions, so extraction is greedy and failures are soft.
var (
	listPattern   = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

const listSchemaJSON = `{
  "type": "array",
  "items": {"type": "object"}
}`

const collectionSchemaJSON = `{
  "type": "object",
  "required": ["books"],
  "properties": {
    "title": {"type": "string"},
    "books": {"type": "array", "items": {"type": "object"}}
  }
}`

var (
	listSchema       = mustCompileSchema("list.json", listSchemaJSON)
	collectionSchema = mustCompileSchema("collection.json", collectionSchemaJSON)
)

func mustCompileSchema(name, doc string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(doc)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

// ParseList extracts a list of recommendations from model output.
// It returns nil when nothing usable is found.
func ParseList(raw string) []Recommendation {
	var items []rawRecommendation
	if !decodeFirst(raw, listPattern, listSchema, &items) {
		return nil
	}
	return normalize(items)
}

// ParseCollection extracts a titled collection from model output.
// It returns the zero value when nothing usable is found.
func ParseCollection(raw string) ParsedCollection {
	var doc struct {
		Title string              `json:"title"`
		Books []rawRecommendation `json:"books"`
	}
	if !decodeFirst(raw, objectPattern, collectionSchema, &doc) {
		return ParsedCollection{}
	}
	books := normalize(doc.Books)
	if len(books) == 0 {
		return ParsedCollection{}
	}
	return ParsedCollection{Title: strings.TrimSpace(doc.Title), Books: books}
}

// rawRecommendation tolerates non-string fields; they normalize to "".
type rawRecommendation struct {
	Title  any `json:"title"`
	Author any `json:"author"`
}

func normalize(items []rawRecommendation) []Recommendation {
	out := make([]Recommendation, 0, len(items))
	for _, it := range items {
		title := asString(it.Title)
		if title == "" {
			continue
		}
		out = append(out, Recommendation{Title: title, Author: asString(it.Author)})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// decodeFirst tries each extraction candidate in turn and decodes the first
// one that parses and validates into target.
func decodeFirst(raw string, pattern *regexp.Regexp, schema *jsonschema.Schema, target any) bool {
	for _, candidate := range candidates(raw, pattern) {
		var doc any
		if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
			continue
		}
		if err := schema.Validate(doc); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), target); err != nil {
			continue
		}
		return true
	}
	return false
}

func candidates(raw string, pattern *regexp.Regexp) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	if m := pattern.FindString(raw); m != "" {
		out = append(out, m)
	}
	if stripped := stripCodeFences(raw); stripped != "" {
		out = append(out, stripped)
	}
	return append(out, raw)
}

func stripCodeFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
