package recommend

import "testing"

func TestParseList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Recommendation
	}{
		{
			name: "bare array",
			raw:  `[{"title":"Emma","author":"Jane Austen"}]`,
			want: []Recommendation{{"Emma", "Jane Austen"}},
		},
		{
			name: "prose around array",
			raw: "Sure! Here are some books:\n" +
				`[{"title": "Moby-Dick", "author": "Herman Melville"}, {"title": "Typee", "author": "Herman Melville"}]` +
				"\nEnjoy!",
			want: []Recommendation{{"Moby-Dick", "Herman Melville"}, {"Typee", "Herman Melville"}},
		},
		{
			name: "code fence",
			raw:  "```json\n[{\"title\":\"Dracula\",\"author\":\"Bram Stoker\"}]\n```",
			want: []Recommendation{{"Dracula", "Bram Stoker"}},
		},
		{
			name: "drops items without a title and trims fields",
			raw:  `[{"title":"  Walden ","author":" Henry David Thoreau "},{"author":"Nobody"},{"title":42,"author":"x"}]`,
			want: []Recommendation{{"Walden", "Henry David Thoreau"}},
		},
		{
			name: "missing author kept as empty",
			raw:  `[{"title":"Beowulf"}]`,
			want: []Recommendation{{"Beowulf", ""}},
		},
		{name: "no array", raw: "I cannot help with that."},
		{name: "malformed json", raw: `[{"title": "Emma", "author": }]`},
		{name: "array of strings", raw: `["Emma", "Persuasion"]`},
		{name: "empty", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseList(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseList() = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("item %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseCollection(t *testing.T) {
	t.Run("prose prefix", func(t *testing.T) {
		raw := `Here you go: {"title":"Aventuri Clasice","books":[{"title":"Treasure Island","author":"Robert Louis Stevenson"},{"title":"Moby-Dick","author":"Herman Melville"}]}`
		got := ParseCollection(raw)
		if !got.OK() {
			t.Fatal("expected a parsed collection")
		}
		if got.Title != "Aventuri Clasice" {
			t.Errorf("Title = %q", got.Title)
		}
		if len(got.Books) != 2 || got.Books[0].Title != "Treasure Island" || got.Books[1].Author != "Herman Melville" {
			t.Errorf("Books = %+v", got.Books)
		}
	})

	t.Run("missing title still parses", func(t *testing.T) {
		got := ParseCollection(`{"books":[{"title":"Emma","author":"Jane Austen"}]}`)
		if !got.OK() || got.Title != "" {
			t.Errorf("got %+v", got)
		}
	})

	failures := map[string]string{
		"no object":       "no json here",
		"no books key":    `{"title":"Nothing"}`,
		"books not array": `{"title":"X","books":"Emma"}`,
		"empty books":     `{"title":"X","books":[]}`,
		"broken json":     `{"title":"X","books":[{"title":"Emma"}`,
	}
	for name, raw := range failures {
		t.Run(name, func(t *testing.T) {
			got := ParseCollection(raw)
			if got.OK() || got.Title != "" {
				t.Errorf("expected zero value, got %+v", got)
			}
		})
	}
}
