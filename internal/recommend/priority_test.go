package recommend

import "testing"

func TestRank(t *testing.T) {
	t.Run("priority author first", func(t *testing.T) {
		in := []Recommendation{{"A", "Unknown Author"}, {"B", "Jane Austen"}}
		got := Rank(in)
		if got[0].Title != "B" || got[1].Title != "A" {
			t.Errorf("Rank() = %+v, want [B A]", got)
		}
		if in[0].Title != "A" {
			t.Error("Rank must not modify its input")
		}
	})

	t.Run("stable within partitions", func(t *testing.T) {
		in := []Recommendation{
			{"x1", "Nobody"},
			{"p1", "MARK TWAIN"},
			{"x2", "Someone Else"},
			{"p2", "Sir Arthur Conan Doyle"},
			{"p3", "Jane Austen"},
		}
		want := []string{"p1", "p2", "p3", "x1", "x2"}
		got := Rank(in)
		for i, w := range want {
			if got[i].Title != w {
				t.Fatalf("Rank() order = %+v, want %v", got, want)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := Rank(nil); len(got) != 0 {
			t.Errorf("Rank(nil) = %+v", got)
		}
	})
}

func TestIsPriorityAuthor(t *testing.T) {
	tests := map[string]bool{
		"jane austen":                  true,
		"Homer":                        true,
		"Plato (translated by Jowett)": true,
		"Austen":                       false,
		"":                             false,
	}
	for author, want := range tests {
		if got := IsPriorityAuthor(author); got != want {
			t.Errorf("IsPriorityAuthor(%q) = %v, want %v", author, got, want)
		}
	}
}
