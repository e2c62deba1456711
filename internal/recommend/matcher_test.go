package recommend

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackzampolin/libra/internal/catalog"
)

func idsOf(books []catalog.Book) []int {
	out := make([]int, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func TestMatcher_Resolve_Dedup(t *testing.T) {
	fake := newFakeCatalog().
		on("Emma Jane Austen", book(1, "Emma", "Jane Austen")).
		on("Emma (again) Jane Austen", book(1, "Emma", "Jane Austen")).
		on("Walden Henry Thoreau", book(2, "Walden", "Henry Thoreau"))

	recs := []Recommendation{
		{"Emma", "Jane Austen"},
		{"Emma (again)", "Jane Austen"},
		{"Walden", "Henry Thoreau"},
	}
	opts := fastOptions()
	opts.Categories = []string{}

	got := NewMatcher(fake, nil).Resolve(context.Background(), recs, opts)
	ids := idsOf(got)
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("Resolve() ids = %v, want [1 2]", ids)
	}
}

func TestMatcher_Resolve_CascadeOrder(t *testing.T) {
	fake := newFakeCatalog().on("Moby-Dick Herman Melville", book(2, "Moby-Dick", "Herman Melville"))

	opts := fastOptions()
	opts.MinAcceptable = 1
	got := NewMatcher(fake, nil).Resolve(context.Background(), []Recommendation{{"Moby-Dick", "Herman Melville"}}, opts)

	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("Resolve() = %v, want [2]", idsOf(got))
	}
	if n := fake.calls(); n != 1 {
		t.Errorf("search calls = %d (%v), want 1", n, fake.texts())
	}
}

func TestCascade_FallsThrough(t *testing.T) {
	fake := newFakeCatalog().on("Verne", book(7, "Around the World in Eighty Days", "Jules Verne"))

	r := Cascade(context.Background(), fake, DefaultStrategies, Recommendation{"Around the World", "Jules Verne"}, time.Second)
	b, ok := r.Book()
	if !ok || b.ID != 7 {
		t.Fatalf("Cascade() = %+v, want book 7", r)
	}
	if r.Strategy() != "author_last_name" {
		t.Errorf("Strategy() = %q, want author_last_name", r.Strategy())
	}
	want := []string{
		"Around the World Jules Verne",
		`"Around the World"`,
		`"Jules Verne" Around`,
		"Around the World",
		"Verne",
	}
	got := fake.texts()
	if len(got) != len(want) {
		t.Fatalf("queries = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("query[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCascade_ErrorsAreMisses(t *testing.T) {
	fake := newFakeCatalog().
		fail("Dracula Bram Stoker", errBoom).
		on(`"Dracula"`, book(345, "Dracula", "Bram Stoker"))

	r := Cascade(context.Background(), fake, DefaultStrategies, Recommendation{"Dracula", "Bram Stoker"}, time.Second)
	if b, ok := r.Book(); !ok || b.ID != 345 {
		t.Fatalf("Cascade() = %+v, want book 345", r)
	}
	if r.Strategy() != "exact_title" {
		t.Errorf("Strategy() = %q, want exact_title", r.Strategy())
	}
}

func TestCascade_NoMatch(t *testing.T) {
	fake := newFakeCatalog()
	rec := Recommendation{"Nothing Here", "No One"}
	r := Cascade(context.Background(), fake, DefaultStrategies, rec, time.Second)
	if _, ok := r.Book(); ok {
		t.Fatal("expected unresolved")
	}
	if got, ok := r.Recommendation(); !ok || got != rec {
		t.Errorf("Recommendation() = %+v, %v", got, ok)
	}
}

func TestMatcher_Resolve_ThresholdShortCircuit(t *testing.T) {
	fake := newFakeCatalog()
	var recs []Recommendation
	for i := 1; i <= 20; i++ {
		title, author := fmt.Sprintf("Title %d", i), fmt.Sprintf("Author %d", i)
		fake.on(title+" "+author, book(i, title, author))
		recs = append(recs, Recommendation{title, author})
	}

	opts := fastOptions()
	got := NewMatcher(fake, nil).Resolve(context.Background(), recs, opts)

	if len(got) != opts.Sufficient {
		t.Errorf("resolved %d, want %d", len(got), opts.Sufficient)
	}
	batches := (opts.Sufficient + opts.BatchSize - 1) / opts.BatchSize
	if limit := batches * opts.BatchSize; fake.calls() > limit {
		t.Errorf("search calls = %d, want <= %d", fake.calls(), limit)
	}
}

func TestMatcher_Resolve_MaxCandidates(t *testing.T) {
	fake := newFakeCatalog()
	var recs []Recommendation
	for i := 1; i <= 30; i++ {
		recs = append(recs, Recommendation{fmt.Sprintf("T%d", i), ""})
	}
	opts := fastOptions()
	opts.Categories = []string{}
	opts.Strategies = DefaultStrategies[:1]

	NewMatcher(fake, nil).Resolve(context.Background(), recs, opts)
	if fake.calls() != opts.MaxCandidates {
		t.Errorf("search calls = %d, want %d", fake.calls(), opts.MaxCandidates)
	}
}

func TestMatcher_Resolve_CategoryFallback(t *testing.T) {
	fake := newFakeCatalog().
		on("Emma Jane Austen", book(1, "Emma", "Jane Austen")).
		on("fiction", book(1, "Emma", "Jane Austen"), book(10, "F1", "x"), book(11, "F2", "x")).
		on("classic", book(12, "C1", "x"), book(13, "C2", "x"), book(14, "C3", "x"), book(15, "C4", "x"), book(16, "C5", "x"), book(17, "C6", "x")).
		on("adventure", book(18, "A1", "x"), book(19, "A2", "x")).
		on("romance", book(20, "R1", "x"))

	opts := fastOptions()
	got := NewMatcher(fake, nil).Resolve(context.Background(), []Recommendation{{"Emma", "Jane Austen"}}, opts)

	ids := idsOf(got)
	want := []int{1, 10, 11, 12, 13, 14, 15, 16, 18, 19}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
	if fake.callsFor("romance") != 0 {
		t.Error("fallback continued past the sufficiency threshold")
	}
	for _, q := range fake.queries {
		if q.Text == "classic" && (q.Sort != catalog.SortPopular || q.Limit != opts.CategoryLimit) {
			t.Errorf("category query = %+v", q)
		}
	}
}

func TestMatcher_Resolve_FallbackSkipsFailingCategory(t *testing.T) {
	fake := newFakeCatalog().
		fail("fiction", errBoom).
		on("classic", book(12, "C1", "x"))

	opts := fastOptions()
	got := NewMatcher(fake, nil).Resolve(context.Background(), nil, opts)
	if ids := idsOf(got); len(ids) != 1 || ids[0] != 12 {
		t.Errorf("ids = %v, want [12]", ids)
	}
	if fake.callsFor("philosophy") != 1 {
		t.Error("expected every category to be tried")
	}
}

func TestMatcher_Resolve_EmptyNeverNil(t *testing.T) {
	opts := fastOptions()
	opts.Categories = []string{}
	got := NewMatcher(newFakeCatalog(), nil).Resolve(context.Background(), nil, opts)
	if got == nil {
		t.Fatal("Resolve() returned nil")
	}
}

func TestMatcher_ResolveEach_Concurrency(t *testing.T) {
	fake := newFakeCatalog()
	fake.latency = 5 * time.Millisecond
	var recs []Recommendation
	for i := 0; i < 12; i++ {
		recs = append(recs, Recommendation{fmt.Sprintf("Missing %d", i), ""})
	}
	opts := fastOptions()
	opts.BatchSize = 3
	opts.Strategies = DefaultStrategies[:1]

	out := NewMatcher(fake, nil).ResolveEach(context.Background(), recs, opts)
	if len(out) != len(recs) {
		t.Fatalf("ResolveEach() returned %d outcomes, want %d", len(out), len(recs))
	}
	if fake.maxInFlight > opts.BatchSize {
		t.Errorf("max in flight = %d, want <= %d", fake.maxInFlight, opts.BatchSize)
	}
	for i, r := range out {
		rec, ok := r.Recommendation()
		if !ok || rec != recs[i] {
			t.Errorf("outcome[%d] = %+v, want unresolved %+v", i, r, recs[i])
		}
	}
}

func TestMatcher_Resolve_Cancelled(t *testing.T) {
	fake := newFakeCatalog()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var recs []Recommendation
	for i := 0; i < 10; i++ {
		recs = append(recs, Recommendation{fmt.Sprintf("T%d", i), "Someone"})
	}
	got := NewMatcher(fake, nil).Resolve(ctx, recs, fastOptions())
	if len(got) != 0 {
		t.Errorf("Resolve() = %v, want empty", idsOf(got))
	}
	if fake.calls() != 0 {
		t.Errorf("search calls = %d after cancel, want 0", fake.calls())
	}
}

func TestPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if pause(ctx, time.Hour) {
		t.Error("pause() continued after cancel")
	}
	if !pause(context.Background(), time.Nanosecond) {
		t.Error("pause() stopped without cancel")
	}
}
