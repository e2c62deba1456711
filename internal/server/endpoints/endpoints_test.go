package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/libra/internal/api"
	"github.com/jackzampolin/libra/internal/catalog"
	"github.com/jackzampolin/libra/internal/credential"
	"github.com/jackzampolin/libra/internal/prompts"
	"github.com/jackzampolin/libra/internal/prompts/suggest"
	"github.com/jackzampolin/libra/internal/recommend"
	"github.com/jackzampolin/libra/internal/svcctx"
)

type fakeCatalog struct {
	mu      sync.Mutex
	books   map[int]catalog.Book
	results map[string][]catalog.Book
	err     error
	queries []catalog.Query
}

func (f *fakeCatalog) Search(_ context.Context, q catalog.Query) (*catalog.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	books := f.results[q.Text]
	if q.Limit > 0 && len(books) > q.Limit {
		books = books[:q.Limit]
	}
	return &catalog.SearchResult{Count: len(books), Books: books}, nil
}

func (f *fakeCatalog) FetchByID(_ context.Context, id int) (*catalog.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &b, nil
}

type fakeCompleter struct {
	text    string
	latency time.Duration
}

func (f *fakeCompleter) Available() bool { return true }

func (f *fakeCompleter) Complete(ctx context.Context, _ string) (string, error) {
	select {
	case <-time.After(f.latency):
		return f.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

var (
	emma  = catalog.Book{ID: 158, Title: "Emma", Authors: []catalog.Person{{Name: "Austen, Jane"}}}
	moby  = catalog.Book{ID: 2701, Title: "Moby Dick", Authors: []catalog.Person{{Name: "Melville, Herman"}}}
	pride = catalog.Book{
		ID:      1342,
		Title:   "Pride and Prejudice",
		Authors: []catalog.Person{{Name: "Austen, Jane"}},
		Formats: map[string]string{
			"image/jpeg":           "https://example.org/1342.jpg",
			"application/epub+zip": "https://example.org/1342.epub",
		},
	}
)

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		books: map[int]catalog.Book{emma.ID: emma, pride.ID: pride, moby.ID: moby},
		results: map[string][]catalog.Book{
			"Austen, Jane": {emma, pride},
			"adventure":    {moby},
			"whale":        {moby},
		},
	}
}

type testEnv struct {
	catalog *fakeCatalog
	creds   credential.Store
	preface recommend.Completer
	handler http.Handler
}

func newTestEnv(t *testing.T, opts ...func(*testEnv)) *testEnv {
	t.Helper()
	env := &testEnv{catalog: newFakeCatalog(), creds: credential.NewMemoryStore("")}
	for _, o := range opts {
		o(env)
	}

	resolver := prompts.NewResolver(nil)
	suggest.RegisterPrompts(resolver)
	svc := &svcctx.Services{
		Catalog: env.catalog,
		Recommender: recommend.NewService(recommend.Config{
			Catalog:        env.catalog,
			Preface:        env.preface,
			Prompts:        resolver,
			PrefaceTimeout: 20 * time.Millisecond,
		}),
		Credential: env.creds,
		Prompts:    resolver,
	}

	reg := api.NewRegistry()
	reg.Register(All()...)
	mux := http.NewServeMux()
	reg.RegisterRoutes(mux, func(h http.HandlerFunc) http.HandlerFunc { return h })
	env.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), svc)))
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, "GET", "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}

	rec := env.do(t, "GET", "/ready", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("/ready status = %d", rec.Code)
	}

	rec = env.do(t, "GET", "/status", nil)
	status := decode[StatusResponse](t, rec)
	if status.Server != "running" || status.Catalog.Breaker != "unknown" {
		t.Errorf("status = %+v", status)
	}
	if status.Features.CredentialConfigured || status.Features.Preface {
		t.Errorf("features = %+v, want none", status.Features)
	}
}

func TestReady_NotInitialized(t *testing.T) {
	rec := httptest.NewRecorder()
	(&ReadyEndpoint{}).handler(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newTestEnv(t).do(t, "GET", "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected default Go collector output")
	}
}

func TestSearchBooks(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		err      error
		wantCode int
		wantIDs  int
	}{
		{"ok", "/books?search=whale&sort=popular", nil, http.StatusOK, 1},
		{"no results", "/books?search=nothing", nil, http.StatusOK, 0},
		{"bad sort", "/books?sort=sideways", nil, http.StatusBadRequest, 0},
		{"bad page", "/books?page=zero", nil, http.StatusBadRequest, 0},
		{"catalog down", "/books?search=whale", errors.New("connection refused"), http.StatusBadGateway, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(e *testEnv) { e.catalog.err = tt.err })
			rec := env.do(t, "GET", tt.path, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body)
			}
			if rec.Code == http.StatusBadGateway {
				if e := decode[ErrorResponse](t, rec); strings.Contains(e.Error, "refused") {
					t.Errorf("error leaks upstream detail: %q", e.Error)
				}
				return
			}
			if rec.Code != http.StatusOK {
				return
			}
			res := decode[catalog.SearchResult](t, rec)
			if len(res.Books) != tt.wantIDs {
				t.Errorf("books = %d, want %d", len(res.Books), tt.wantIDs)
			}
		})
	}
}

func TestGetBook(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/books/1342", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[BookResponse](t, rec)
	if got.ID != 1342 || got.CoverURL != "https://example.org/1342.jpg" {
		t.Errorf("book = %+v", got)
	}
	if got.Downloads["EPUB"] != "https://example.org/1342.epub" {
		t.Errorf("downloads = %v", got.Downloads)
	}

	rec = env.do(t, "GET", "/books/158", nil)
	if got := decode[BookResponse](t, rec); !strings.HasPrefix(got.CoverURL, "data:image/svg+xml;base64,") {
		t.Errorf("cover = %q, want placeholder", got.CoverURL)
	}

	for path, want := range map[string]int{
		"/books/999": http.StatusNotFound,
		"/books/abc": http.StatusBadRequest,
		"/books/-1":  http.StatusBadRequest,
	} {
		if rec := env.do(t, "GET", path, nil); rec.Code != want {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, want)
		}
	}
}

func TestSimilarBooks(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/books/158/similar?count=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[SimilarResponse](t, rec)
	if len(resp.Books) != 1 || resp.Books[0].ID != pride.ID {
		t.Errorf("similar = %+v, want only Pride and Prejudice", resp.Books)
	}

	if rec := env.do(t, "GET", "/books/999/similar", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing book status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, "GET", "/books/158/similar?count=x", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad count status = %d, want 400", rec.Code)
	}
}

func TestCreateCollection(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/collections", CollectionRequest{Prompt: "aventura clasice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	coll := decode[recommend.Collection](t, rec)
	if !coll.Degraded || coll.Title != `Colecție de cărți pentru "aventura clasice"` {
		t.Errorf("collection = %+v", coll)
	}
	if len(coll.Books) != 1 || coll.Books[0].ID != moby.ID {
		t.Errorf("books = %+v", coll.Books)
	}

	rec = env.do(t, "POST", "/collections", CollectionRequest{Prompt: "   "})
	if coll := decode[recommend.Collection](t, rec); rec.Code != http.StatusOK || coll.Books == nil || len(coll.Books) != 0 {
		t.Errorf("empty prompt: status %d, collection %+v", rec.Code, coll)
	}

	if rec := env.do(t, "POST", "/collections", "{not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", rec.Code)
	}
}

func TestCurated(t *testing.T) {
	env := newTestEnv(t)
	resp := decode[CuratedResponse](t, env.do(t, "GET", "/collections/curated?n=3", nil))
	if len(resp.Prompts) != 3 {
		t.Errorf("prompts = %d, want 3", len(resp.Prompts))
	}
	all := decode[CuratedResponse](t, env.do(t, "GET", "/collections/curated", nil))
	if len(all.Prompts) != len(recommend.CuratedPrompts) {
		t.Errorf("prompts = %d, want all %d", len(all.Prompts), len(recommend.CuratedPrompts))
	}
}

func TestPreface(t *testing.T) {
	tests := []struct {
		name     string
		preface  recommend.Completer
		path     string
		wantCode int
	}{
		{"unavailable", nil, "/books/158/preface", http.StatusServiceUnavailable},
		{"ok", &fakeCompleter{text: "O prefață."}, "/books/158/preface", http.StatusOK},
		{"missing book", &fakeCompleter{text: "x"}, "/books/999/preface", http.StatusNotFound},
		{"timeout", &fakeCompleter{text: "x", latency: time.Second}, "/books/158/preface", http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(e *testEnv) { e.preface = tt.preface })
			rec := env.do(t, "GET", tt.path, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body)
			}
			if rec.Code == http.StatusOK {
				if resp := decode[PrefaceResponse](t, rec); resp.Preface != "O prefață." {
					t.Errorf("preface = %q", resp.Preface)
				}
			}
		})
	}
}

// revokedCompleter reports a key on the first check only, as if the key
// was cleared while the request was in flight.
type revokedCompleter struct {
	checks atomic.Int32
}

func (c *revokedCompleter) Available() bool { return c.checks.Add(1) == 1 }

func (c *revokedCompleter) Complete(context.Context, string) (string, error) {
	return "", errors.New("called without a key")
}

func TestPreface_KeyClearedMidRequest(t *testing.T) {
	env := newTestEnv(t, func(e *testEnv) { e.preface = &revokedCompleter{} })
	rec := env.do(t, "GET", "/books/158/preface", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 (%s)", rec.Code, rec.Body)
	}
}

func TestCredentialEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if got := decode[CredentialStatus](t, env.do(t, "GET", "/credential", nil)); got.Configured {
		t.Fatal("configured before set")
	}

	rec := env.do(t, "PUT", "/credential", SetCredentialRequest{APIKey: "pplx-123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "pplx-123") {
		t.Error("response echoes the key")
	}
	if env.creds.Get() != "pplx-123" {
		t.Errorf("stored key = %q", env.creds.Get())
	}

	if rec := env.do(t, "PUT", "/credential", SetCredentialRequest{APIKey: " "}); rec.Code != http.StatusBadRequest {
		t.Errorf("blank key status = %d, want 400", rec.Code)
	}

	rec = env.do(t, "DELETE", "/credential", nil)
	if got := decode[CredentialStatus](t, rec); rec.Code != http.StatusOK || got.Configured {
		t.Errorf("DELETE: status %d, configured %v", rec.Code, got.Configured)
	}
}

func TestCredential_ReadOnly(t *testing.T) {
	env := newTestEnv(t, func(e *testEnv) { e.creds = credential.Static("from-config") })
	rec := env.do(t, "PUT", "/credential", SetCredentialRequest{APIKey: "new"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestListPrompts(t *testing.T) {
	resp := decode[PromptsListResponse](t, newTestEnv(t).do(t, "GET", "/prompts", nil))
	keys := make([]string, 0, len(resp.Prompts))
	for _, p := range resp.Prompts {
		keys = append(keys, p.Key)
	}
	want := []string{suggest.CollectionKey, suggest.PrefaceKey, suggest.SimilarKey}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestAll_RoutesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, ep := range All() {
		method, path, _ := ep.Route()
		key := method + " " + path
		if seen[key] {
			t.Errorf("duplicate route %s", key)
		}
		seen[key] = true
		if ep.Command(func() string { return "" }) == nil {
			t.Errorf("%s has no command", key)
		}
	}
}
