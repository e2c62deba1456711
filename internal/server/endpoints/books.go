package endpoints

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/libra/internal/api"
	"github.com/jackzampolin/libra/internal/catalog"
	"github.com/jackzampolin/libra/internal/svcctx"
)

// BookResponse is a catalog book plus display fields.
type BookResponse struct {
	catalog.Book `yaml:",inline"`
	CoverURL     string            `json:"cover_url" yaml:"cover_url"`
	Downloads    map[string]string `json:"downloads" yaml:"downloads"`
}

func newBookResponse(b catalog.Book) BookResponse {
	return BookResponse{
		Book:      b,
		CoverURL:  catalog.CoverOrPlaceholder(b),
		Downloads: catalog.DownloadFormats(b),
	}
}

// SearchBooksEndpoint handles GET /books.
type SearchBooksEndpoint struct{}

func (e *SearchBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/books", e.handler
}

func (e *SearchBooksEndpoint) RequiresInit() bool { return true }

func (e *SearchBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := catalog.Query{
		Text:      q.Get("search"),
		Languages: q.Get("languages"),
		Topic:     q.Get("topic"),
		Sort:      catalog.SortMode(q.Get("sort")),
	}
	if p := q.Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		query.Page = page
	}
	if !query.Sort.Valid() {
		writeError(w, http.StatusBadRequest, "sort must be popular, ascending or descending")
		return
	}

	res, err := svcctx.CatalogFrom(r.Context()).Search(r.Context(), query)
	if err != nil {
		svcctx.LoggerFrom(r.Context()).Warn("catalog search failed", "error", err)
		writeError(w, http.StatusBadGateway, "catalog search failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (e *SearchBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	var topic, languages, sort string
	var page int
	cmd := &cobra.Command{
		Use:   "search [text...]",
		Short: "Search the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if text := strings.Join(args, " "); text != "" {
				params.Set("search", text)
			}
			if topic != "" {
				params.Set("topic", topic)
			}
			if languages != "" {
				params.Set("languages", languages)
			}
			if sort != "" {
				params.Set("sort", sort)
			}
			if page > 0 {
				params.Set("page", strconv.Itoa(page))
			}
			client := api.NewClient(getServerURL())
			var res catalog.SearchResult
			if err := client.Get(cmd.Context(), "/books", params, &res); err != nil {
				return err
			}
			return api.Output(res, func(w io.Writer) {
				fmt.Fprintf(w, "%d results\n", res.Count)
				printBooks(w, res.Books)
			})
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "Filter by subject or bookshelf")
	cmd.Flags().StringVar(&languages, "languages", "", "Comma-separated language codes")
	cmd.Flags().StringVar(&sort, "sort", "", "popular, ascending or descending")
	cmd.Flags().IntVar(&page, "page", 0, "Result page (1-based)")
	return cmd
}

// GetBookEndpoint handles GET /books/{id}.
type GetBookEndpoint struct{}

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/books/{id}", e.handler
}

func (e *GetBookEndpoint) RequiresInit() bool { return true }

func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	book, ok := fetchBook(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newBookResponse(*book))
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a book by catalog ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var book BookResponse
			if err := client.Get(cmd.Context(), "/books/"+args[0], nil, &book); err != nil {
				return err
			}
			return api.Output(book, func(w io.Writer) {
				printBooks(w, []catalog.Book{book.Book})
				for name, u := range book.Downloads {
					fmt.Fprintf(w, "  %-20s %s\n", name, u)
				}
			})
		},
	}
}

// fetchBook resolves the {id} path value, writing the error response and
// returning false when the book cannot be loaded.
func fetchBook(w http.ResponseWriter, r *http.Request) (*catalog.Book, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "book id must be a positive integer")
		return nil, false
	}

	book, err := svcctx.CatalogFrom(r.Context()).FetchByID(r.Context(), id)
	switch {
	case err == nil:
		return book, true
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "book not found")
	case errors.Is(err, catalog.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		svcctx.LoggerFrom(r.Context()).Warn("catalog fetch failed", "book_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "catalog lookup failed")
	}
	return nil, false
}

// parseCount reads a positive integer query parameter. Missing means 0.
func parseCount(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func printBooks(w io.Writer, books []catalog.Book) {
	for _, b := range books {
		fmt.Fprintf(w, "%6d  %s", b.ID, b.Title)
		if a := b.LeadAuthor(); a != "" {
			fmt.Fprintf(w, " (%s)", a)
		}
		fmt.Fprintln(w)
	}
}
