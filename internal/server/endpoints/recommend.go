package endpoints

import (
	"encoding/json"
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
	"github.com/jackzampolin/libra/internal/recommend"
	"github.com/jackzampolin/libra/internal/svcctx"
)

// SimilarResponse lists books similar to a catalog book.
type SimilarResponse struct {
	BookID int            `json:"book_id" yaml:"book_id"`
	Books  []catalog.Book `json:"books" yaml:"books"`
}

// SimilarBooksEndpoint handles GET /books/{id}/similar.
type SimilarBooksEndpoint struct{}

func (e *SimilarBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/books/{id}/similar", e.handler
}

func (e *SimilarBooksEndpoint) RequiresInit() bool { return true }

func (e *SimilarBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	count, err := parseCount(r, "count")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	book, ok := fetchBook(w, r)
	if !ok {
		return
	}
	books := svcctx.RecommenderFrom(r.Context()).SimilarTo(r.Context(), *book, count)
	writeJSON(w, http.StatusOK, SimilarResponse{BookID: book.ID, Books: books})
}

func (e *SimilarBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "similar <id>",
		Short: "Recommend books similar to a catalog book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params url.Values
			if count > 0 {
				params = url.Values{"count": {strconv.Itoa(count)}}
			}
			client := api.NewClient(getServerURL())
			var resp SimilarResponse
			if err := client.Get(cmd.Context(), "/books/"+args[0]+"/similar", params, &resp); err != nil {
				return err
			}
			return api.Output(resp, func(w io.Writer) { printBooks(w, resp.Books) })
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "Number of recommendations (server default when 0)")
	return cmd
}

// PrefaceResponse carries a generated preface.
type PrefaceResponse struct {
	BookID  int    `json:"book_id" yaml:"book_id"`
	Preface string `json:"preface" yaml:"preface"`
}

// PrefaceEndpoint handles GET /books/{id}/preface.
type PrefaceEndpoint struct{}

func (e *PrefaceEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/books/{id}/preface", e.handler
}

func (e *PrefaceEndpoint) RequiresInit() bool { return true }

func (e *PrefaceEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rec := svcctx.RecommenderFrom(r.Context())
	if !rec.PrefaceAvailable() {
		writeError(w, http.StatusServiceUnavailable, recommend.ErrPrefaceUnavailable.Error())
		return
	}
	book, ok := fetchBook(w, r)
	if !ok {
		return
	}

	text, err := rec.Preface(r.Context(), *book)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, PrefaceResponse{BookID: book.ID, Preface: text})
	case errors.Is(err, recommend.ErrPrefaceUnavailable):
		// The key was cleared after the check above.
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, recommend.ErrPrefaceTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		svcctx.LoggerFrom(r.Context()).Error("preface generation failed", "book_id", book.ID, "error", err)
		writeError(w, http.StatusBadGateway, "preface generation failed")
	}
}

func (e *PrefaceEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "preface <id>",
		Short: "Generate a Romanian preface for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PrefaceResponse
			if err := client.Get(cmd.Context(), "/books/"+args[0]+"/preface", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp, func(w io.Writer) { fmt.Fprintln(w, resp.Preface) })
		},
	}
}

// CollectionRequest is the body of POST /collections.
type CollectionRequest struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count,omitempty"`
}

// CreateCollectionEndpoint handles POST /collections.
type CreateCollectionEndpoint struct{}

func (e *CreateCollectionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/collections", e.handler
}

func (e *CreateCollectionEndpoint) RequiresInit() bool { return true }

func (e *CreateCollectionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CollectionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Count < 0 {
		writeError(w, http.StatusBadRequest, "count must be non-negative")
		return
	}
	coll := svcctx.RecommenderFrom(r.Context()).PersonalizedCollection(r.Context(), req.Prompt, req.Count)
	writeJSON(w, http.StatusOK, coll)
}

func (e *CreateCollectionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "create <prompt...>",
		Short: "Build a personalized collection from a free-text request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var coll recommend.Collection
			req := CollectionRequest{Prompt: strings.Join(args, " "), Count: count}
			if err := client.Post(cmd.Context(), "/collections", req, &coll); err != nil {
				return err
			}
			return api.Output(coll, func(w io.Writer) {
				fmt.Fprintln(w, coll.Title)
				if coll.Degraded {
					fmt.Fprintln(w, "(direct catalog search)")
				}
				printBooks(w, coll.Books)
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "Number of books requested (server default when 0)")
	return cmd
}

// CuratedResponse lists landing-page collection prompts.
type CuratedResponse struct {
	Prompts []recommend.CuratedPrompt `json:"prompts" yaml:"prompts"`
}

// CuratedEndpoint handles GET /collections/curated.
type CuratedEndpoint struct{}

func (e *CuratedEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/collections/curated", e.handler
}

func (e *CuratedEndpoint) RequiresInit() bool { return true }

func (e *CuratedEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	n, err := parseCount(r, "n")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CuratedResponse{Prompts: svcctx.RecommenderFrom(r.Context()).Curated(n)})
}

func (e *CuratedEndpoint) Command(getServerURL func() string) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "curated",
		Short: "Sample curated collection prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var params url.Values
			if n > 0 {
				params = url.Values{"n": {strconv.Itoa(n)}}
			}
			client := api.NewClient(getServerURL())
			var resp CuratedResponse
			if err := client.Get(cmd.Context(), "/collections/curated", params, &resp); err != nil {
				return err
			}
			return api.Output(resp, func(w io.Writer) {
				for _, p := range resp.Prompts {
					fmt.Fprintf(w, "%s\n  %s\n", p.Title, p.Prompt)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&n, "number", "n", 0, "Number of prompts (all when 0)")
	return cmd
}
