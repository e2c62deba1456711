package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by FetchByID when the catalog reports failure.
	ErrNotFound = errors.New("catalog: book not found")

	// ErrInvalidQuery is returned before any request for malformed input.
	ErrInvalidQuery = errors.New("catalog: invalid query")
)

// NetworkError is a transport failure or non-success HTTP status.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int // 0 for transport failures
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog %s: %s: status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("catalog %s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// serverSide reports whether the failure counts against the circuit breaker.
func (e *NetworkError) serverSide() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == 429
}
