package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-catalogue/parser"
)

// ErrNoCategories means the root page listed nothing to harvest.
var ErrNoCategories = errors.New("no categories to harvest")

// FetchError reports a page that could not be retrieved. Err holds the
// classified cause (ErrTimeout, ErrNotFound, ...).
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e FetchError) Unwrap() error {
	return e.Err
}

// PaginationLoopError stops a listing traversal that revisits a page or runs
// past the page limit.
type PaginationLoopError struct {
	EntryURL string
	PageURL  string
	Pages    int
	Limit    int // non-zero when the page limit, not a cycle, stopped the walk
}

func (e PaginationLoopError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("pagination from %s exceeded %d pages at %s", e.EntryURL, e.Limit, e.PageURL)
	}
	return fmt.Sprintf("pagination from %s revisited %s after %d pages", e.EntryURL, e.PageURL, e.Pages)
}

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var loop PaginationLoopError
	if errors.As(err, &loop) {
		return "pagination_loop"
	}
	var structure parser.ParseStructureError
	if errors.As(err, &structure) {
		return "parse_structure"
	}
	var extraction parser.ExtractionError
	if errors.As(err, &extraction) {
		return "extraction"
	}
	var fetch FetchError
	if errors.As(err, &fetch) {
		return "fetch"
	}
	return "other"
}
