package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"

	"github.com/aluiziolira/go-scrape-catalogue/parser"
)

// Walker enumerates the product URLs of a paginated listing by following its
// "next" links.
type Walker struct {
	fetcher   Fetcher
	catalogue *url.URL
	maxPages  int
	metrics   *Metrics

	pages int64
}

// NewWalker builds a walker that resolves product links against catalogue
// and stops with PaginationLoopError after maxPages pages.
func NewWalker(fetcher Fetcher, catalogue *url.URL, maxPages int, metrics *Metrics) *Walker {
	return &Walker{
		fetcher:   fetcher,
		catalogue: catalogue,
		maxPages:  maxPages,
		metrics:   metrics,
	}
}

// crawlState lives for one traversal.
type crawlState struct {
	entry   string
	current string
	urls    []string
	visited map[string]struct{}
	pages   int
}

// Walk returns every product URL reachable from entryURL, page by page in
// document order. Repeated links are kept; repeated pages are an error. Any
// page failure aborts the walk so a category is never half enumerated.
func (w *Walker) Walk(ctx context.Context, entryURL string) ([]string, error) {
	state := &crawlState{
		entry:   entryURL,
		current: entryURL,
		visited: make(map[string]struct{}),
	}
	for {
		next, err := w.step(ctx, state)
		if err != nil {
			return nil, err
		}
		if next == "" {
			slog.Debug("listing walk finished",
				slog.String("entry", entryURL),
				slog.Int("pages", state.pages),
				slog.Int("products", len(state.urls)),
			)
			return state.urls, nil
		}
		state.current = next
	}
}

// step processes state.current and returns the next page URL, or "" when the
// listing has no further page.
func (w *Walker) step(ctx context.Context, state *crawlState) (string, error) {
	key := pageKey(state.current)
	if _, seen := state.visited[key]; seen {
		return "", PaginationLoopError{EntryURL: state.entry, PageURL: state.current, Pages: state.pages}
	}
	if state.pages >= w.maxPages {
		return "", PaginationLoopError{EntryURL: state.entry, PageURL: state.current, Pages: state.pages, Limit: w.maxPages}
	}
	state.visited[key] = struct{}{}
	state.pages++
	atomic.AddInt64(&w.pages, 1)

	page, err := w.fetcher.Fetch(withPhase(ctx, phaseListing), state.current)
	if err != nil {
		return "", err
	}
	doc, err := parser.Parse(page.Body)
	if err != nil {
		return "", fmt.Errorf("listing %s: %w", page.URL, err)
	}
	listing, err := parser.ExtractListing(page.URL, w.catalogue, doc)
	if err != nil {
		return "", err
	}
	w.metrics.IncListingPages()

	state.urls = append(state.urls, listing.ProductURLs...)
	if page.URL != state.current {
		state.visited[pageKey(page.URL)] = struct{}{}
	}
	return listing.Next, nil
}

// Pages returns the number of listing pages requested across all walks.
func (w *Walker) Pages() int {
	return int(atomic.LoadInt64(&w.pages))
}

// pageKey identifies a listing page regardless of fragment.
func pageKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
