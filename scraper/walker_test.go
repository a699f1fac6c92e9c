package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aluiziolira/go-scrape-catalogue/testutils"
)

const travelIndex = "http://example.test/catalogue/category/books/travel_2/index.html"

func travelPage(n int) string {
	if n == 1 {
		return travelIndex
	}
	return fmt.Sprintf("http://example.test/catalogue/category/books/travel_2/page-%d.html", n)
}

func productURL(id int) string {
	return fmt.Sprintf("http://example.test/catalogue/book-%d_%d/index.html", id, id)
}

func testCatalogue(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("http://example.test/catalogue/")
	if err != nil {
		t.Fatalf("parse catalogue: %v", err)
	}
	return u
}

// paginatedListing registers pages of perPage links each; the last page
// holds last links.
func paginatedListing(f *fakeFetcher, pages, perPage, last int) []string {
	var want []string
	id := 1
	for n := 1; n <= pages; n++ {
		count := perPage
		if n == pages {
			count = last
		}
		next := ""
		if n < pages {
			next = fmt.Sprintf("page-%d.html", n+1)
		}
		f.pages[travelPage(n)] = testutils.ListingPage(testutils.ProductLinks(id, count), next)
		for i := id; i < id+count; i++ {
			want = append(want, productURL(i))
		}
		id += count
	}
	return want
}

func TestWalkerCollectsEveryPage(t *testing.T) {
	tests := []struct {
		name    string
		pages   int
		perPage int
		last    int
	}{
		{name: "single page", pages: 1, perPage: 20, last: 7},
		{name: "two pages", pages: 2, perPage: 20, last: 3},
		{name: "many pages", pages: 8, perPage: 20, last: 20},
		{name: "empty last page", pages: 3, perPage: 5, last: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			want := paginatedListing(f, tt.pages, tt.perPage, tt.last)

			w := NewWalker(f, testCatalogue(t), 50, nil)
			got, err := w.Walk(context.Background(), travelIndex)
			if err != nil {
				t.Fatalf("walk: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("urls mismatch (-want +got):\n%s", diff)
			}
			if w.Pages() != tt.pages {
				t.Fatalf("pages=%d, want %d", w.Pages(), tt.pages)
			}
		})
	}
}

func TestWalkerEmptyPageStillFollowsNext(t *testing.T) {
	f := newFakeFetcher()
	f.pages[travelPage(1)] = testutils.ListingPage(nil, "page-2.html")
	f.pages[travelPage(2)] = testutils.ListingPage(testutils.ProductLinks(1, 3), "")

	got, err := NewWalker(f, testCatalogue(t), 10, nil).Walk(context.Background(), travelIndex)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	want := []string{productURL(1), productURL(2), productURL(3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkerKeepsRepeatedLinks(t *testing.T) {
	f := newFakeFetcher()
	links := append(testutils.ProductLinks(1, 2), testutils.ProductLinks(1, 1)...)
	f.pages[travelPage(1)] = testutils.ListingPage(links, "")

	got, err := NewWalker(f, testCatalogue(t), 10, nil).Walk(context.Background(), travelIndex)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	want := []string{productURL(1), productURL(2), productURL(1)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkerDetectsLoop(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fakeFetcher)
		wantPages int
	}{
		{
			name: "self reference",
			setup: func(f *fakeFetcher) {
				f.pages[travelPage(1)] = testutils.ListingPage(testutils.ProductLinks(1, 2), "index.html")
			},
			wantPages: 1,
		},
		{
			name: "back to first page",
			setup: func(f *fakeFetcher) {
				f.pages[travelPage(1)] = testutils.ListingPage(testutils.ProductLinks(1, 2), "page-2.html")
				f.pages[travelPage(2)] = testutils.ListingPage(testutils.ProductLinks(3, 2), "index.html#top")
			},
			wantPages: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			tt.setup(f)

			urls, err := NewWalker(f, testCatalogue(t), 50, nil).Walk(context.Background(), travelIndex)
			var loop PaginationLoopError
			if !errors.As(err, &loop) {
				t.Fatalf("err=%v, want PaginationLoopError", err)
			}
			if loop.Limit != 0 {
				t.Fatalf("limit=%d, want cycle detection", loop.Limit)
			}
			if loop.Pages != tt.wantPages {
				t.Fatalf("pages=%d, want %d", loop.Pages, tt.wantPages)
			}
			if urls != nil {
				t.Fatalf("expected no urls on failure, got %d", len(urls))
			}
			if errorTypeLabel(err) != "pagination_loop" {
				t.Fatalf("label=%q, want pagination_loop", errorTypeLabel(err))
			}
		})
	}
}

func TestWalkerStopsAtPageLimit(t *testing.T) {
	f := newFakeFetcher()
	paginatedListing(f, 5, 2, 2)

	_, err := NewWalker(f, testCatalogue(t), 3, nil).Walk(context.Background(), travelIndex)
	var loop PaginationLoopError
	if !errors.As(err, &loop) {
		t.Fatalf("err=%v, want PaginationLoopError", err)
	}
	if loop.Limit != 3 {
		t.Fatalf("limit=%d, want 3", loop.Limit)
	}
	if loop.PageURL != travelPage(4) {
		t.Fatalf("page=%q, want %q", loop.PageURL, travelPage(4))
	}
	if got := len(f.calls()); got != 3 {
		t.Fatalf("fetches=%d, want 3", got)
	}
}

func TestWalkerAbortsOnPageFailure(t *testing.T) {
	f := newFakeFetcher()
	paginatedListing(f, 3, 4, 4)
	delete(f.pages, travelPage(2))

	urls, err := NewWalker(f, testCatalogue(t), 10, nil).Walk(context.Background(), travelIndex)
	var fetchErr FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err=%v, want FetchError", err)
	}
	if fetchErr.URL != travelPage(2) {
		t.Fatalf("failed url=%q, want %q", fetchErr.URL, travelPage(2))
	}
	if urls != nil {
		t.Fatalf("expected no partial urls, got %d", len(urls))
	}
}

func TestWalkerResolvesNextAgainstFinalURL(t *testing.T) {
	f := newFakeFetcher()
	moved := "http://example.test/catalogue/category/books/travel_2/moved/index.html"
	f.redirects[travelIndex] = moved
	f.pages[moved] = testutils.ListingPage(testutils.ProductLinks(1, 1), "page-2.html")
	f.pages["http://example.test/catalogue/category/books/travel_2/moved/page-2.html"] = testutils.ListingPage(testutils.ProductLinks(2, 1), "")

	got, err := NewWalker(f, testCatalogue(t), 10, nil).Walk(context.Background(), travelIndex)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	want := []string{productURL(1), productURL(2)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}
}
