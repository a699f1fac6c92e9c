package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aluiziolira/go-scrape-catalogue/testutils"
)

func TestResolveProductLink(t *testing.T) {
	catalogue, err := CatalogueRoot("http://books.toscrape.com/catalogue")
	if err != nil {
		t.Fatalf("catalogue root: %v", err)
	}

	tests := []struct {
		name string
		href string
		want string
	}{
		{name: "category listing", href: "../../../its-only-the-himalayas_981/index.html", want: "http://books.toscrape.com/catalogue/its-only-the-himalayas_981/index.html"},
		{name: "home listing", href: "catalogue/a-light-in-the-attic_1000/index.html", want: "http://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html"},
		{name: "catalogue listing", href: "a-light-in-the-attic_1000/index.html", want: "http://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html"},
		{name: "dot segment", href: "./a-light-in-the-attic_1000/index.html", want: "http://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html"},
		{name: "root relative", href: "/catalogue/a-light-in-the-attic_1000/index.html", want: "http://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html"},
		{name: "absolute kept", href: "https://mirror.test/book/1", want: "https://mirror.test/book/1"},
		{name: "whitespace", href: "  ../../../x_1/index.html\n", want: "http://books.toscrape.com/catalogue/x_1/index.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveProductLink(catalogue, tt.href)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ResolveProductLink(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

func TestCatalogueRootRejectsRelative(t *testing.T) {
	if _, err := CatalogueRoot("catalogue/"); err == nil {
		t.Fatalf("expected error for relative prefix")
	}
}

func TestExtractListing(t *testing.T) {
	catalogue, _ := CatalogueRoot("http://example.test/catalogue/")
	pageURL := "http://example.test/catalogue/category/books/poetry_23/index.html"

	body := testutils.ListingPage(testutils.ProductLinks(1, 3), "page-2.html")
	listing, err := ExtractListing(pageURL, catalogue, mustDoc(t, body))
	if err != nil {
		t.Fatalf("extract listing: %v", err)
	}

	want := []string{
		"http://example.test/catalogue/book-1_1/index.html",
		"http://example.test/catalogue/book-2_2/index.html",
		"http://example.test/catalogue/book-3_3/index.html",
	}
	if diff := cmp.Diff(want, listing.ProductURLs); diff != "" {
		t.Fatalf("product urls (-want +got):\n%s", diff)
	}
	if want := "http://example.test/catalogue/category/books/poetry_23/page-2.html"; listing.Next != want {
		t.Fatalf("next=%q, want %q", listing.Next, want)
	}
}

func TestExtractListingNextResolvesAgainstCurrentPage(t *testing.T) {
	catalogue, _ := CatalogueRoot("http://example.test/catalogue/")
	pageURL := "http://example.test/catalogue/category/books/poetry_23/page-2.html"

	listing, err := ExtractListing(pageURL, catalogue, mustDoc(t, testutils.ListingPage(nil, "page-3.html")))
	if err != nil {
		t.Fatalf("extract listing: %v", err)
	}
	if len(listing.ProductURLs) != 0 {
		t.Fatalf("product urls=%v, want none", listing.ProductURLs)
	}
	if want := "http://example.test/catalogue/category/books/poetry_23/page-3.html"; listing.Next != want {
		t.Fatalf("next=%q, want %q", listing.Next, want)
	}
}

func TestExtractListingLastPage(t *testing.T) {
	catalogue, _ := CatalogueRoot("http://example.test/catalogue/")
	listing, err := ExtractListing("http://example.test/catalogue/page-50.html", catalogue, mustDoc(t, testutils.ListingPage(testutils.ProductLinks(1, 1), "")))
	if err != nil {
		t.Fatalf("extract listing: %v", err)
	}
	if listing.Next != "" {
		t.Fatalf("next=%q, want empty", listing.Next)
	}
}

func TestExtractListingBadLink(t *testing.T) {
	catalogue, _ := CatalogueRoot("http://example.test/catalogue/")
	_, err := ExtractListing("http://example.test/catalogue/page-1.html", catalogue, mustDoc(t, testutils.ListingPage([]string{"%zz/index.html"}, "")))
	var structErr ParseStructureError
	if !errors.As(err, &structErr) {
		t.Fatalf("expected ParseStructureError, got %v", err)
	}
}
