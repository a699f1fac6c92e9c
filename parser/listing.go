package parser

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Listing is what one page of a paginated category yields.
type Listing struct {
	ProductURLs []string
	// Next is the absolute URL of the following page, empty on the last page.
	Next string
}

// ExtractListing collects product links in document order and the "next"
// pagination target. Product links are resolved against the catalogue root;
// the next link is resolved against pageURL because its href is relative to
// the listing page it appears on.
func ExtractListing(pageURL string, catalogue *url.URL, doc *goquery.Document) (*Listing, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url %q: %w", pageURL, err)
	}

	listing := &Listing{}
	var linkErr error
	doc.Find("article.product_pod h3 a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		abs, err := ResolveProductLink(catalogue, href)
		if err != nil {
			linkErr = ParseStructureError{Page: pageURL, Element: "product link " + href, Err: err}
			return false
		}
		listing.ProductURLs = append(listing.ProductURLs, abs)
		return true
	})
	if linkErr != nil {
		return nil, linkErr
	}

	if href, ok := doc.Find("li.next a").First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		next, err := resolve(page, href)
		if err != nil {
			return nil, ParseStructureError{Page: pageURL, Element: "next link " + href, Err: err}
		}
		listing.Next = next
	}
	return listing, nil
}

// ResolveProductLink maps a listing href onto the catalogue root. Listings at
// different depths link to the same product as "../../../x/index.html",
// "catalogue/x/index.html" or "x/index.html"; all of them become
// <catalogue>/x/index.html.
func ResolveProductLink(catalogue *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	p := ref.Path
trim:
	for {
		switch {
		case strings.HasPrefix(p, "../"):
			p = p[3:]
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		default:
			break trim
		}
	}
	if segment := path.Base(strings.TrimSuffix(catalogue.Path, "/")); segment != "." && segment != "/" && segment != "" {
		p = strings.TrimPrefix(p, segment+"/")
	}

	rel := *ref
	rel.Path = p
	rel.RawPath = ""
	return catalogue.ResolveReference(&rel).String(), nil
}

// CatalogueRoot returns prefix as a URL whose path ends in a slash, so
// relative references land inside it.
func CatalogueRoot(prefix string) (*url.URL, error) {
	u, err := url.Parse(prefix)
	if err != nil {
		return nil, fmt.Errorf("parse catalogue prefix: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("catalogue prefix %q must be absolute", prefix)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}
