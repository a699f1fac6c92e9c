package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-catalogue/models"
)

// ExtractCategories reads the nested side navigation of the root page.
// Order follows the document; a repeated name keeps its first link.
func ExtractCategories(rootURL string, doc *goquery.Document) ([]models.Category, error) {
	root, err := url.Parse(rootURL)
	if err != nil {
		return nil, ParseStructureError{Page: rootURL, Element: "root url", Err: err}
	}

	nav := doc.Find("div.side_categories").First()
	if nav.Length() == 0 {
		return nil, ParseStructureError{Page: rootURL, Element: "div.side_categories", Err: ErrCategoryListMissing}
	}

	var categories []models.Category
	seen := make(map[string]struct{})
	var linkErr error
	nav.Find("ul ul a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		name := collapseSpace(a.Text())
		href, ok := a.Attr("href")
		if name == "" || !ok || strings.TrimSpace(href) == "" {
			return true
		}
		if _, dup := seen[name]; dup {
			return true
		}
		abs, err := resolve(root, href)
		if err != nil {
			linkErr = ParseStructureError{Page: rootURL, Element: "category link " + href, Err: err}
			return false
		}
		seen[name] = struct{}{}
		categories = append(categories, models.Category{Name: name, URL: abs})
		return true
	})
	if linkErr != nil {
		return nil, linkErr
	}
	return categories, nil
}
