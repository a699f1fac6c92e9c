package parser

import (
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-catalogue/models"
)

// Product information table labels.
const (
	LabelUPC          = "UPC"
	LabelPriceInclTax = "Price (incl. tax)"
	LabelPriceExclTax = "Price (excl. tax)"
	LabelAvailability = "Availability"
)

var errRelativePageURL = errors.New("page url is not absolute")

// ExtractProduct reads a product page into a record. Only the page URL, title
// and category are required; every other field falls back to a sentinel and
// is listed in the record's Degraded set.
func ExtractProduct(pageURL string, doc *goquery.Document) (*models.ProductRecord, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, ExtractionError{Field: "product_page_url", PageURL: pageURL, Err: err}
	}
	if !base.IsAbs() {
		return nil, ExtractionError{Field: "product_page_url", PageURL: pageURL, Err: errRelativePageURL}
	}

	title := productTitle(doc)
	if !title.Found {
		return nil, ExtractionError{Field: "title", PageURL: pageURL}
	}
	category := breadcrumbCategory(doc)
	if !category.Found {
		return nil, ExtractionError{Field: "category", PageURL: pageURL}
	}

	rec := &models.ProductRecord{
		ProductPageURL: pageURL,
		Title:          title.Value,
		Category:       category.Value,
	}
	pick := func(name string, f Field, sentinel string) string {
		if !f.Found {
			rec.Degraded = append(rec.Degraded, name)
		}
		return f.Else(sentinel)
	}

	table := readInfoTable(doc)
	rec.UniversalProductCode = pick("universal_product_code", table.get(LabelUPC), models.Missing)
	rec.PriceIncludingTax = pick("price_including_tax", table.get(LabelPriceInclTax).Map(NormalizePrice).Filter(IsPrice), models.Missing)
	rec.PriceExcludingTax = pick("price_excluding_tax", table.get(LabelPriceExclTax).Map(NormalizePrice).Filter(IsPrice), models.Missing)
	rec.NumberAvailable = pick("number_available", table.get(LabelAvailability).Map(ParseAvailability), models.Missing)
	rec.ProductDescription = pick("product_description", productDescription(doc), "")
	rec.ReviewRating = pick("review_rating", reviewRating(doc), RatingUnrated)
	rec.ImageURL = pick("image_url", imageURL(doc, base), models.Missing)

	return rec, nil
}

type infoTable map[string]string

// readInfoTable keys every th/td row by its label so lookups do not depend on
// row order.
func readInfoTable(doc *goquery.Document) infoTable {
	table := make(infoTable)
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		label := collapseSpace(row.Find("th").First().Text())
		if label == "" {
			return
		}
		if _, seen := table[label]; seen {
			return
		}
		table[label] = strings.TrimSpace(row.Find("td").First().Text())
	})
	return table
}

func (t infoTable) get(label string) Field {
	v, ok := t[label]
	if !ok || v == "" {
		return Field{}
	}
	return found(v)
}

func productTitle(doc *goquery.Document) Field {
	return firstText(doc.Find(".product_main h1")).Or(func() Field {
		return firstText(doc.Find("h1"))
	})
}

// breadcrumbCategory reads Home / Books / Category / Title.
func breadcrumbCategory(doc *goquery.Document) Field {
	items := doc.Find("ul.breadcrumb li")
	if items.Length() < 3 {
		return Field{}
	}
	return firstText(items.Eq(2))
}

func productDescription(doc *goquery.Document) Field {
	return descriptionAfterMarker(doc).Or(func() Field {
		return lastTopLevelParagraph(doc)
	})
}

func descriptionAfterMarker(doc *goquery.Document) Field {
	marker := doc.Find("#product_description").First()
	if marker.Length() == 0 {
		return Field{}
	}
	p := marker.NextAllFiltered("p").First()
	if p.Length() == 0 {
		return Field{}
	}
	return found(strings.TrimSpace(p.Text()))
}

func lastTopLevelParagraph(doc *goquery.Document) Field {
	paragraphs := doc.Find("article.product_page").First().ChildrenFiltered("p")
	if paragraphs.Length() == 0 {
		return Field{}
	}
	return found(strings.TrimSpace(paragraphs.Last().Text()))
}

// reviewRating takes the level from class="star-rating Three".
func reviewRating(doc *goquery.Document) Field {
	el := doc.Find(".product_main p.star-rating").First()
	if el.Length() == 0 {
		el = doc.Find("p.star-rating").First()
	}
	class, ok := el.Attr("class")
	if !ok {
		return Field{}
	}
	tokens := strings.Fields(class)
	if len(tokens) < 2 || !IsRatingLabel(tokens[1]) {
		return Field{}
	}
	return found(tokens[1])
}

// imageURL resolves the gallery image against the product page itself; the
// src is relative to the page, not to the site root.
func imageURL(doc *goquery.Document, page *url.URL) Field {
	img := doc.Find("div.item.active img").First()
	if img.Length() == 0 {
		img = doc.Find("#product_gallery img").First()
	}
	src, ok := img.Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return Field{}
	}
	abs, err := resolve(page, src)
	if err != nil {
		return Field{}
	}
	return found(abs)
}

func firstText(sel *goquery.Selection) Field {
	if sel.Length() == 0 {
		return Field{}
	}
	text := collapseSpace(sel.First().Text())
	if text == "" {
		return Field{}
	}
	return found(text)
}
