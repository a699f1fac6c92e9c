// Package parser turns catalogue HTML into product records and normalises their fields.
package parser

import (
	"bytes"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-catalogue/models"
)

// RatingUnrated is stored when a product page carries no usable rating.
const RatingUnrated = "Unrated"

var ratingLevels = map[string]int{
	"Zero":  0,
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

var (
	availableCount = regexp.MustCompile(`\((\d+) available\)`)
	slugStrip      = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	slugSpace      = regexp.MustCompile(`\s+`)
)

// Parse builds a queryable document from raw page bytes.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ValidateRecord ensures the extractor produced a usable row.
func ValidateRecord(r *models.ProductRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.ProductPageURL) == "" {
		return fmt.Errorf("record missing product page url")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("record missing title for %s", r.ProductPageURL)
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("record missing category for %s", r.ProductPageURL)
	}
	for name, price := range map[string]string{
		"price_including_tax": r.PriceIncludingTax,
		"price_excluding_tax": r.PriceExcludingTax,
	} {
		if price == models.Missing {
			continue
		}
		value, err := strconv.ParseFloat(price, 64)
		if err != nil {
			return fmt.Errorf("record %s %q is not a decimal: %w", name, price, err)
		}
		if value < 0 {
			return fmt.Errorf("record %s %q is negative", name, price)
		}
	}
	if r.ReviewRating != RatingUnrated && !IsRatingLabel(r.ReviewRating) {
		return fmt.Errorf("record has unknown rating %q", r.ReviewRating)
	}
	return nil
}

// NormalizePrice removes the currency symbol and surrounding whitespace. A
// leading sign is kept so negative amounts stay visible to IsPrice.
func NormalizePrice(price string) string {
	price = strings.TrimLeftFunc(price, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != '-' && r != '+'
	})
	return strings.TrimRightFunc(price, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
}

// IsPrice reports whether s is a plain non-negative decimal.
func IsPrice(s string) bool {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return false
	}
	return value >= 0
}

// ParseAvailability extracts N from "In stock (N available)". Text that does not
// match is returned trimmed but otherwise verbatim.
func ParseAvailability(text string) string {
	text = strings.TrimSpace(text)
	if m := availableCount.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// IsRatingLabel reports whether label is one of the site's star levels.
func IsRatingLabel(label string) bool {
	_, ok := ratingLevels[label]
	return ok
}

// Slugify lower-cases s, drops punctuation and joins words with underscores.
func Slugify(s string) string {
	s = slugStrip.ReplaceAllString(s, "")
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugSpace.ReplaceAllString(s, "_")
	if s == "" {
		return "untitled"
	}
	return s
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
