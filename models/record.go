// Package models defines data structures for the scraper.
package models

import "time"

// Missing marks a field the page did not provide.
const Missing = "N/A"

// ProductRecord represents one product page harvested from the catalogue.
type ProductRecord struct {
	ProductPageURL       string `csv:"product_page_url" json:"product_page_url"`
	UniversalProductCode string `csv:"universal_product_code" json:"universal_product_code"`
	Title                string `csv:"title" json:"title"`
	PriceIncludingTax    string `csv:"price_including_tax" json:"price_including_tax"`
	PriceExcludingTax    string `csv:"price_excluding_tax" json:"price_excluding_tax"`
	NumberAvailable      string `csv:"number_available" json:"number_available"`
	ProductDescription   string `csv:"product_description" json:"product_description"`
	Category             string `csv:"category" json:"category"`
	ReviewRating         string `csv:"review_rating" json:"review_rating"`
	ImageURL             string `csv:"image_url" json:"image_url"`

	// Degraded lists fields that fell back to a sentinel during extraction.
	Degraded []string `csv:"-" json:"-"`
	// ImagePath is set once the product image has been stored locally.
	ImagePath string `csv:"-" json:"-"`
}

var recordHeader = []string{
	"product_page_url",
	"universal_product_code",
	"title",
	"price_including_tax",
	"price_excluding_tax",
	"number_available",
	"product_description",
	"category",
	"review_rating",
	"image_url",
}

// RecordHeader returns the column names in serialisation order.
func RecordHeader() []string {
	out := make([]string, len(recordHeader))
	copy(out, recordHeader)
	return out
}

// Values returns the record's fields in the same order as RecordHeader.
func (r *ProductRecord) Values() []string {
	return []string{
		r.ProductPageURL,
		r.UniversalProductCode,
		r.Title,
		r.PriceIncludingTax,
		r.PriceExcludingTax,
		r.NumberAvailable,
		r.ProductDescription,
		r.Category,
		r.ReviewRating,
		r.ImageURL,
	}
}

// Category is a named catalogue section and the first page of its listing.
type Category struct {
	Name string
	URL  string
}

// CategoryResult summarises the harvest of one category.
type CategoryResult struct {
	Name          string
	URL           string
	ProductURLs   int
	Records       int
	Skipped       int
	Duplicates    int
	ImageFailures int
	OutputPaths   []string
	Err           error
}

// RunResult holds the overall result of a harvest.
type RunResult struct {
	RunID        string
	StartTime    time.Time
	EndTime      time.Time
	Categories   []CategoryResult
	TotalRecords int
	ErrorCount   int
	ErrorsByType map[string]int
	RequestCount int
	PageCount    int
}

// FailedCategories returns the categories whose traversal was aborted.
func (r *RunResult) FailedCategories() []CategoryResult {
	var out []CategoryResult
	for _, c := range r.Categories {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}
