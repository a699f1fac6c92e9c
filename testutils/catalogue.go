// Package testutils builds catalogue pages shaped like the target site for tests.
package testutils

import (
	"fmt"
	"html"
	"strings"
)

// Product describes a product page. Zero-valued parts are omitted from the
// rendered HTML, which is how tests exercise the extractor's fallbacks.
type Product struct {
	Breadcrumb        []string
	Title             string
	RatingClass       string
	DescriptionMarker bool
	Paragraphs        []string
	Rows              [][2]string
	ImageSrc          string
}

// DefaultProduct returns a complete product page for book id in category.
func DefaultProduct(id int, category string) Product {
	title := fmt.Sprintf("Book %d", id)
	price := fmt.Sprintf("£%d.%02d", 10+id%40, id%100)
	return Product{
		Breadcrumb:        []string{"Home", "Books", category, title},
		Title:             title,
		RatingClass:       "star-rating Three",
		DescriptionMarker: true,
		Paragraphs:        []string{fmt.Sprintf("Description of book %d.", id)},
		Rows: [][2]string{
			{"UPC", fmt.Sprintf("upc%05d", id)},
			{"Product Type", "Books"},
			{"Price (excl. tax)", price},
			{"Price (incl. tax)", price},
			{"Tax", "£0.00"},
			{"Availability", fmt.Sprintf("In stock (%d available)", id%20+1)},
			{"Number of reviews", "0"},
		},
		ImageSrc: fmt.Sprintf("../../media/cache/book_%d.jpg", id),
	}
}

// HTML renders the page.
func (p Product) HTML() string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>product</title></head><body>")
	if len(p.Breadcrumb) > 0 {
		b.WriteString(`<ul class="breadcrumb">`)
		for i, item := range p.Breadcrumb {
			if i == len(p.Breadcrumb)-1 {
				fmt.Fprintf(&b, `<li class="active">%s</li>`, html.EscapeString(item))
				continue
			}
			fmt.Fprintf(&b, `<li><a href="#">%s</a></li>`, html.EscapeString(item))
		}
		b.WriteString("</ul>")
	}
	b.WriteString(`<article class="product_page"><div class="row">`)
	if p.ImageSrc != "" {
		b.WriteString(`<div class="col-sm-6"><div id="product_gallery" class="carousel"><div class="thumbnail"><div class="carousel-inner">`)
		fmt.Fprintf(&b, `<div class="item active"><img src="%s" alt="%s" /></div>`, html.EscapeString(p.ImageSrc), html.EscapeString(p.Title))
		b.WriteString(`</div></div></div></div>`)
	}
	b.WriteString(`<div class="col-sm-6 product_main">`)
	if p.Title != "" {
		fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(p.Title))
	}
	b.WriteString(`<p class="price_color">£0.00</p>`)
	if p.RatingClass != "" {
		fmt.Fprintf(&b, `<p class="%s"><i class="icon-star"></i></p>`, html.EscapeString(p.RatingClass))
	}
	b.WriteString(`</div></div>`)
	if p.DescriptionMarker {
		b.WriteString(`<div id="product_description" class="sub-header"><h2>Product Description</h2></div>`)
	}
	for _, para := range p.Paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(para))
	}
	if len(p.Rows) > 0 {
		b.WriteString(`<div class="sub-header"><h2>Product Information</h2></div><table class="table table-striped">`)
		for _, row := range p.Rows {
			fmt.Fprintf(&b, "<tr><th>%s</th><td>%s</td></tr>", html.EscapeString(row[0]), html.EscapeString(row[1]))
		}
		b.WriteString("</table>")
	}
	b.WriteString("</article></body></html>")
	return b.String()
}

// ListingPage renders one page of a category listing. next is omitted when empty.
func ListingPage(links []string, next string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body><section><ol class="row">`)
	for i, link := range links {
		fmt.Fprintf(&b, `<li><article class="product_pod"><h3><a href="%s" title="Book %d">Book %d</a></h3>`, html.EscapeString(link), i, i)
		b.WriteString(`<p class="price_color">£1.00</p></article></li>`)
	}
	b.WriteString("</ol>")
	if next != "" {
		fmt.Fprintf(&b, `<ul class="pager"><li class="current">Page</li><li class="next"><a href="%s">next</a></li></ul>`, html.EscapeString(next))
	}
	b.WriteString("</section></body></html>")
	return b.String()
}

// HomePage renders the site root with the side navigation. Each entry is a
// category name and its href.
func HomePage(categories [][2]string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body><div class="side_categories"><ul class="nav nav-list"><li><a href="catalogue/category/books_1/index.html">Books</a><ul>`)
	for _, c := range categories {
		fmt.Fprintf(&b, "<li><a href=\"%s\">\n    %s\n</a></li>", html.EscapeString(c[1]), html.EscapeString(c[0]))
	}
	b.WriteString("</ul></li></ul></div></body></html>")
	return b.String()
}

// ProductLinks returns n category-listing hrefs starting at book first.
func ProductLinks(first, n int) []string {
	links := make([]string, 0, n)
	for i := first; i < first+n; i++ {
		links = append(links, fmt.Sprintf("../../../book-%d_%d/index.html", i, i))
	}
	return links
}
