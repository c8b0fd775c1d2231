package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/pkg/models"
)

var (
	walmartPrice  = regexp.MustCompile(`\$(\d+\.\d{2})`)
	walmartRating = regexp.MustCompile(`(?i)(\d+\.\d+)\s*out of\s*5`)
)

type Walmart struct {
	Base string
}

func NewWalmart() *Walmart { return &Walmart{Base: "https://www.walmart.com"} }

func (w *Walmart) Name() string         { return "walmart" }
func (w *Walmart) DisplayName() string  { return "Walmart" }
func (w *Walmart) BaseURL() string      { return w.Base }
func (w *Walmart) ItemSelector() string { return "div[data-item-id]" }
func (w *Walmart) Logo() string {
	return "https://upload.wikimedia.org/wikipedia/commons/0/0c/Walmart_logo.svg"
}

func (w *Walmart) SearchURL(query string, page int) string {
	return fmt.Sprintf("%s/search?q=%s&page=%d", w.Base, url.QueryEscape(query), page)
}

func (w *Walmart) Extract(item *goquery.Selection) models.RawListing {
	var r models.RawListing

	r.Title = text(item, `span[data-automation-id="product-title"]`)

	link := item.Find(`a[href*="/ip/"]`).First()
	if link.Length() == 0 {
		link = item.Find("a[href]").First()
	}
	if href, ok := link.Attr("href"); ok {
		r.Href = strings.TrimSpace(href)
		if r.Title == "" {
			r.Title = strings.TrimSpace(link.Text())
		}
	}

	// The price block mixes current, was and per-unit prices; the first
	// dollar amount is the selling price.
	if m := walmartPrice.FindStringSubmatch(item.Find(`div[data-automation-id="product-price"]`).Text()); m != nil {
		r.RawPrice = "$" + m[1]
	}

	if v := attr(item, `span[data-testid="product-ratings"]`, "data-value"); v != "" {
		r.Rating = v
	} else if m := walmartRating.FindStringSubmatch(item.Text()); m != nil {
		r.Rating = m[1]
	}

	r.ImageURL = attr(item, `img[data-testid="productTileImage"]`, "src")
	return r
}

func (w *Walmart) ProductPrice(doc *goquery.Document) string {
	if p := text(doc.Selection, `span[itemprop="price"]`); p != "" {
		return p
	}
	if m := walmartPrice.FindStringSubmatch(doc.Find(`[data-testid="price-wrap"]`).Text()); m != nil {
		return "$" + m[1]
	}
	return ""
}
