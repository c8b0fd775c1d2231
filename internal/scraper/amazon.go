package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/pkg/models"
)

type Amazon struct {
	Base string
}

func NewAmazon() *Amazon { return &Amazon{Base: "https://www.amazon.com"} }

func (a *Amazon) Name() string        { return "amazon" }
func (a *Amazon) DisplayName() string { return "Amazon" }
func (a *Amazon) BaseURL() string     { return a.Base }
func (a *Amazon) ItemSelector() string {
	return `div[data-component-type="s-search-result"]`
}

func (a *Amazon) Logo() string {
	return "https://upload.wikimedia.org/wikipedia/commons/thumb/a/a9/Amazon_logo.svg/1024px-Amazon_logo.svg.png"
}

func (a *Amazon) SearchURL(query string, page int) string {
	return fmt.Sprintf("%s/s?k=%s&page=%d", a.Base, url.QueryEscape(query), page)
}

func (a *Amazon) Extract(item *goquery.Selection) models.RawListing {
	var r models.RawListing

	title := item.Find(`div[data-cy="title-recipe"]`).First()
	if title.Length() > 0 {
		r.Title = text(title, "h2")
		if r.Title == "" {
			r.Title = text(title, "a")
		}
		r.Href = attr(title, "a[href]", "href")
	}
	if r.Href == "" {
		r.Href = attr(item, `a[href*="/dp/"]`, "href")
		if r.Title == "" {
			r.Title = text(item, "h2.a-size-base-plus")
		}
	}

	r.RawPrice = text(item, `div[data-cy="price-recipe"] span.a-offscreen`)
	r.Rating = text(item, "span.a-icon-alt")
	r.ImageURL = attr(item, "img.s-image", "src")

	if fees := text(item, `div[data-cy="delivery-recipe"] span.a-color-base`); fees != "" {
		fees = strings.TrimSpace(strings.TrimPrefix(fees, "Livraison à"))
		r.ShipPrice = fees
	}
	return r
}

func (a *Amazon) ProductPrice(doc *goquery.Document) string {
	if p := text(doc.Selection, "#corePrice_feature_div span.a-offscreen"); p != "" {
		return p
	}
	return text(doc.Selection, "span.a-price span.a-offscreen")
}
