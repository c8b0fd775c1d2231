package scraper

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/pkg/models"
)

// Glotelho is a Cameroonian storefront; its prices are already in FCFA.
type Glotelho struct {
	Base string
}

func NewGlotelho() *Glotelho { return &Glotelho{Base: "https://glotelho.cm"} }

func (g *Glotelho) Name() string        { return "glotelho" }
func (g *Glotelho) DisplayName() string { return "Glotelho" }
func (g *Glotelho) BaseURL() string     { return g.Base }
func (g *Glotelho) Logo() string        { return "https://glotelho.cm/images/glotelho-ecommerce.jpg" }
func (g *Glotelho) ItemSelector() string {
	return `div[class*="flex flex-col justify-between"]`
}

func (g *Glotelho) SearchURL(query string, page int) string {
	return fmt.Sprintf("%s/search?q=%s&limit=40&page=%d", g.Base, url.QueryEscape(query), page)
}

func (g *Glotelho) Extract(item *goquery.Selection) models.RawListing {
	var r models.RawListing

	link := item.Find("a[href]").First()
	if href, ok := link.Attr("href"); ok {
		r.Href = href
		r.Title = text(link, "h3")
	}

	img := item.Find("img").First()
	if src, ok := img.Attr("data-src"); ok {
		r.ImageURL = src
	} else if src, ok := img.Attr("src"); ok {
		r.ImageURL = src
	}

	r.RawPrice = text(item, `span[class*="font-bold text-gray-900"]`)
	r.OldPrice = text(item, `span[class*="line-through"]`)
	// Glotelho lists no ratings.
	return r
}

func (g *Glotelho) ProductPrice(doc *goquery.Document) string {
	return text(doc.Selection, `span[class*="font-bold text-gray-900"]`)
}
