package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/internal/price"
	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

// Site describes the markup of one HTML storefront. Implementations only
// know how to build URLs and read fields; paging, retries and conversion
// are handled by HTMLSource.
type Site interface {
	Name() string
	DisplayName() string
	Logo() string
	BaseURL() string
	SearchURL(query string, page int) string
	ItemSelector() string
	Extract(item *goquery.Selection) models.RawListing
	// ProductPrice reads the current raw price from a product detail page.
	ProductPrice(doc *goquery.Document) string
}

// HTMLSource adapts a Site into a Source and a Pricer.
type HTMLSource struct {
	site    Site
	fetcher Fetcher
	pager   *Pager
	norm    Normalizer
	logger  *log.Logger
}

func NewHTMLSource(site Site, fetcher Fetcher, pager *Pager, codec *price.Codec, logger *log.Logger) *HTMLSource {
	if logger == nil {
		logger = log.Default()
	}
	return &HTMLSource{
		site:    site,
		fetcher: fetcher,
		pager:   pager,
		logger:  logger,
		norm: Normalizer{
			Codec:   codec,
			Source:  site.DisplayName(),
			Logo:    site.Logo(),
			BaseURL: site.BaseURL(),
		},
	}
}

func (s *HTMLSource) Name() string { return s.site.Name() }

func (s *HTMLSource) Fetch(ctx context.Context, query string) ([]models.Listing, error) {
	s.logger.Printf("[scraper] %s: searching %q", s.site.Name(), query)

	raw, stats := Collect(ctx, s.pager, s.site.Name(), func(ctx context.Context, page int) ([]models.RawListing, error) {
		return s.fetchPage(ctx, query, page)
	})
	if stats.Failed == stats.Pages {
		return nil, apperr.Errorf(apperr.SourceUnavailable, s.site.Name(), "all %d pages failed", stats.Pages)
	}

	listings := s.norm.NormalizeAll(raw)
	// Records the storefront showed without any price are dropped here; the
	// aggregator rejects every other unusable price.
	kept := listings[:0]
	for _, l := range listings {
		if l.DisplayPrice != models.NotAvailable {
			kept = append(kept, l)
		}
	}
	return kept, nil
}

func (s *HTMLSource) fetchPage(ctx context.Context, query string, page int) ([]models.RawListing, error) {
	doc, err := s.document(ctx, s.site.SearchURL(query, page))
	if err != nil {
		return nil, err
	}

	var out []models.RawListing
	doc.Find(s.site.ItemSelector()).Each(func(_ int, item *goquery.Selection) {
		out = append(out, s.site.Extract(item))
	})
	return out, nil
}

func (s *HTMLSource) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// Owns reports whether productURL lives on this storefront.
func (s *HTMLSource) Owns(productURL string) bool {
	return sameSite(productURL, s.site.BaseURL())
}

// CurrentPrice re-reads a product page and returns its price in the
// reporting currency.
func (s *HTMLSource) CurrentPrice(ctx context.Context, productURL string) (float64, error) {
	var raw string
	err := s.pager.Retry(ctx, s.site.Name()+" product", func(ctx context.Context) error {
		doc, err := s.document(ctx, productURL)
		if err != nil {
			return err
		}
		raw = s.site.ProductPrice(doc)
		return nil
	})
	if err != nil {
		return 0, err
	}

	v := s.norm.Codec.Parse(s.norm.Codec.Normalize(raw))
	if !price.Valid(v) {
		return 0, apperr.Errorf(apperr.ParseError, s.site.Name()+" product", "no usable price on %s (%q)", productURL, raw)
	}
	return v, nil
}

// sameSite compares hosts ignoring a leading "www.".
func sameSite(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil || ua.Host == "" {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil || ub.Host == "" {
		return false
	}
	return strings.TrimPrefix(strings.ToLower(ua.Host), "www.") == strings.TrimPrefix(strings.ToLower(ub.Host), "www.")
}

// text returns the trimmed text of the first match, or "".
func text(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}

// attr returns the attribute of the first match, or "".
func attr(sel *goquery.Selection, selector, name string) string {
	v, _ := sel.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}
