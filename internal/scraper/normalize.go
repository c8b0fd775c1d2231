package scraper

import (
	"net/url"
	"strings"

	"pricewatch/internal/price"
	"pricewatch/pkg/models"
)

// Normalizer maps a source's raw records into the canonical listing shape.
type Normalizer struct {
	Codec   *price.Codec
	Source  string // display name, e.g. "Amazon"
	Logo    string
	BaseURL string
}

func (n Normalizer) Normalize(r models.RawListing) models.Listing {
	return models.Listing{
		Description: orSentinel(r.Title, models.NotAvailable),
		// Prices leave the adapter already converted and formatted.
		DisplayPrice: n.Codec.Normalize(r.RawPrice),
		OldPrice:     n.optionalPrice(r.OldPrice),
		HiddenFees:   n.optionalPrice(r.ShipPrice),
		Rating:       orSentinel(r.Rating, models.NoRating),
		ProductURL:   n.absolute(r.Href),
		ImageURL:     orSentinel(n.absolute(r.ImageURL), models.NotAvailable),
		Source:       n.Source,
		SourceLogo:   n.Logo,
	}
}

func (n Normalizer) NormalizeAll(raw []models.RawListing) []models.Listing {
	out := make([]models.Listing, 0, len(raw))
	for _, r := range raw {
		out = append(out, n.Normalize(r))
	}
	return out
}

func (n Normalizer) optionalPrice(raw string) string {
	if v := n.Codec.Normalize(raw); v != models.NotAvailable {
		return v
	}
	return ""
}

// absolute resolves href against BaseURL. Missing links become N/A.
func (n Normalizer) absolute(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == models.NotAvailable {
		return models.NotAvailable
	}
	ref, err := url.Parse(href)
	if err != nil {
		return models.NotAvailable
	}
	if ref.IsAbs() || n.BaseURL == "" {
		return ref.String()
	}
	base, err := url.Parse(n.BaseURL)
	if err != nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func orSentinel(s, sentinel string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return sentinel
	}
	return s
}
