package scraper

import (
	"context"

	"pricewatch/pkg/apperr"
)

// Pricer is implemented by sources that can re-price a single product.
type Pricer interface {
	Owns(productURL string) bool
	CurrentPrice(ctx context.Context, productURL string) (float64, error)
}

// Lookup routes a product URL to the source that listed it.
type Lookup struct {
	Pricers []Pricer
}

// NewLookup collects every source that can also re-price products.
func NewLookup(sources ...Source) *Lookup {
	l := &Lookup{}
	for _, s := range sources {
		if p, ok := s.(Pricer); ok {
			l.Pricers = append(l.Pricers, p)
		}
	}
	return l
}

func (l *Lookup) CurrentPrice(ctx context.Context, productURL string) (float64, error) {
	for _, p := range l.Pricers {
		if p.Owns(productURL) {
			return p.CurrentPrice(ctx, productURL)
		}
	}
	return 0, apperr.Errorf(apperr.SourceUnavailable, "lookup", "no source handles %s", productURL)
}
