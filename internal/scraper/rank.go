package scraper

import (
	"sort"
	"strings"

	"pricewatch/internal/price"
	"pricewatch/pkg/models"
)

// RankStats counts what Rank discarded.
type RankStats struct {
	Input      int
	Unpriced   int
	Duplicates int
}

type pricedListing struct {
	listing models.Listing
	value   float64
}

// Rank filters, deduplicates and orders merged listings:
//   - listings without a usable price are dropped
//   - the first listing for a product URL wins; listings without a URL are kept
//   - survivors are stable-sorted ascending by price
//
// The returned display price is re-rendered by the codec so every result
// uses the same format.
func Rank(codec *price.Codec, merged []models.Listing) ([]models.Listing, RankStats) {
	stats := RankStats{Input: len(merged)}

	priced := make([]pricedListing, 0, len(merged))
	for _, l := range merged {
		p := strings.TrimSpace(l.DisplayPrice)
		if p == "" || strings.EqualFold(p, models.NotAvailable) {
			stats.Unpriced++
			continue
		}
		v := codec.Parse(p)
		if !price.Valid(v) {
			stats.Unpriced++
			continue
		}
		l.DisplayPrice = codec.Format(v)
		priced = append(priced, pricedListing{listing: l, value: v})
	}

	seen := make(map[string]struct{}, len(priced))
	unique := priced[:0]
	for _, pl := range priced {
		if pl.listing.HasURL() {
			if _, dup := seen[pl.listing.ProductURL]; dup {
				stats.Duplicates++
				continue
			}
			seen[pl.listing.ProductURL] = struct{}{}
		}
		unique = append(unique, pl)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].value < unique[j].value
	})

	out := make([]models.Listing, len(unique))
	for i, pl := range unique {
		out[i] = pl.listing
	}
	return out, stats
}
