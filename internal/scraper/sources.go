package scraper

import (
	"fmt"
	"log"

	"golang.org/x/time/rate"

	"pricewatch/internal/price"
	"pricewatch/pkg/utils"
)

// NewSources builds the configured sources in priority order.
func NewSources(cfg utils.ScraperConfig, codec *price.Codec, logger *log.Logger) ([]Source, error) {
	httpFetcher := NewHTTPFetcher(cfg.RequestTimeout, cfg.UserAgents)

	sources := make([]Source, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		pager := newPager(cfg, name, logger)

		if name == "mirror" {
			sources = append(sources, NewMirror(cfg.MirrorURL, cfg.RequestTimeout, pager, codec, logger))
			continue
		}

		var site Site
		switch name {
		case "amazon":
			site = NewAmazon()
		case "walmart":
			site = NewWalmart()
		case "glotelho":
			site = NewGlotelho()
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}

		var fetcher Fetcher = httpFetcher
		if cfg.Renders(name) {
			ua := ""
			if len(cfg.UserAgents) > 0 {
				ua = cfg.UserAgents[0]
			}
			fetcher = &BrowserFetcher{Timeout: cfg.RequestTimeout * 3, UserAgent: ua}
		}
		sources = append(sources, NewHTMLSource(site, fetcher, pager, codec, logger))
	}
	return sources, nil
}

// newPager gives each source its own limiter so one slow storefront does
// not pace the others.
func newPager(cfg utils.ScraperConfig, name string, logger *log.Logger) *Pager {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Pager{
		Pages:      cfg.PagesFor(name),
		Attempts:   cfg.Attempts,
		RetryDelay: cfg.RetryDelay,
		Limiter:    rate.NewLimiter(limit, 1),
		Logger:     logger,
	}
}
