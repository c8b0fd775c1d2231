package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"pricewatch/internal/price"
	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

// Mirror reads a JSON product catalog, such as the one served by
// cmd/mirror-server. Unlike the HTML storefronts it pages through an API.
type Mirror struct {
	BaseURL string
	Client  *http.Client
	pager   *Pager
	norm    Normalizer
	logger  *log.Logger
}

// NewMirror creates a new Mirror source.
func NewMirror(baseURL string, timeout time.Duration, pager *Pager, codec *price.Codec, logger *log.Logger) *Mirror {
	if logger == nil {
		logger = log.Default()
	}
	return &Mirror{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		pager:   pager,
		logger:  logger,
		norm: Normalizer{
			Codec:   codec,
			Source:  "Mirror",
			BaseURL: baseURL,
		},
	}
}

func (m *Mirror) Name() string {
	return "mirror"
}

// mirrorItem is the catalog's JSON shape, e.g.
//
//	GET {BaseURL}/search?q=macbook&page=1
//	[
//	  {
//	    "slug": "macbook-air-13",
//	    "name": "MacBook Air 13",
//	    "price": "$999.00",
//	    "was": "$1,099.00",
//	    "stars": "4.7",
//	    "link": "/p/macbook-air-13",
//	    "image": "https://..."
//	  }
//	]
type mirrorItem struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Was   string `json:"was"`
	Stars string `json:"stars"`
	Link  string `json:"link"`
	Image string `json:"image"`
	Logo  string `json:"logo"`
}

// Fetch fetches and maps the catalog's search pages into listings.
func (m *Mirror) Fetch(ctx context.Context, query string) ([]models.Listing, error) {
	items, stats := Collect(ctx, m.pager, m.Name(), func(ctx context.Context, page int) ([]mirrorItem, error) {
		q := url.Values{}
		q.Set("q", query)
		q.Set("page", strconv.Itoa(page))
		var out []mirrorItem
		if err := m.getJSON(ctx, "/search?"+q.Encode(), &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if stats.Failed == stats.Pages {
		return nil, apperr.Errorf(apperr.SourceUnavailable, m.Name(), "all %d pages failed", stats.Pages)
	}

	result := make([]models.Listing, 0, len(items))
	for _, it := range items {
		if it.Slug == "" && it.Link == "" {
			continue
		}
		href := it.Link
		if href == "" {
			href = "/p/" + it.Slug
		}
		l := m.norm.Normalize(models.RawListing{
			Title:    it.Name,
			RawPrice: it.Price,
			OldPrice: it.Was,
			Rating:   it.Stars,
			Href:     href,
			ImageURL: it.Image,
		})
		if it.Logo != "" {
			l.SourceLogo = it.Logo
		}
		result = append(result, l)
	}
	return result, nil
}

func (m *Mirror) Owns(productURL string) bool {
	return sameSite(productURL, m.BaseURL)
}

// CurrentPrice asks the catalog for the live price of one product.
func (m *Mirror) CurrentPrice(ctx context.Context, productURL string) (float64, error) {
	var resp struct {
		Price string `json:"price"`
	}
	err := m.pager.Retry(ctx, "mirror product", func(ctx context.Context) error {
		return m.getJSON(ctx, "/product?url="+url.QueryEscape(productURL), &resp)
	})
	if err != nil {
		return 0, err
	}
	v := m.norm.Codec.Parse(m.norm.Codec.Normalize(resp.Price))
	if !price.Valid(v) {
		return 0, apperr.Errorf(apperr.ParseError, "mirror product", "no usable price for %s (%q)", productURL, resp.Price)
	}
	return v, nil
}

func (m *Mirror) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("mirror: build request: %w", err)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("mirror: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mirror: status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mirror: decode json: %w", err)
	}
	return nil
}
