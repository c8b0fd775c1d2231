// Package mirror serves a static product catalog in the shape the
// scraper's mirror source reads. It backs demos and offline runs.
package mirror

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
)

type Item struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Was   string `json:"was,omitempty"`
	Stars string `json:"stars,omitempty"`
	Link  string `json:"link"`
	Image string `json:"image,omitempty"`
	Logo  string `json:"logo,omitempty"`
}

type Catalog struct {
	PageSize int

	mu    sync.RWMutex
	items []Item
}

func NewCatalog(items []Item, pageSize int) *Catalog {
	if pageSize <= 0 {
		pageSize = 10
	}
	for i := range items {
		if items[i].Link == "" && items[i].Slug != "" {
			items[i].Link = "/p/" + items[i].Slug
		}
	}
	return &Catalog{PageSize: pageSize, items: items}
}

// Load reads a catalog from a JSON array file.
func Load(path string, pageSize int) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var items []Item
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("%s invalid JSON: %w", path, err)
	}
	return NewCatalog(items, pageSize), nil
}

// Search returns one page of items whose name contains every query word.
// Pages are 1-based; a page past the end is empty.
func (c *Catalog) Search(query string, page int) []Item {
	words := strings.Fields(strings.ToLower(query))
	if page < 1 {
		page = 1
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []Item
	for _, it := range c.items {
		if matches(strings.ToLower(it.Name), words) {
			matched = append(matched, it)
		}
	}

	start := (page - 1) * c.PageSize
	if start >= len(matched) {
		return []Item{}
	}
	end := start + c.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end]
}

func matches(name string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !strings.Contains(name, w) {
			return false
		}
	}
	return true
}

// Price returns the current price of the item a product URL points at.
func (c *Catalog) Price(productURL string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(productURL); i >= 0 {
		return c.items[i].Price, true
	}
	return "", false
}

// SetPrice changes an item's price in memory.
func (c *Catalog) SetPrice(productURL, price string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(productURL)
	if i < 0 {
		return false
	}
	c.items[i].Price = price
	return true
}

// indexOf matches on the URL path so absolute and relative links agree.
func (c *Catalog) indexOf(productURL string) int {
	p := productURL
	if u, err := url.Parse(productURL); err == nil && u.Path != "" {
		p = u.Path
	}
	for i, it := range c.items {
		if it.Link == p {
			return i
		}
	}
	return -1
}
