package mirror

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"pricewatch/internal/price"
	"pricewatch/internal/scraper"
	"pricewatch/pkg/utils"
)

func testItems() []Item {
	return []Item{
		{Slug: "macbook-air-13", Name: "MacBook Air 13", Price: "$999.00"},
		{Slug: "macbook-pro-14", Name: "MacBook Pro 14", Price: "$1,599.00", Was: "$1,799.00"},
		{Slug: "macbook-pro-16", Name: "MacBook Pro 16", Price: "$2,499.00"},
		{Slug: "thinkpad-x1", Name: "ThinkPad X1 Carbon", Price: "$1,299.00"},
	}
}

func TestCatalogSearch(t *testing.T) {
	c := NewCatalog(testItems(), 2)

	tests := []struct {
		query string
		page  int
		want  []string
	}{
		{"macbook", 1, []string{"macbook-air-13", "macbook-pro-14"}},
		{"macbook", 2, []string{"macbook-pro-16"}},
		{"macbook", 3, nil},
		{"MacBook pro", 1, []string{"macbook-pro-14", "macbook-pro-16"}},
		{"", 1, nil},
		{"iphone", 1, nil},
	}
	for _, tt := range tests {
		got := c.Search(tt.query, tt.page)
		if len(got) != len(tt.want) {
			t.Errorf("Search(%q, %d) = %d items; want %d", tt.query, tt.page, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].Slug != tt.want[i] {
				t.Errorf("Search(%q, %d)[%d] = %q; want %q", tt.query, tt.page, i, got[i].Slug, tt.want[i])
			}
		}
	}
}

func TestCatalogPrice(t *testing.T) {
	c := NewCatalog(testItems(), 10)

	if p, ok := c.Price("http://localhost:9000/p/macbook-air-13"); !ok || p != "$999.00" {
		t.Errorf("Price(absolute) = %q, %v", p, ok)
	}
	if !c.SetPrice("/p/macbook-air-13", "$899.00") {
		t.Fatal("SetPrice failed")
	}
	if p, _ := c.Price("/p/macbook-air-13"); p != "$899.00" {
		t.Errorf("Price after SetPrice = %q; want $899.00", p)
	}
	if _, ok := c.Price("/p/missing"); ok {
		t.Error("Price(missing) found an item")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.json")
	if err := os.WriteFile(path, []byte(`[{"slug":"a","name":"A","price":"$1.00"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.Search("a", 1); len(got) != 1 || got[0].Link != "/p/a" {
		t.Errorf("Search after Load = %+v", got)
	}

	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, 0); err == nil {
		t.Error("Load(bad json) succeeded")
	}
}

// The scraper's mirror source must be able to read what this server serves.
func TestServedCatalogReadableByScraper(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewCatalog(testItems(), 2)).RegisterRoutes(r)
	ts := httptest.NewServer(r)
	defer ts.Close()

	logger := log.New(io.Discard, "", 0)
	codec := price.NewCodec(utils.DefaultConfig().Rates)
	pager := &scraper.Pager{Pages: 3, Attempts: 1, Limiter: rate.NewLimiter(rate.Inf, 1), Logger: logger}
	src := scraper.NewMirror(ts.URL, time.Second, pager, codec, logger)

	listings, err := src.Fetch(context.Background(), "macbook")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("Fetch returned %d listings; want 3", len(listings))
	}
	if listings[0].DisplayPrice != "599,400.00 FCFA" {
		t.Errorf("first price = %q; want 599,400.00 FCFA", listings[0].DisplayPrice)
	}

	productURL := listings[0].ProductURL
	req := httptest.NewRequest(http.MethodPut, "/product?url="+productURL, bytes.NewBufferString(`{"price":"$899.00"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /product status = %d", w.Code)
	}

	v, err := src.CurrentPrice(context.Background(), productURL)
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if v != 539400 {
		t.Errorf("CurrentPrice = %v; want 539400", v)
	}
}
