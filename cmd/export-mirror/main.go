package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"pricewatch/internal/mirror"
	"pricewatch/internal/price"
	"pricewatch/internal/scraper"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// export-mirror snapshots live search results into a catalog file that
// mirror-server can serve offline.
func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config")
		outPath    = flag.String("out", "data/mirror.json", "output JSON path")
		limit      = flag.Int("limit", 50, "max listings kept per query")
		timeout    = flag.Duration("timeout", 5*time.Minute, "overall deadline")
	)
	flag.Parse()

	queries := flag.Args()
	if len(queries) == 0 {
		log.Fatal("usage: export-mirror [-out data/mirror.json] <query> [query...]")
	}

	cfg, err := utils.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	codec := price.NewCodec(cfg.Rates)
	sources, err := scraper.NewSources(cfg.Scraper, codec, nil)
	if err != nil {
		log.Fatalf("sources: %v", err)
	}
	agg := scraper.NewAggregator(codec, cfg.Scraper.SourceTimeout, nil, sources...)

	seen := make(map[string]struct{})
	var out []mirror.Item
	for _, q := range queries {
		listings, err := agg.Search(ctx, q)
		if err != nil {
			log.Fatalf("search %q failed: %v", q, err)
		}
		if *limit > 0 && len(listings) > *limit {
			listings = listings[:*limit]
		}
		for _, l := range listings {
			it := toItem(l)
			if _, dup := seen[it.Slug]; dup {
				continue
			}
			seen[it.Slug] = struct{}{}
			out = append(out, it)
		}
		log.Printf("%q: %d listings", q, len(listings))
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(*outPath, b, 0o644); err != nil {
		log.Fatalf("write: %v", err)
	}
	log.Printf("exported %d catalog items to %s", len(out), *outPath)
}

func toItem(l models.Listing) mirror.Item {
	slug := slugify(l.Source + " " + l.Description)
	it := mirror.Item{
		Slug:  slug,
		Name:  l.Description,
		Price: l.DisplayPrice,
		Was:   l.OldPrice,
		Link:  "/p/" + slug,
		Logo:  l.SourceLogo,
	}
	if l.Rating != models.NoRating {
		it.Stars = l.Rating
	}
	if l.ImageURL != models.NotAvailable {
		it.Image = l.ImageURL
	}
	return it
}

func slugify(s string) string {
	s = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(s) > 80 {
		s = strings.TrimRight(s[:80], "-")
	}
	return s
}
