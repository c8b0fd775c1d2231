package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"pricewatch/internal/price"
	"pricewatch/internal/scraper"
	"pricewatch/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config")
		sources    = flag.String("sources", "", "comma-separated sources overriding the config, e.g. mirror")
		timeout    = flag.Duration("timeout", 2*time.Minute, "overall deadline")
		verbose    = flag.Bool("v", false, "print per-source reports")
	)
	flag.Parse()

	query := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(query) == "" {
		log.Fatal("usage: search [-sources amazon,walmart] <query>")
	}

	cfg, err := utils.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *sources != "" {
		cfg.Scraper.Sources = strings.Split(*sources, ",")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	codec := price.NewCodec(cfg.Rates)
	srcs, err := scraper.NewSources(cfg.Scraper, codec, nil)
	if err != nil {
		log.Fatalf("sources: %v", err)
	}

	res, err := scraper.NewAggregator(codec, cfg.Scraper.SourceTimeout, nil, srcs...).Run(ctx, query)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}

	if *verbose {
		for _, r := range res.Reports {
			status := "ok"
			if !r.OK() {
				status = r.Err.Error()
			}
			log.Printf("%-10s %3d listings in %s (%s)", r.Source, r.Listings, r.Elapsed.Round(time.Millisecond), status)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Listings); err != nil {
		log.Fatalf("encode: %v", err)
	}
}
