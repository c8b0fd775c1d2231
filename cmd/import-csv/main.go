package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"pricewatch/internal/subscription"
	"pricewatch/pkg/database"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

// import-csv loads subscriptions written by export-csv (or by hand) into
// the store. Only the email, product_url and baseline_price columns are read.
func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config")
		in         = flag.String("in", "data/subscriptions.csv", "input CSV path")
	)
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("open %s: %v", *in, err)
	}
	defer f.Close()

	rows, err := readSubscriptions(f)
	if err != nil {
		log.Fatalf("read %s: %v", *in, err)
	}

	var store subscription.Store
	if cfg.DB.Driver == "postgres" {
		pg, err := subscription.OpenPG(ctx, cfg.DB.DSN, cfg.DB.MaxConns)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pg.Close()
		store = pg
	} else {
		db := database.MustOpen(cfg.DB)
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			log.Fatalf("db migrate failed: %v", err)
		}
		store = subscription.NewSQLStore(db)
	}

	n, err := store.InsertMany(ctx, rows)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	log.Printf("imported %d subscriptions from %s", n, *in)
}

func readSubscriptions(in io.Reader) ([]models.Subscription, error) {
	r := csv.NewReader(in)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"email", "product_url", "baseline_price"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var out []models.Subscription
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		email := strings.ToLower(strings.TrimSpace(rec[col["email"]]))
		productURL := strings.TrimSpace(rec[col["product_url"]])
		baseline, err := strconv.ParseFloat(strings.TrimSpace(rec[col["baseline_price"]]), 64)
		if err != nil || baseline <= 0 {
			return nil, fmt.Errorf("line %d: invalid baseline_price %q", line, rec[col["baseline_price"]])
		}
		if email == "" || productURL == "" {
			return nil, fmt.Errorf("line %d: email and product_url are required", line)
		}
		out = append(out, models.Subscription{Email: email, ProductURL: productURL, BaselinePrice: baseline})
	}
	return out, nil
}
