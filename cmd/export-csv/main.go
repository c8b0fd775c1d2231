package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"pricewatch/internal/price"
	"pricewatch/internal/subscription"
	"pricewatch/pkg/database"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config")
		out        = flag.String("out", "data/subscriptions.csv", "output CSV path")
		email      = flag.String("email", "", "only export this subscriber")
	)
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

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

	var subs []models.Subscription
	if *email != "" {
		subs, err = store.ListByEmail(ctx, *email)
	} else {
		subs, err = store.ListAll(ctx)
	}
	if err != nil {
		log.Fatalf("list subscriptions: %v", err)
	}

	if err := exportFile(*out, subs, price.NewCodec(cfg.Rates)); err != nil {
		log.Fatalf("export failed: %v", err)
	}
	log.Printf("exported %d subscriptions to %s", len(subs), *out)
}

func exportFile(outPath string, subs []models.Subscription, codec *price.Codec) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeSubscriptions(f, subs, codec); err != nil {
		return err
	}
	return f.Close()
}

func writeSubscriptions(out io.Writer, subs []models.Subscription, codec *price.Codec) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"id", "email", "product_url", "baseline_price", "baseline_display", "created_at"}); err != nil {
		return err
	}

	for _, s := range subs {
		created := ""
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.UTC().Format(time.RFC3339)
		}
		if err := w.Write([]string{
			strconv.FormatInt(s.ID, 10),
			s.Email,
			s.ProductURL,
			strconv.FormatFloat(s.BaselinePrice, 'f', 2, 64),
			codec.Format(s.BaselinePrice),
			created,
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
