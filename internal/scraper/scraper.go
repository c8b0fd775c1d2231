package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pricewatch/internal/price"
	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

// Source is implemented by each external storefront. A source pages through
// its own search results and returns them already normalized.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string) ([]models.Listing, error)
}

// SourceReport records how one source behaved during a search.
type SourceReport struct {
	Source   string        `json:"source"`
	Listings int           `json:"listings"`
	Elapsed  time.Duration `json:"elapsed"`
	Err      error         `json:"-"`
}

func (r SourceReport) OK() bool { return r.Err == nil }

// Result is the outcome of one aggregated search.
type Result struct {
	Query    string           `json:"query"`
	Listings []models.Listing `json:"listings"`
	Reports  []SourceReport   `json:"reports"`
	Stats    RankStats        `json:"stats"`
}

// Aggregator fans a query out to every source and merges what comes back.
// Sources are merged in slice order, so earlier sources win duplicate URLs.
type Aggregator struct {
	Sources       []Source
	Codec         *price.Codec
	SourceTimeout time.Duration
	Logger        *log.Logger
}

// NewAggregator creates a new Aggregator over sources in priority order.
func NewAggregator(codec *price.Codec, sourceTimeout time.Duration, logger *log.Logger, sources ...Source) *Aggregator {
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{
		Sources:       sources,
		Codec:         codec,
		SourceTimeout: sourceTimeout,
		Logger:        logger,
	}
}

// Search returns the ranked listings for query.
func (a *Aggregator) Search(ctx context.Context, query string) ([]models.Listing, error) {
	res, err := a.Run(ctx, query)
	if err != nil {
		return nil, err
	}
	return res.Listings, nil
}

// Run is Search with per-source reports. Source failures never fail the
// search; they show up in Reports with an empty contribution.
func (a *Aggregator) Run(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Errorf(apperr.InputError, "search", "query is required")
	}

	lists := make([][]models.Listing, len(a.Sources))
	reports := make([]SourceReport, len(a.Sources))

	var g errgroup.Group
	for i, src := range a.Sources {
		i, src := i, src
		g.Go(func() error {
			lists[i], reports[i] = a.fetchOne(ctx, src, query)
			return nil
		})
	}
	_ = g.Wait()

	var merged []models.Listing
	for i, l := range lists {
		if err := reports[i].Err; err != nil {
			a.Logger.Printf("[scraper] source %s error: %v", reports[i].Source, err)
		}
		merged = append(merged, l...)
	}

	ranked, stats := Rank(a.Codec, merged)
	a.Logger.Printf("[scraper] %q: %d merged, %d unpriced, %d duplicates, %d returned",
		query, stats.Input, stats.Unpriced, stats.Duplicates, len(ranked))

	return &Result{Query: query, Listings: ranked, Reports: reports, Stats: stats}, nil
}

type fetchOutcome struct {
	listings []models.Listing
	err      error
}

// fetchOne runs a single source under its own deadline. A source that
// overruns, errors or panics contributes nothing.
func (a *Aggregator) fetchOne(ctx context.Context, src Source, query string) ([]models.Listing, SourceReport) {
	start := time.Now()
	report := SourceReport{Source: src.Name()}

	sctx := ctx
	if a.SourceTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, a.SourceTimeout)
		defer cancel()
	}

	done := make(chan fetchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchOutcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		l, err := src.Fetch(sctx, query)
		done <- fetchOutcome{listings: l, err: err}
	}()

	var out fetchOutcome
	select {
	case out = <-done:
	case <-sctx.Done():
		out.err = sctx.Err()
	}
	report.Elapsed = time.Since(start)

	if out.err != nil {
		report.Err = apperr.E(apperr.SourceUnavailable, src.Name(), out.err)
		return nil, report
	}
	a.Logger.Printf("[scraper] fetched %d listings from %s in %s", len(out.listings), src.Name(), report.Elapsed.Round(time.Millisecond))
	report.Listings = len(out.listings)
	return out.listings, report
}
