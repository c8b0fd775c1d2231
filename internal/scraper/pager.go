package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"pricewatch/pkg/apperr"
)

// Pager runs the page protocol shared by every source: a fixed window of
// pages fetched concurrently, each retried a bounded number of times.
type Pager struct {
	Pages      int
	Attempts   int
	RetryDelay time.Duration
	Limiter    *rate.Limiter
	Logger     *log.Logger
}

// PageFunc fetches and extracts one result page.
type PageFunc[T any] func(ctx context.Context, page int) ([]T, error)

// PageStats summarizes one Collect call.
type PageStats struct {
	Pages  int
	Failed int
	Empty  int
}

// Collect fetches pages 1..Pages and returns their items in page order.
// A page that keeps failing or comes back empty contributes nothing.
func Collect[T any](ctx context.Context, p *Pager, source string, fetch PageFunc[T]) ([]T, PageStats) {
	pages := p.Pages
	if pages <= 0 {
		pages = 1
	}
	stats := PageStats{Pages: pages}
	perPage := make([][]T, pages)
	failed := make([]bool, pages)

	var g errgroup.Group
	for i := 0; i < pages; i++ {
		i := i
		page := i + 1
		g.Go(func() error {
			var items []T
			err := p.Retry(ctx, fmt.Sprintf("%s page %d", source, page), func(ctx context.Context) error {
				var err error
				items, err = fetch(ctx, page)
				return err
			})
			if err != nil {
				p.logger().Printf("[pager] %v", err)
				failed[i] = true
				return nil
			}
			if len(items) == 0 {
				p.logger().Printf("[pager] %s page %d: no listings found", source, page)
			}
			perPage[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var out []T
	for i, items := range perPage {
		switch {
		case failed[i]:
			stats.Failed++
		case len(items) == 0:
			stats.Empty++
		}
		out = append(out, items...)
	}
	return out, stats
}

// Retry runs fn up to Attempts times with RetryDelay between attempts,
// waiting on the limiter before each one.
func (p *Pager) Retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return apperr.E(apperr.SourceUnavailable, op, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return apperr.E(apperr.SourceUnavailable, op, err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		p.logger().Printf("[pager] %s failed (attempt %d/%d): %v", op, attempt, attempts, lastErr)
		select {
		case <-ctx.Done():
			return apperr.E(apperr.SourceUnavailable, op, ctx.Err())
		case <-time.After(p.RetryDelay):
		}
	}
	return apperr.Errorf(apperr.SourceUnavailable, op, "failed after %d attempts: %w", attempts, lastErr)
}

func (p *Pager) logger() *log.Logger {
	if p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}
