// Package monitor re-prices tracked products and alerts on drops.
package monitor

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pricewatch/internal/notify"
	"pricewatch/internal/price"
	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

// PriceLookup returns the current reporting-currency price of a product.
type PriceLookup interface {
	CurrentPrice(ctx context.Context, productURL string) (float64, error)
}

// Store is the part of the subscription store a cycle needs.
type Store interface {
	ListAll(ctx context.Context) ([]models.Subscription, error)
	UpdateBaseline(ctx context.Context, id int64, price float64) error
}

// Summary describes one monitoring cycle.
type Summary struct {
	RunID            string        `json:"run_id"`
	Started          time.Time     `json:"started"`
	Elapsed          time.Duration `json:"elapsed"`
	Checked          int           `json:"checked"`
	Alerts           int           `json:"alerts"`
	LookupFailures   int           `json:"lookup_failures"`
	DeliveryFailures int           `json:"delivery_failures"`
	UpdateFailures   int           `json:"update_failures"`
	ListFailed       bool          `json:"list_failed,omitempty"`
}

type Monitor struct {
	Store    Store
	Lookup   PriceLookup
	Notifier notify.Notifier
	Interval time.Duration
	// Workers bounds concurrent price lookups within a cycle.
	Workers int
	// OnRun, when set, receives every cycle's summary.
	OnRun  func(Summary)
	Logger *log.Logger

	mu  sync.Mutex
	now func() time.Time
}

func New(store Store, lookup PriceLookup, notifier notify.Notifier, interval time.Duration, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{
		Store:    store,
		Lookup:   lookup,
		Notifier: notifier,
		Interval: interval,
		Workers:  4,
		Logger:   logger,
		now:      time.Now,
	}
}

// Start runs a cycle every Interval until ctx is canceled. The first cycle
// runs one Interval after Start.
func (m *Monitor) Start(ctx context.Context) {
	if m.Interval <= 0 {
		m.Logger.Printf("[monitor] disabled: interval %s", m.Interval)
		return
	}
	m.Logger.Printf("[monitor] checking prices every %s", m.Interval)

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Logger.Printf("[monitor] stopped")
			return
		case <-ticker.C:
			m.RunNow(ctx)
		}
	}
}

type observation struct {
	price float64
	err   error
}

// RunNow runs one cycle over every subscription. Cycles never overlap; a
// call made during a running cycle waits for it. Failures are counted in
// the summary and logged, never returned.
func (m *Monitor) RunNow(ctx context.Context) ([]models.Alert, Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	sum := Summary{RunID: uuid.NewString(), Started: now()}
	defer func() {
		sum.Elapsed = now().Sub(sum.Started)
		m.Logger.Printf("[monitor] run %s: %d checked, %d alerts, %d lookup failures, %d delivery failures, %d update failures in %s",
			sum.RunID, sum.Checked, sum.Alerts, sum.LookupFailures, sum.DeliveryFailures, sum.UpdateFailures, sum.Elapsed.Round(time.Millisecond))
		if m.OnRun != nil {
			m.OnRun(sum)
		}
	}()

	subs, err := m.Store.ListAll(ctx)
	if err != nil {
		m.Logger.Printf("[monitor] list subscriptions: %v", err)
		sum.ListFailed = true
		return nil, sum
	}

	obs := m.observe(ctx, subs)

	var alerts []models.Alert
	for i, sub := range subs {
		sum.Checked++
		o := obs[i]
		if o.err != nil {
			sum.LookupFailures++
			m.Logger.Printf("[monitor] subscription %d (%s): %v", sub.ID, sub.ProductURL, o.err)
			continue
		}
		if !(o.price < sub.BaselinePrice) {
			continue
		}

		alert := models.Alert{
			SubscriptionID: sub.ID,
			Email:          sub.Email,
			ProductURL:     sub.ProductURL,
			PreviousPrice:  sub.BaselinePrice,
			CurrentPrice:   o.price,
			At:             now(),
		}
		alerts = append(alerts, alert)
		sum.Alerts++

		if m.Notifier != nil {
			if err := m.Notifier.Notify(ctx, alert); err != nil {
				sum.DeliveryFailures++
				m.Logger.Printf("[monitor] notify %s for subscription %d: %v", sub.Email, sub.ID, err)
			}
		}

		// The baseline advances even when delivery failed.
		if err := m.Store.UpdateBaseline(ctx, sub.ID, o.price); err != nil {
			sum.UpdateFailures++
			m.Logger.Printf("[monitor] update baseline for subscription %d: %v", sub.ID, err)
		}
	}
	return alerts, sum
}

// observe looks up every subscription's price concurrently. Results are
// index-aligned with subs.
func (m *Monitor) observe(ctx context.Context, subs []models.Subscription) []observation {
	out := make([]observation, len(subs))

	var g errgroup.Group
	if m.Workers > 0 {
		g.SetLimit(m.Workers)
	}
	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			out[i] = m.lookup(ctx, sub)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (m *Monitor) lookup(ctx context.Context, sub models.Subscription) (o observation) {
	defer func() {
		if r := recover(); r != nil {
			o = observation{err: apperr.Errorf(apperr.SourceUnavailable, "lookup", "panic: %v", r)}
		}
	}()

	u := strings.TrimSpace(sub.ProductURL)
	if u == "" || u == models.NotAvailable {
		return observation{err: apperr.Errorf(apperr.InputError, "lookup", "subscription has no product url")}
	}
	v, err := m.Lookup.CurrentPrice(ctx, u)
	if err != nil {
		return observation{err: err}
	}
	if !price.Valid(v) {
		return observation{err: apperr.Errorf(apperr.ParseError, "lookup", "unusable price %v", v)}
	}
	return observation{price: v}
}

func (m *Monitor) clock() func() time.Time {
	if m.now == nil {
		return time.Now
	}
	return m.now
}
