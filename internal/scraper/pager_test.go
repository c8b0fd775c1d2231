package scraper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pricewatch/pkg/apperr"
)

func testPager(pages, attempts int) *Pager {
	return &Pager{Pages: pages, Attempts: attempts, RetryDelay: time.Millisecond, Logger: quietLogger()}
}

func TestCollectRetriesFlakyPage(t *testing.T) {
	var mu sync.Mutex
	calls := map[int]int{}

	p := testPager(3, 3)
	items, stats := Collect(context.Background(), p, "test", func(ctx context.Context, page int) ([]int, error) {
		mu.Lock()
		calls[page]++
		n := calls[page]
		mu.Unlock()
		if page == 2 && n < 3 {
			return nil, errors.New("503")
		}
		return []int{page * 10, page*10 + 1}, nil
	})

	want := []int{10, 11, 20, 21, 30, 31}
	if len(items) != len(want) {
		t.Fatalf("items = %v; want %v", items, want)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("items[%d] = %d; want %d (page order)", i, items[i], want[i])
		}
	}
	if calls[2] != 3 {
		t.Errorf("page 2 attempts = %d; want 3", calls[2])
	}
	if stats.Failed != 0 || stats.Empty != 0 {
		t.Errorf("stats = %+v; want no failures", stats)
	}
}

func TestCollectExhaustedPageContributesNothing(t *testing.T) {
	var attempts atomic.Int32
	p := testPager(3, 3)
	items, stats := Collect(context.Background(), p, "test", func(ctx context.Context, page int) ([]string, error) {
		switch page {
		case 1:
			attempts.Add(1)
			return nil, errors.New("timeout")
		case 2:
			return nil, nil
		}
		return []string{"ok"}, nil
	})

	if len(items) != 1 || items[0] != "ok" {
		t.Errorf("items = %v; want [ok]", items)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts on failing page = %d; want 3", attempts.Load())
	}
	if stats.Failed != 1 || stats.Empty != 1 || stats.Pages != 3 {
		t.Errorf("stats = %+v; want 1 failed, 1 empty of 3", stats)
	}
}

func TestCollectFetchesPagesConcurrently(t *testing.T) {
	p := testPager(5, 1)
	var inFlight, peak atomic.Int32
	start := time.Now()
	Collect(context.Background(), p, "test", func(ctx context.Context, page int) ([]int, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		inFlight.Add(-1)
		return []int{page}, nil
	})
	if peak.Load() < 2 {
		t.Errorf("peak concurrency = %d; want pages fetched in parallel", peak.Load())
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Errorf("5 pages took %v; expected them to overlap", time.Since(start))
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	p := &Pager{Attempts: 5, RetryDelay: time.Hour, Logger: quietLogger()}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	err := p.Retry(ctx, "op", func(ctx context.Context) error {
		calls++
		return errors.New("nope")
	})
	if !apperr.Is(err, apperr.SourceUnavailable) {
		t.Errorf("err = %v; want SourceUnavailable", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d; want 1 before the context expired", calls)
	}
}
