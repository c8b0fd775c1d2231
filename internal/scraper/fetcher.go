package scraper

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
)

// Fetcher retrieves the raw HTML of one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches pages with a plain HTTP client, rotating user agents
// between requests.
type HTTPFetcher struct {
	base   *colly.Collector
	agents []string
	next   atomic.Uint64
}

func NewHTTPFetcher(timeout time.Duration, userAgents []string) *HTTPFetcher {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(timeout)
	return &HTTPFetcher{base: c, agents: userAgents}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.base.Clone()
	c.Context = ctx
	if ua := f.userAgent(); ua != "" {
		c.UserAgent = ua
	}

	var body []byte
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("visit %s: %w", url, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *HTTPFetcher) userAgent() string {
	if len(f.agents) == 0 {
		return ""
	}
	n := f.next.Add(1)
	return f.agents[int(n-1)%len(f.agents)]
}

// BrowserFetcher renders pages in headless Chrome for storefronts that build
// their result grid client-side.
type BrowserFetcher struct {
	Timeout   time.Duration
	UserAgent string
	ExecPath  string
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if f.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.UserAgent))
	}
	if f.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tabCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	return []byte(html), nil
}
