package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestHTTPFetcherRotatesUserAgents(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.UserAgent())
		mu.Unlock()
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, []string{"agent-a", "agent-b"})
	for i := 0; i < 3; i++ {
		body, err := f.Fetch(context.Background(), srv.URL+"/s?page=1")
		if err != nil {
			t.Fatalf("Fetch #%d: %v", i, err)
		}
		if string(body) != "<html><body>ok</body></html>" {
			t.Errorf("body = %q", body)
		}
	}

	want := []string{"agent-a", "agent-b", "agent-a"}
	for i, w := range want {
		if seen[i] != w {
			t.Errorf("request %d user agent = %q; want %q", i, seen[i], w)
		}
	}
}

func TestHTTPFetcherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "robot check", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, nil)
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 503 response")
	}
}

func TestHTTPFetcherCanceledContext(t *testing.T) {
	f := NewHTTPFetcher(time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Fetch(ctx, "http://127.0.0.1:1"); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestHTTPFetcherStopsAtDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte("<html><body>late</body></html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(10*time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	body, err := f.Fetch(ctx, srv.URL)
	if err == nil {
		t.Errorf("Fetch = %q, nil; want deadline error", body)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Fetch returned after %s; want it to stop near the 100ms deadline", elapsed)
	}
}
