package search

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"pricewatch/internal/scraper"
	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

type stubRunner struct {
	calls    int
	listings []models.Listing
}

func (r *stubRunner) Run(_ context.Context, query string) (*scraper.Result, error) {
	r.calls++
	if query == "" {
		return nil, apperr.Errorf(apperr.InputError, "search", "query is required")
	}
	return &scraper.Result{Query: query, Listings: r.listings}, nil
}

func newTestService(r Runner) *Service {
	return NewService(r, NewCache(time.Minute, 10), log.New(io.Discard, "", 0))
}

func TestServiceSearchAndRecall(t *testing.T) {
	runner := &stubRunner{listings: []models.Listing{
		{DisplayPrice: "3,306.00 FCFA", ProductURL: "https://amazon.com/a"},
		{DisplayPrice: "4,200.00 FCFA", ProductURL: "https://walmart.com/b"},
	}}
	svc := newTestService(runner)

	out, err := svc.Search(context.Background(), "macbook")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.ID == "" || len(out.Listings) != 2 {
		t.Fatalf("Search = %+v", out)
	}

	got, err := svc.Listings(context.Background(), out.ID, "")
	if err != nil {
		t.Fatalf("Listings(id): %v", err)
	}
	if len(got) != 2 || runner.calls != 1 {
		t.Errorf("Listings(id) = %d listings, %d runs; want 2 listings, 1 run", len(got), runner.calls)
	}

	if _, err := svc.Listings(context.Background(), "", "macbook"); err != nil {
		t.Fatalf("Listings(query): %v", err)
	}
	if runner.calls != 2 {
		t.Errorf("runs = %d; want 2", runner.calls)
	}
}

func TestServiceRecallUnknown(t *testing.T) {
	svc := newTestService(&stubRunner{})
	_, err := svc.Recall("nope")
	if !apperr.Is(err, apperr.NotFound) {
		t.Errorf("Recall(unknown) err = %v; want not_found", err)
	}
}

func TestHandlerSearch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestService(&stubRunner{listings: []models.Listing{
		{DisplayPrice: "3,306.00 FCFA", ProductURL: "https://amazon.com/a"},
	}})
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group(""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?query=macbook", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200 (%s)", w.Code, w.Body.String())
	}
	var out Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.ID == "" || len(out.Listings) != 1 || out.Listings[0].DisplayPrice != "3,306.00 FCFA" {
		t.Errorf("body = %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search/"+out.ID, nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /search/:id status = %d; want 200", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d; want 400", w.Code)
	}
}
