package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"pricewatch/internal/auth"
	"pricewatch/internal/price"
	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

type stubResults struct {
	listings []models.Listing
	err      error
	searchID string
	query    string
}

func (s *stubResults) Listings(_ context.Context, searchID, query string) ([]models.Listing, error) {
	s.searchID, s.query = searchID, query
	return s.listings, s.err
}

func newTestService(t *testing.T, results ListingSource) (*Service, *SQLStore) {
	t.Helper()
	store := NewSQLStore(openTestDB(t))
	codec := price.NewCodec(utils.DefaultConfig().Rates)
	return NewService(store, results, codec, log.New(io.Discard, "", 0)), store
}

func TestSubscribeInsertsOneRowPerPricedListing(t *testing.T) {
	results := &stubResults{listings: []models.Listing{
		{ProductURL: "https://amazon.com/a", DisplayPrice: "3,306.00 FCFA"},
		{ProductURL: "https://walmart.com/b", DisplayPrice: "4,200.50 FCFA"},
		{ProductURL: "https://glotelho.cm/c", DisplayPrice: "72,000.00 FCFA"},
	}}
	svc, store := newTestService(t, results)

	n, err := svc.Subscribe(context.Background(), " U@X.com ", Request{Query: "macbook"})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if n != 3 {
		t.Fatalf("Subscribe = %d; want 3", n)
	}
	if results.query != "macbook" {
		t.Errorf("query passed = %q; want macbook", results.query)
	}

	rows, _ := store.ListByEmail(context.Background(), "u@x.com")
	want := []float64{3306, 4200.5, 72000}
	if len(rows) != len(want) {
		t.Fatalf("stored %d rows; want %d", len(rows), len(want))
	}
	for i, r := range rows {
		if r.BaselinePrice != want[i] {
			t.Errorf("row %d baseline = %v; want %v", i, r.BaselinePrice, want[i])
		}
	}
}

func TestSubscribeSkipsUnpriced(t *testing.T) {
	results := &stubResults{listings: []models.Listing{
		{ProductURL: "https://amazon.com/a", DisplayPrice: "N/A"},
		{ProductURL: "https://amazon.com/b", DisplayPrice: "1,000.00 FCFA"},
	}}
	svc, _ := newTestService(t, results)

	n, err := svc.Subscribe(context.Background(), "u@x.com", Request{SearchID: "abc"})
	if err != nil || n != 1 {
		t.Errorf("Subscribe = %d, %v; want 1, nil", n, err)
	}
	if results.searchID != "abc" {
		t.Errorf("search id passed = %q; want abc", results.searchID)
	}
}

func TestSubscribeErrors(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		req     Request
		results *stubResults
		want    apperr.Kind
	}{
		{"missing email", "", Request{Query: "q"}, &stubResults{}, apperr.InputError},
		{"missing query", "u@x.com", Request{}, &stubResults{}, apperr.InputError},
		{"no results", "u@x.com", Request{Query: "q"}, &stubResults{}, apperr.NotFound},
		{"expired search", "u@x.com", Request{SearchID: "old"},
			&stubResults{err: apperr.Errorf(apperr.NotFound, "recall", "expired")}, apperr.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, tt.results)
			_, err := svc.Subscribe(context.Background(), tt.email, tt.req)
			if got := apperr.KindOf(err); got != tt.want {
				t.Errorf("Subscribe err = %v (kind %q); want kind %q", err, got, tt.want)
			}
			rows, _ := store.ListAll(context.Background())
			if len(rows) != 0 {
				t.Errorf("stored %d rows after error; want 0", len(rows))
			}
		})
	}
}

func TestHandlerSubscribe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t, &stubResults{listings: []models.Listing{
		{ProductURL: "https://amazon.com/a", DisplayPrice: "3,306.00 FCFA"},
	}})

	r := gin.New()
	g := r.Group("")
	g.Use(func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: "u1", Email: "u@x.com"})
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(g)

	body, _ := json.Marshal(Request{Query: "macbook"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("POST status = %d; want 201 (%s)", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscriptions", nil))
	var out struct {
		Total int                   `json:"total"`
		Items []models.Subscription `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 || out.Items[0].BaselinePrice != 3306 {
		t.Errorf("GET body = %s", w.Body.String())
	}
}
