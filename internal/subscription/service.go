package subscription

import (
	"context"
	"log"
	"strings"

	"pricewatch/internal/price"
	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

// ListingSource resolves a subscribe request to the result set to track.
type ListingSource interface {
	Listings(ctx context.Context, searchID, query string) ([]models.Listing, error)
}

// Request names the result set to subscribe to: a previous search by id,
// or a query to search afresh.
type Request struct {
	Query    string `json:"query"`
	SearchID string `json:"search_id"`
}

type Service struct {
	Store   Store
	Results ListingSource
	Codec   *price.Codec
	Logger  *log.Logger
}

func NewService(store Store, results ListingSource, codec *price.Codec, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{Store: store, Results: results, Codec: codec, Logger: logger}
}

// Subscribe records one subscription per listing in the result set that
// carries a valid price. The baseline of each row is the listing's price
// as displayed to the user.
func (s *Service) Subscribe(ctx context.Context, email string, req Request) (int, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return 0, apperr.Errorf(apperr.InputError, "subscribe", "email is required")
	}
	req.Query = strings.TrimSpace(req.Query)
	req.SearchID = strings.TrimSpace(req.SearchID)
	if req.Query == "" && req.SearchID == "" {
		return 0, apperr.Errorf(apperr.InputError, "subscribe", "query or search_id is required")
	}

	listings, err := s.Results.Listings(ctx, req.SearchID, req.Query)
	if err != nil {
		return 0, err
	}

	rows := s.Rows(email, listings)
	if len(rows) == 0 {
		return 0, apperr.Errorf(apperr.NotFound, "subscribe", "no priced results to subscribe to")
	}

	n, err := s.Store.InsertMany(ctx, rows)
	if err != nil {
		return 0, err
	}
	s.Logger.Printf("[subscribe] %s subscribed to %d products", email, n)
	return n, nil
}

// Rows maps listings to subscription rows, skipping unpriced ones.
func (s *Service) Rows(email string, listings []models.Listing) []models.Subscription {
	rows := make([]models.Subscription, 0, len(listings))
	for _, l := range listings {
		v := s.Codec.Parse(l.DisplayPrice)
		if !price.Valid(v) {
			continue
		}
		rows = append(rows, models.Subscription{
			ProductURL:    l.ProductURL,
			BaselinePrice: v,
			Email:         email,
		})
	}
	return rows
}

func (s *Service) List(ctx context.Context, email string) ([]models.Subscription, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, apperr.Errorf(apperr.InputError, "list subscriptions", "email is required")
	}
	return s.Store.ListByEmail(ctx, email)
}
