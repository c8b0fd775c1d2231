package search

import (
	"context"
	"log"

	"pricewatch/internal/scraper"
	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

// Runner is the part of the aggregator the service needs.
type Runner interface {
	Run(ctx context.Context, query string) (*scraper.Result, error)
}

// Outcome is a ranked result set plus the id it was cached under.
type Outcome struct {
	ID       string                 `json:"search_id"`
	Query    string                 `json:"query"`
	Listings []models.Listing       `json:"listings"`
	Sources  []scraper.SourceReport `json:"sources"`
}

type Service struct {
	Runner Runner
	Cache  *Cache
	Logger *log.Logger
}

func NewService(runner Runner, cache *Cache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{Runner: runner, Cache: cache, Logger: logger}
}

// Search runs a fresh aggregated search and remembers its result set.
func (s *Service) Search(ctx context.Context, query string) (*Outcome, error) {
	res, err := s.Runner.Run(ctx, query)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Query: res.Query, Listings: res.Listings, Sources: res.Reports}
	if out.Listings == nil {
		out.Listings = []models.Listing{}
	}
	if s.Cache != nil {
		out.ID = s.Cache.Put(res.Query, res.Listings)
	}
	s.Logger.Printf("[search] %q -> %d listings (id=%s)", res.Query, len(res.Listings), out.ID)
	return out, nil
}

// Recall returns a cached result set by id.
func (s *Service) Recall(id string) (*Outcome, error) {
	if s.Cache == nil {
		return nil, apperr.Errorf(apperr.NotFound, "recall", "search %s not found", id)
	}
	q, listings, ok := s.Cache.Get(id)
	if !ok {
		return nil, apperr.Errorf(apperr.NotFound, "recall", "search %s not found or expired", id)
	}
	return &Outcome{ID: id, Query: q, Listings: listings}, nil
}

// Listings resolves a subscribe request to a frozen result set: the cached
// set when searchID is given, a fresh search otherwise.
func (s *Service) Listings(ctx context.Context, searchID, query string) ([]models.Listing, error) {
	if searchID != "" {
		out, err := s.Recall(searchID)
		if err != nil {
			return nil, err
		}
		return out.Listings, nil
	}
	out, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return out.Listings, nil
}
