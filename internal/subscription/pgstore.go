package subscription

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS subscriptions (
  id            BIGSERIAL PRIMARY KEY,
  product_url   TEXT NOT NULL,
  initial_price DOUBLE PRECISION NOT NULL,
  email         TEXT NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_email ON subscriptions(email);
`

// PGStore is the PostgreSQL-backed Store.
type PGStore struct {
	Pool *pgxpool.Pool
}

// OpenPG connects to dsn and makes sure the subscriptions table exists.
func OpenPG(ctx context.Context, dsn string, maxConns int) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return &PGStore{Pool: pool}, nil
}

func (s *PGStore) Close() { s.Pool.Close() }

func (s *PGStore) InsertMany(ctx context.Context, rows []models.Subscription) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, apperr.E(apperr.PersistenceError, "insert subscriptions", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`INSERT INTO subscriptions (product_url, initial_price, email) VALUES ($1, $2, $3)`,
			r.ProductURL, r.BaselinePrice, r.Email)
	}
	br := tx.SendBatch(ctx, batch)
	for _, r := range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, apperr.E(apperr.PersistenceError, "insert subscriptions", fmt.Errorf("insert %s: %w", r.ProductURL, err))
		}
	}
	if err := br.Close(); err != nil {
		return 0, apperr.E(apperr.PersistenceError, "insert subscriptions", fmt.Errorf("close batch: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, apperr.E(apperr.PersistenceError, "insert subscriptions", fmt.Errorf("commit tx: %w", err))
	}
	return len(rows), nil
}

func (s *PGStore) ListAll(ctx context.Context) ([]models.Subscription, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, product_url, initial_price, email, created_at
		FROM subscriptions
		ORDER BY id
	`)
	if err != nil {
		return nil, apperr.E(apperr.PersistenceError, "list subscriptions", err)
	}
	return collectPG(rows, "list subscriptions")
}

func (s *PGStore) ListByEmail(ctx context.Context, email string) ([]models.Subscription, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, product_url, initial_price, email, created_at
		FROM subscriptions
		WHERE email = $1
		ORDER BY id
	`, email)
	if err != nil {
		return nil, apperr.E(apperr.PersistenceError, "list subscriptions by email", err)
	}
	return collectPG(rows, "list subscriptions by email")
}

func (s *PGStore) UpdateBaseline(ctx context.Context, id int64, price float64) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE subscriptions SET initial_price = $1 WHERE id = $2`, price, id)
	if err != nil {
		return apperr.E(apperr.PersistenceError, "update baseline", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Errorf(apperr.NotFound, "update baseline", "subscription %d not found", id)
	}
	return nil
}

func collectPG(rows pgx.Rows, op string) ([]models.Subscription, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Subscription, error) {
		var sub models.Subscription
		err := row.Scan(&sub.ID, &sub.ProductURL, &sub.BaselinePrice, &sub.Email, &sub.CreatedAt)
		return sub, err
	})
	if err != nil {
		return nil, apperr.E(apperr.PersistenceError, op, err)
	}
	if out == nil {
		out = []models.Subscription{}
	}
	return out, nil
}
