package subscription

import (
	"context"
	"database/sql"
	"fmt"

	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

// Store persists subscriptions. Rows are never deleted here; only the
// baseline of a single row is ever rewritten.
type Store interface {
	InsertMany(ctx context.Context, rows []models.Subscription) (int, error)
	ListAll(ctx context.Context) ([]models.Subscription, error)
	ListByEmail(ctx context.Context, email string) ([]models.Subscription, error)
	UpdateBaseline(ctx context.Context, id int64, price float64) error
}

// SQLStore is the SQLite-backed Store.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

// InsertMany writes rows in one transaction. Either all rows land or none do.
func (s *SQLStore) InsertMany(ctx context.Context, rows []models.Subscription) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.E(apperr.PersistenceError, "insert subscriptions", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO subscriptions (product_url, initial_price, email)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, apperr.E(apperr.PersistenceError, "insert subscriptions", fmt.Errorf("prepare stmt: %w", err))
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.ProductURL, r.BaselinePrice, r.Email); err != nil {
			return 0, apperr.E(apperr.PersistenceError, "insert subscriptions", fmt.Errorf("insert %s: %w", r.ProductURL, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.E(apperr.PersistenceError, "insert subscriptions", fmt.Errorf("commit tx: %w", err))
	}
	return len(rows), nil
}

func (s *SQLStore) ListAll(ctx context.Context) ([]models.Subscription, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, product_url, initial_price, email, created_at
		FROM subscriptions
		ORDER BY id
	`)
	if err != nil {
		return nil, apperr.E(apperr.PersistenceError, "list subscriptions", err)
	}
	return scanRows(rows, "list subscriptions")
}

func (s *SQLStore) ListByEmail(ctx context.Context, email string) ([]models.Subscription, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, product_url, initial_price, email, created_at
		FROM subscriptions
		WHERE email = ?
		ORDER BY id
	`, email)
	if err != nil {
		return nil, apperr.E(apperr.PersistenceError, "list subscriptions by email", err)
	}
	return scanRows(rows, "list subscriptions by email")
}

// UpdateBaseline rewrites the baseline of exactly one row.
func (s *SQLStore) UpdateBaseline(ctx context.Context, id int64, price float64) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE subscriptions
		SET initial_price = ?
		WHERE id = ?
	`, price, id)
	if err != nil {
		return apperr.E(apperr.PersistenceError, "update baseline", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.E(apperr.PersistenceError, "update baseline", fmt.Errorf("rows affected: %w", err))
	}
	if affected == 0 {
		return apperr.Errorf(apperr.NotFound, "update baseline", "subscription %d not found", id)
	}
	return nil
}

func scanRows(rows *sql.Rows, op string) ([]models.Subscription, error) {
	defer rows.Close()

	out := []models.Subscription{}
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.ProductURL, &sub.BaselinePrice, &sub.Email, &sub.CreatedAt); err != nil {
			return nil, apperr.E(apperr.PersistenceError, op, fmt.Errorf("scan: %w", err))
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.E(apperr.PersistenceError, op, err)
	}
	return out, nil
}
