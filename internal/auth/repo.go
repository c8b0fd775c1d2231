package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pricewatch/pkg/apperr"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	TokenVersion int
	CreatedAt    time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) CreateUser(ctx context.Context, u User) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash)
	if err != nil {
		return apperr.E(apperr.PersistenceError, "create user", err)
	}
	return nil
}

// GetByEmail returns nil, nil when no user has that email.
func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, token_version, created_at
		FROM users WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.TokenVersion, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.E(apperr.PersistenceError, "get user", err)
	}
	return &u, nil
}

func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	var version int
	err := r.DB.QueryRowContext(ctx, `SELECT token_version FROM users WHERE id = ?`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.Errorf(apperr.NotFound, "get token version", "user %s not found", id)
	}
	if err != nil {
		return 0, apperr.E(apperr.PersistenceError, "get token version", err)
	}
	return version, nil
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET token_version = token_version + 1 WHERE id = ?`, id)
	if err != nil {
		return apperr.E(apperr.PersistenceError, "bump token version", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.E(apperr.PersistenceError, "bump token version", fmt.Errorf("rows affected: %w", err))
	}
	if affected == 0 {
		return apperr.Errorf(apperr.NotFound, "bump token version", "user %s not found", id)
	}
	return nil
}
