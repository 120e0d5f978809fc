// Package auth issues access tokens for brokers and admins.
package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leaddesk_backend/platform/apperr"
)

type account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         string
	Active       bool
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) getByEmail(ctx context.Context, email string) (*account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, active
		FROM brokers
		WHERE email = $1`,
		email,
	)
	var a account
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load account", err)
	}
	return &a, nil
}
