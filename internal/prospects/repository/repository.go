// Package repository persists prospects and the clients behind them.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leaddesk_backend/platform/apperr"
)

// Prospect is one registered interest of a client in a property.
type Prospect struct {
	ID                uuid.UUID `json:"id"`
	PropertyID        uuid.UUID `json:"propertyId"`
	ClientID          uuid.UUID `json:"clientId"`
	ContactPreference string    `json:"contactPreference"`
	Message           string    `json:"message"`
	CreatedAt         time.Time `json:"createdAt"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// PropertyExists checks that the property is published before intake.
func (r *Repository) PropertyExists(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM properties WHERE id = $1)`, propertyID,
	).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "check property", err)
	}
	return exists, nil
}

// UpsertClient finds or creates a client keyed by normalized phone. A repeat
// inquiry refreshes the stored name and email.
func (r *Repository) UpsertClient(ctx context.Context, name, email, phone string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email
		RETURNING id`,
		uuid.New(), name, email, phone,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindInternal, "upsert client", err)
	}
	return id, nil
}

// Create inserts the prospect row.
func (r *Repository) Create(ctx context.Context, p *Prospect) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prospects (id, property_id, client_id, contact_preference, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.PropertyID, p.ClientID, p.ContactPreference, p.Message, p.CreatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert prospect", err)
	}
	return nil
}

// GetByID returns a single prospect.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Prospect, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, property_id, client_id, contact_preference, message, created_at
		FROM prospects
		WHERE id = $1`, id,
	)
	var p Prospect
	err := row.Scan(&p.ID, &p.PropertyID, &p.ClientID, &p.ContactPreference, &p.Message, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("prospect not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "get prospect", err)
	}
	return &p, nil
}
