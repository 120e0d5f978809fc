package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leaddesk_backend/platform/apperr"
)

// ProspectContext is the prospect detail embedded in notifications.
type ProspectContext struct {
	PropertyTitle string
	ClientName    string
	ClientPhone   string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ProspectContext(ctx context.Context, prospectID uuid.UUID) (*ProspectContext, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT pr.title, c.name, c.phone
		FROM prospects p
		JOIN properties pr ON pr.id = p.property_id
		JOIN clients c ON c.id = p.client_id
		WHERE p.id = $1`,
		prospectID,
	)
	var pc ProspectContext
	if err := row.Scan(&pc.PropertyTitle, &pc.ClientName, &pc.ClientPhone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("prospect not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load prospect context", err)
	}
	return &pc, nil
}
