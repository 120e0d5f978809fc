package brokers

import (
	"context"
	"errors"
	"fmt"

	"leaddesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository selects brokers from Postgres. The ranking favors proven
// performers first (score level, then XP), then spreads load: fewest
// assignments received, longest since the last one, oldest account last.
// Brokers who already hold or held an assignment for the prospect are
// excluded, which is what makes escalation walk down the pool instead of
// cycling.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new brokers repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NextEligible implements Selector.
func (r *Repository) NextEligible(ctx context.Context, prospectID uuid.UUID, limit int) ([]Broker, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT b.id, b.name, b.email, b.phone
		FROM brokers b
		LEFT JOIN broker_scores bs ON bs.broker_id = b.id
		LEFT JOIN assignments a ON a.broker_id = b.id
		WHERE b.active = true
		  AND b.role = 'broker'
		  AND b.id NOT IN (
			SELECT broker_id FROM assignments WHERE prospect_id = $1
		  )
		GROUP BY b.id, b.name, b.email, b.phone, bs.level, bs.xp_total
		ORDER BY
			COALESCE(bs.level, 0) DESC,
			COALESCE(bs.xp_total, 0) DESC,
			COUNT(a.id) ASC,
			MAX(a.created_at) ASC NULLS FIRST,
			b.created_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, prospectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select eligible brokers: %w", err)
	}
	defer rows.Close()

	var result []Broker
	for rows.Next() {
		var b Broker
		if err := rows.Scan(&b.ID, &b.Name, &b.Email, &b.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan broker: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read eligible brokers: %w", err)
	}

	return result, nil
}

// GetByID returns a single active broker, for notification display fields.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Broker, error) {
	var b Broker
	query := `SELECT id, name, email, phone FROM brokers WHERE id = $1 AND active = true`

	err := r.pool.QueryRow(ctx, query, id).Scan(&b.ID, &b.Name, &b.Email, &b.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("broker not found")
		}
		return nil, fmt.Errorf("failed to get broker: %w", err)
	}

	return &b, nil
}

var _ Selector = (*Repository)(nil)
