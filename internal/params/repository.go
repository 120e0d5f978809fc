// Package params provides the SLA parameters record: how long a broker has to
// accept a lead and how many brokers receive it at once. The record is owned
// by external configuration screens; the assignment engine only reads it.
package params

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// Defaults applied when the parameters row is absent. The fallback SLA of
	// five minutes mirrors the intake flow's historical behavior.
	DefaultSLAMinutes  = 5
	DefaultFanoutCount = 1
)

// SLAParameters is the single logical tunables record.
type SLAParameters struct {
	SLAMinutes  int       `db:"sla_minutes"`
	FanoutCount int       `db:"fanout_count"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// SLA returns the acceptance window as a duration.
func (p SLAParameters) SLA() time.Duration {
	return time.Duration(p.SLAMinutes) * time.Minute
}

// Source supplies the current SLA parameters. The assignment engine reads
// through this interface so tests can substitute fixed values.
type Source interface {
	Current(ctx context.Context) (SLAParameters, error)
}

// Repository reads and updates the parameters row.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new parameters repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Current returns the parameters row, or defaults when none exists.
func (r *Repository) Current(ctx context.Context) (SLAParameters, error) {
	var p SLAParameters
	query := `SELECT sla_minutes, fanout_count, updated_at FROM sla_parameters LIMIT 1`

	err := r.pool.QueryRow(ctx, query).Scan(&p.SLAMinutes, &p.FanoutCount, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SLAParameters{SLAMinutes: DefaultSLAMinutes, FanoutCount: DefaultFanoutCount}, nil
		}
		return SLAParameters{}, fmt.Errorf("failed to load sla parameters: %w", err)
	}

	if p.SLAMinutes <= 0 {
		p.SLAMinutes = DefaultSLAMinutes
	}
	if p.FanoutCount < 0 {
		p.FanoutCount = DefaultFanoutCount
	}

	return p, nil
}

// Update replaces the parameters row, inserting it on first write.
func (r *Repository) Update(ctx context.Context, slaMinutes, fanoutCount int) (SLAParameters, error) {
	var p SLAParameters
	query := `
		INSERT INTO sla_parameters (id, sla_minutes, fanout_count, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			sla_minutes = EXCLUDED.sla_minutes,
			fanout_count = EXCLUDED.fanout_count,
			updated_at = now()
		RETURNING sla_minutes, fanout_count, updated_at`

	err := r.pool.QueryRow(ctx, query, slaMinutes, fanoutCount).Scan(&p.SLAMinutes, &p.FanoutCount, &p.UpdatedAt)
	if err != nil {
		return SLAParameters{}, fmt.Errorf("failed to update sla parameters: %w", err)
	}

	return p, nil
}

var _ Source = (*Repository)(nil)
