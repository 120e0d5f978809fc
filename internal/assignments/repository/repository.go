package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leaddesk_backend/platform/apperr"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

const assignmentColumns = `id, prospect_id, broker_id, status, reason, created_at, deadline, accepted_at`

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	var reason []byte
	if err := row.Scan(&a.ID, &a.ProspectID, &a.BrokerID, &a.Status, &reason, &a.CreatedAt, &a.Deadline, &a.AcceptedAt); err != nil {
		return nil, err
	}
	if len(reason) > 0 {
		if err := json.Unmarshal(reason, &a.Reason); err != nil {
			return nil, fmt.Errorf("decode assignment reason: %w", err)
		}
	}
	return &a, nil
}

func (r *Repository) CreateBatch(ctx context.Context, assignments []*Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin create assignments", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range assignments {
		reason, err := json.Marshal(a.Reason)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "encode assignment reason", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO assignments (id, prospect_id, broker_id, status, reason, created_at, deadline)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID, a.ProspectID, a.BrokerID, a.Status, reason, a.CreatedAt, a.Deadline,
		)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "insert assignment", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit create assignments", err)
	}
	return nil
}

// Accept performs the claim as a single conditional UPDATE. Zero rows means
// the assignment was already resolved (accepted elsewhere, expired, withdrawn)
// or is past its deadline; callers get KindConflict and the row is untouched.
func (r *Repository) Accept(ctx context.Context, id, brokerID uuid.UUID, now time.Time) (*Assignment, []Assignment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "begin accept assignment", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE assignments
		SET status = $1, accepted_at = $2, deadline = NULL
		WHERE id = $3
		  AND broker_id = $4
		  AND status = $5
		  AND (deadline IS NULL OR deadline > $2)
		RETURNING `+assignmentColumns,
		StatusAccepted, now, id, brokerID, StatusAssigned,
	)
	accepted, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperr.Conflict("assignment is no longer claimable")
		}
		return nil, nil, apperr.Wrap(apperr.KindInternal, "accept assignment", err)
	}

	rows, err := tx.Query(ctx, `
		UPDATE assignments
		SET status = $1, deadline = NULL
		WHERE prospect_id = $2
		  AND id <> $3
		  AND status = $4
		RETURNING `+assignmentColumns,
		StatusWithdrawn, accepted.ProspectID, accepted.ID, StatusAssigned,
	)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "withdraw sibling assignments", err)
	}
	withdrawn, err := collectAssignments(rows)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "withdraw sibling assignments", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "commit accept assignment", err)
	}
	return accepted, withdrawn, nil
}

// Expire is the same conditional-update shape as Accept: only a row that is
// still assigned transitions, and the observation time lands in the reason
// payload for later analysis.
func (r *Repository) Expire(ctx context.Context, id uuid.UUID, now time.Time) (*Assignment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE assignments
		SET status = $1,
		    deadline = NULL,
		    reason = jsonb_set(COALESCE(reason, '{}'::jsonb), '{expiredAt}', to_jsonb($2::timestamptz))
		WHERE id = $3
		  AND status = $4
		RETURNING `+assignmentColumns,
		StatusExpired, now, id, StatusAssigned,
	)
	expired, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindInternal, "expire assignment", err)
	}
	return expired, nil
}

func (r *Repository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]Assignment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "begin overdue scan", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE status = $1 AND deadline <= $2
		ORDER BY deadline ASC
		LIMIT $3
		FOR UPDATE SKIP LOCKED`,
		StatusAssigned, now, limit,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list overdue assignments", err)
	}
	overdue, err := collectAssignments(rows)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list overdue assignments", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "commit overdue scan", err)
	}
	return overdue, nil
}

func (r *Repository) CountAssigned(ctx context.Context, prospectID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assignments WHERE prospect_id = $1 AND status = $2`,
		prospectID, StatusAssigned,
	).Scan(&n)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "count assigned rows", err)
	}
	return n, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("assignment not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "get assignment", err)
	}
	return a, nil
}

func collectAssignments(rows pgx.Rows) ([]Assignment, error) {
	defer rows.Close()
	var out []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
