// Package repository persists broker scores. Every mutation is a single
// INSERT ... ON CONFLICT DO UPDATE so concurrent events for the same broker
// serialize at the row level without lost updates.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leaddesk_backend/platform/apperr"
)

// Score is one broker's gamification row.
type Score struct {
	BrokerID           uuid.UUID `json:"brokerId"`
	XPTotal            int       `json:"xpTotal"`
	Level              int       `json:"level"`
	LeadsReceived      int       `json:"leadsReceived"`
	LeadsAccepted      int       `json:"leadsAccepted"`
	LeadsExpired       int       `json:"leadsExpired"`
	Visits             int       `json:"visits"`
	Sales              int       `json:"sales"`
	AvgResponseSeconds *float64  `json:"avgResponseSeconds,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// LeaderboardEntry is a Score joined with broker identity for ranking views.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	BrokerName string `json:"brokerName"`
	Score
}

type LeaderboardFilter struct {
	Search  string
	Page    int
	PerPage int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const levelExpr = "/ 100 + 1" // keep in sync with service.LevelBase

// AddReceived bumps the received counter.
func (r *Repository) AddReceived(ctx context.Context, brokerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO broker_scores (broker_id, leads_received)
		VALUES ($1, 1)
		ON CONFLICT (broker_id) DO UPDATE SET
			leads_received = broker_scores.leads_received + 1,
			updated_at = NOW()`,
		brokerID,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "record lead received", err)
	}
	return nil
}

// AddAccepted awards XP (computed by the caller from the accept latency),
// bumps the accepted counter and folds the latency into the running average:
// the first sample lands as-is, later samples average against the previous
// value.
func (r *Repository) AddAccepted(ctx context.Context, brokerID uuid.UUID, xpAward int, timeToAcceptSeconds int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO broker_scores (broker_id, xp_total, level, leads_accepted, avg_response_seconds)
		VALUES ($1, $2, $2 `+levelExpr+`, 1, $3::double precision)
		ON CONFLICT (broker_id) DO UPDATE SET
			leads_accepted = broker_scores.leads_accepted + 1,
			xp_total = broker_scores.xp_total + $2,
			level = (broker_scores.xp_total + $2) `+levelExpr+`,
			avg_response_seconds = CASE
				WHEN broker_scores.avg_response_seconds IS NULL THEN $3::double precision
				ELSE (broker_scores.avg_response_seconds + $3::double precision) / 2
			END,
			updated_at = NOW()`,
		brokerID, xpAward, timeToAcceptSeconds,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "record lead accepted", err)
	}
	return nil
}

// AddExpired applies the expiration penalty, clamped so totals never go
// negative, and bumps the expired counter.
func (r *Repository) AddExpired(ctx context.Context, brokerID uuid.UUID, penalty int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO broker_scores (broker_id, leads_expired)
		VALUES ($1, 1)
		ON CONFLICT (broker_id) DO UPDATE SET
			leads_expired = broker_scores.leads_expired + 1,
			xp_total = GREATEST(broker_scores.xp_total - $2, 0),
			level = GREATEST(broker_scores.xp_total - $2, 0) `+levelExpr+`,
			updated_at = NOW()`,
		brokerID, penalty,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "record lead expired", err)
	}
	return nil
}

// AddVisit awards XP for a scheduled visit.
func (r *Repository) AddVisit(ctx context.Context, brokerID uuid.UUID, xpAward int) error {
	return r.addCounterXP(ctx, brokerID, "visits", xpAward, "record visit")
}

// AddSale awards XP for a completed sale.
func (r *Repository) AddSale(ctx context.Context, brokerID uuid.UUID, xpAward int) error {
	return r.addCounterXP(ctx, brokerID, "sales", xpAward, "record sale")
}

func (r *Repository) addCounterXP(ctx context.Context, brokerID uuid.UUID, counter string, xpAward int, op string) error {
	query := fmt.Sprintf(`
		INSERT INTO broker_scores (broker_id, xp_total, level, %[1]s)
		VALUES ($1, $2, $2 %[2]s, 1)
		ON CONFLICT (broker_id) DO UPDATE SET
			%[1]s = broker_scores.%[1]s + 1,
			xp_total = broker_scores.xp_total + $2,
			level = (broker_scores.xp_total + $2) %[2]s,
			updated_at = NOW()`, counter, levelExpr)
	if _, err := r.pool.Exec(ctx, query, brokerID, xpAward); err != nil {
		return apperr.Wrap(apperr.KindInternal, op, err)
	}
	return nil
}

// Get returns a broker's score, or a zero-valued row for brokers who have no
// activity yet.
func (r *Repository) Get(ctx context.Context, brokerID uuid.UUID) (*Score, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT broker_id, xp_total, level, leads_received, leads_accepted, leads_expired,
		       visits, sales, avg_response_seconds, updated_at
		FROM broker_scores
		WHERE broker_id = $1`,
		brokerID,
	)
	var s Score
	err := row.Scan(&s.BrokerID, &s.XPTotal, &s.Level, &s.LeadsReceived, &s.LeadsAccepted,
		&s.LeadsExpired, &s.Visits, &s.Sales, &s.AvgResponseSeconds, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Score{BrokerID: brokerID, Level: 1, UpdatedAt: time.Now().UTC()}, nil
		}
		return nil, apperr.Wrap(apperr.KindInternal, "get broker score", err)
	}
	return &s, nil
}

// HasAcceptedAssignment reports whether the broker holds an accepted
// assignment for the prospect. Visit and sale awards are gated on this.
func (r *Repository) HasAcceptedAssignment(ctx context.Context, brokerID, prospectID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM assignments
			WHERE broker_id = $1 AND prospect_id = $2 AND status = 'accepted'
		)`,
		brokerID, prospectID,
	).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "check accepted assignment", err)
	}
	return exists, nil
}

// leaderboardWhere restricts the ranking to active broker-role rows and
// applies the optional substring search on name or email.
func leaderboardWhere(search string) (string, []any) {
	conditions := []string{"b.active", "b.role = 'broker'"}
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		args = append(args, "%"+s+"%")
		conditions = append(conditions, fmt.Sprintf("(b.name ILIKE $%d OR b.email ILIKE $%d)", len(args), len(args)))
	}
	return "\n\t\tWHERE " + strings.Join(conditions, " AND "), args
}

// Leaderboard ranks active brokers by XP. Brokers without a score row rank
// at the bottom with zeroed stats.
func (r *Repository) Leaderboard(ctx context.Context, filter LeaderboardFilter) ([]LeaderboardEntry, int, error) {
	where, args := leaderboardWhere(filter.Search)

	var total int
	countQuery := `SELECT COUNT(*) FROM brokers b` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "count leaderboard", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	args = append(args, perPage, (page-1)*perPage)

	query := `
		SELECT b.id, b.name,
		       COALESCE(s.xp_total, 0), COALESCE(s.level, 1),
		       COALESCE(s.leads_received, 0), COALESCE(s.leads_accepted, 0), COALESCE(s.leads_expired, 0),
		       COALESCE(s.visits, 0), COALESCE(s.sales, 0),
		       s.avg_response_seconds, COALESCE(s.updated_at, b.created_at)
		FROM brokers b
		LEFT JOIN broker_scores s ON s.broker_id = b.id` + where + fmt.Sprintf(`
		ORDER BY COALESCE(s.xp_total, 0) DESC, COALESCE(s.level, 1) DESC, b.name ASC
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list leaderboard", err)
	}
	defer rows.Close()

	var out []LeaderboardEntry
	rank := (page-1)*perPage + 1
	for rows.Next() {
		var e LeaderboardEntry
		err := rows.Scan(&e.BrokerID, &e.BrokerName, &e.XPTotal, &e.Level,
			&e.LeadsReceived, &e.LeadsAccepted, &e.LeadsExpired,
			&e.Visits, &e.Sales, &e.AvgResponseSeconds, &e.UpdatedAt)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "scan leaderboard entry", err)
		}
		e.Rank = rank
		rank++
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "iterate leaderboard", err)
	}
	return out, total, nil
}
