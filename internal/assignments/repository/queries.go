package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leaddesk_backend/platform/apperr"
)

// ProspectSummary is the denormalized prospect context shown alongside an
// assignment in broker-facing views.
type ProspectSummary struct {
	ID                uuid.UUID `json:"id"`
	PropertyTitle     string    `json:"propertyTitle"`
	ClientName        string    `json:"clientName"`
	ClientPhone       string    `json:"clientPhone"`
	ContactPreference string    `json:"contactPreference"`
	Message           string    `json:"message"`
	CreatedAt         time.Time `json:"createdAt"`
}

type AssignmentDetail struct {
	Assignment
	Prospect ProspectSummary `json:"prospect"`
}

// BrokerSummary identifies the assignee in the admin audit view.
type BrokerSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// AdminAssignmentDetail is an audit row: the assignment with both its
// prospect context and the broker it was offered to.
type AdminAssignmentDetail struct {
	AssignmentDetail
	Broker BrokerSummary `json:"broker"`
}

type HistoryFilter struct {
	Status  *Status
	Search  string
	Page    int
	PerPage int
}

const detailQueryBase = `
	SELECT a.id, a.prospect_id, a.broker_id, a.status, a.reason, a.created_at, a.deadline, a.accepted_at,
	       p.id, pr.title, c.name, c.phone, p.contact_preference, p.message, p.created_at
	FROM assignments a
	JOIN prospects p ON p.id = a.prospect_id
	JOIN properties pr ON pr.id = p.property_id
	JOIN clients c ON c.id = p.client_id`

const adminDetailQueryBase = `
	SELECT a.id, a.prospect_id, a.broker_id, a.status, a.reason, a.created_at, a.deadline, a.accepted_at,
	       p.id, pr.title, c.name, c.phone, p.contact_preference, p.message, p.created_at,
	       b.name, b.email
	FROM assignments a
	JOIN brokers b ON b.id = a.broker_id
	JOIN prospects p ON p.id = a.prospect_id
	JOIN properties pr ON pr.id = p.property_id
	JOIN clients c ON c.id = p.client_id`

// ListByBroker returns the broker's live queue: assigned rows first, ordered
// by deadline so the next-to-expire lead is on top, then accepted rows.
func (r *Repository) ListByBroker(ctx context.Context, brokerID uuid.UUID, status *Status) ([]AssignmentDetail, error) {
	query := detailQueryBase + `
	WHERE a.broker_id = $1`
	args := []any{brokerID}

	if status != nil {
		query += ` AND a.status = $2`
		args = append(args, *status)
	} else {
		query += fmt.Sprintf(` AND a.status IN ('%s', '%s')`, StatusAssigned, StatusAccepted)
	}
	query += `
	ORDER BY CASE WHEN a.status = 'assigned' THEN 0 ELSE 1 END, a.deadline ASC NULLS LAST, a.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list broker assignments", err)
	}
	defer rows.Close()

	return collectDetails(rows)
}

// historyWhere builds the filter clause shared by the broker-scoped history
// and the admin audit. A nil brokerID leaves the query unscoped and widens
// the substring search to the broker name, so the audit can be filtered by
// assignee as well as by client and property.
func historyWhere(brokerID *uuid.UUID, filter HistoryFilter) (string, []any) {
	var conditions []string
	var args []any

	if brokerID != nil {
		args = append(args, *brokerID)
		conditions = append(conditions, fmt.Sprintf("a.broker_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		if brokerID == nil {
			conditions = append(conditions, fmt.Sprintf("(c.name ILIKE $%d OR pr.title ILIKE $%d OR b.name ILIKE $%d)", n, n, n))
		} else {
			conditions = append(conditions, fmt.Sprintf("(c.name ILIKE $%d OR pr.title ILIKE $%d)", n, n))
		}
	}
	if len(conditions) == 0 {
		return "", args
	}
	return "\n\tWHERE " + strings.Join(conditions, " AND "), args
}

func pageBounds(filter HistoryFilter) (page, perPage int) {
	page = filter.Page
	if page < 1 {
		page = 1
	}
	perPage = filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

// History returns the broker's resolved and pending assignments newest first,
// optionally filtered by status and a client name / property title search.
func (r *Repository) History(ctx context.Context, brokerID uuid.UUID, filter HistoryFilter) ([]AssignmentDetail, int, error) {
	where, args := historyWhere(&brokerID, filter)

	countQuery := `
	SELECT COUNT(*)
	FROM assignments a
	JOIN prospects p ON p.id = a.prospect_id
	JOIN properties pr ON pr.id = p.property_id
	JOIN clients c ON c.id = p.client_id` + where

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "count assignment history", err)
	}

	page, perPage := pageBounds(filter)
	args = append(args, perPage, (page-1)*perPage)
	query := detailQueryBase + where + fmt.Sprintf(`
	ORDER BY a.created_at DESC
	LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list assignment history", err)
	}
	defer rows.Close()

	details, err := collectDetails(rows)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// AdminHistory returns assignments across all brokers, joined with the
// assignee, so managers can trace the full path a lead took through the
// escalation chain.
func (r *Repository) AdminHistory(ctx context.Context, filter HistoryFilter) ([]AdminAssignmentDetail, int, error) {
	where, args := historyWhere(nil, filter)

	countQuery := `
	SELECT COUNT(*)
	FROM assignments a
	JOIN brokers b ON b.id = a.broker_id
	JOIN prospects p ON p.id = a.prospect_id
	JOIN properties pr ON pr.id = p.property_id
	JOIN clients c ON c.id = p.client_id` + where

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "count assignment audit", err)
	}

	page, perPage := pageBounds(filter)
	args = append(args, perPage, (page-1)*perPage)
	query := adminDetailQueryBase + where + fmt.Sprintf(`
	ORDER BY a.created_at DESC
	LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list assignment audit", err)
	}
	defer rows.Close()

	var out []AdminAssignmentDetail
	for rows.Next() {
		var d AdminAssignmentDetail
		var reason []byte
		err := rows.Scan(
			&d.ID, &d.ProspectID, &d.BrokerID, &d.Status, &reason, &d.CreatedAt, &d.Deadline, &d.AcceptedAt,
			&d.Prospect.ID, &d.Prospect.PropertyTitle, &d.Prospect.ClientName, &d.Prospect.ClientPhone,
			&d.Prospect.ContactPreference, &d.Prospect.Message, &d.Prospect.CreatedAt,
			&d.Broker.Name, &d.Broker.Email,
		)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "scan assignment audit row", err)
		}
		if len(reason) > 0 {
			if err := json.Unmarshal(reason, &d.Reason); err != nil {
				return nil, 0, apperr.Wrap(apperr.KindInternal, "decode assignment reason", err)
			}
		}
		d.Broker.ID = d.BrokerID
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "iterate assignment audit rows", err)
	}
	return out, total, nil
}

func collectDetails(rows pgx.Rows) ([]AssignmentDetail, error) {
	var out []AssignmentDetail
	for rows.Next() {
		var d AssignmentDetail
		var reason []byte
		err := rows.Scan(
			&d.ID, &d.ProspectID, &d.BrokerID, &d.Status, &reason, &d.CreatedAt, &d.Deadline, &d.AcceptedAt,
			&d.Prospect.ID, &d.Prospect.PropertyTitle, &d.Prospect.ClientName, &d.Prospect.ClientPhone,
			&d.Prospect.ContactPreference, &d.Prospect.Message, &d.Prospect.CreatedAt,
		)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan assignment detail", err)
		}
		if len(reason) > 0 {
			if err := json.Unmarshal(reason, &d.Reason); err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "decode assignment reason", err)
			}
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate assignment details", err)
	}
	return out, nil
}
