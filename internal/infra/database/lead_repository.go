package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/salespilot/internal/entity"
)

const (
	activeEmailIndex = "leads_active_email_uq"
	timelineKey      = "lead_timeline_pkey"
)

const leadColumns = `id, name, email, phone, budget, service_type, status, created_at, updated_at`

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

// Create inserts the lead row and its timeline in one transaction.
func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO leads (`+leadColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			lead.ID, lead.Name, lead.Email, lead.Phone, lead.Budget,
			lead.ServiceType, string(lead.Status), lead.CreatedAt, lead.UpdatedAt,
		)
		if err != nil {
			return mapLeadError(err)
		}
		return insertTimeline(ctx, tx, lead.ID, 1, lead.Timeline)
	}, lead)
}

// Save updates the lead row and appends the timeline items added since load.
func (r *LeadRepository) Save(ctx context.Context, lead *entity.Lead) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE leads
			SET name = $2, phone = $3, budget = $4, service_type = $5, status = $6, updated_at = $7
			WHERE id = $1`,
			lead.ID, lead.Name, lead.Phone, lead.Budget, lead.ServiceType,
			string(lead.Status), lead.UpdatedAt,
		)
		if err != nil {
			return mapLeadError(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return entity.ErrLeadNotFound
		}

		pending := lead.PendingEvents()
		firstSeq := len(lead.Timeline) - len(pending) + 1
		return insertTimeline(ctx, tx, lead.ID, firstSeq, pending)
	}, lead)
}

func (r *LeadRepository) inTx(ctx context.Context, fn func(*sql.Tx) error, lead *entity.Lead) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapLeadError(err)
	}
	lead.MarkPersisted()
	return nil
}

func insertTimeline(ctx context.Context, tx *sql.Tx, leadID string, firstSeq int, items []entity.TimelineItem) error {
	for i, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO lead_timeline (lead_id, seq, event, occurred_at) VALUES ($1, $2, $3, $4)`,
			leadID, firstSeq+i, item.Event, item.Timestamp,
		)
		if uniqueConstraint(err) == timelineKey {
			return entity.ErrStaleLead
		}
		if err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
	}
	return nil
}

func mapLeadError(err error) error {
	if uniqueConstraint(err) == activeEmailIndex {
		return entity.ErrActiveLeadExists
	}
	return err
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	leads, err := r.query(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, entity.ErrLeadNotFound
	}
	return leads[0], nil
}

func (r *LeadRepository) FindActiveByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	return r.findOne(ctx, `WHERE email = $1 AND status <> ALL($2) ORDER BY created_at DESC LIMIT 1`,
		entity.NormalizeEmail(email), pq.Array(statusStrings(entity.TerminalStatuses)))
}

func (r *LeadRepository) FindLatestByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	return r.findOne(ctx, `WHERE email = $1 ORDER BY created_at DESC LIMIT 1`, entity.NormalizeEmail(email))
}

func (r *LeadRepository) FindAll(ctx context.Context) ([]*entity.Lead, error) {
	return r.query(ctx, `ORDER BY created_at DESC`)
}

func (r *LeadRepository) FindLeads(ctx context.Context, f entity.LeadFilter) ([]*entity.Lead, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.CreatedBefore.IsZero() {
		args = append(args, f.CreatedBefore)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if f.WithoutEvent != "" {
		args = append(args, f.WithoutEvent)
		where = append(where, fmt.Sprintf(
			"NOT EXISTS (SELECT 1 FROM lead_timeline t WHERE t.lead_id = leads.id AND t.event = $%d)", len(args)))
	}

	clause := "ORDER BY created_at ASC"
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ") + " " + clause
	}
	return r.query(ctx, clause, args...)
}

func (r *LeadRepository) findOne(ctx context.Context, clause string, args ...any) (*entity.Lead, error) {
	leads, err := r.query(ctx, clause, args...)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, entity.ErrLeadNotFound
	}
	return leads[0], nil
}

// query loads leads matching clause together with their timelines.
func (r *LeadRepository) query(ctx context.Context, clause string, args ...any) ([]*entity.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var (
		leads []*entity.Lead
		byID  = make(map[string]*entity.Lead)
		ids   []string
	)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
		byID[lead.ID] = lead
		ids = append(ids, lead.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, nil
	}

	if err := r.loadTimelines(ctx, ids, byID); err != nil {
		return nil, err
	}
	for _, lead := range leads {
		lead.MarkPersisted()
	}
	return leads, nil
}

func (r *LeadRepository) loadTimelines(ctx context.Context, ids []string, byID map[string]*entity.Lead) error {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT lead_id, event, occurred_at
		FROM lead_timeline
		WHERE lead_id::text = ANY($1)
		ORDER BY lead_id, seq`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			leadID string
			item   entity.TimelineItem
		)
		if err := rows.Scan(&leadID, &item.Event, &item.Timestamp); err != nil {
			return err
		}
		if lead, ok := byID[leadID]; ok {
			lead.Timeline = append(lead.Timeline, item)
		}
	}
	return rows.Err()
}

func scanLead(s scanner) (*entity.Lead, error) {
	var (
		lead             entity.Lead
		status           string
		created, updated time.Time
	)
	err := s.Scan(&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.Budget,
		&lead.ServiceType, &status, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}
	lead.Status = entity.Status(status)
	lead.CreatedAt = created.UTC()
	lead.UpdatedAt = updated.UTC()
	return &lead, nil
}

func statusStrings(statuses []entity.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
