package postgres

import (
	"context"
	"errors"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/repository"
	"github.com/and161185/estatedesk/internal/workflow"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// MaintenanceRepo implements MaintenanceRepository using PostgreSQL.
type MaintenanceRepo struct{ db *DB }

// NewMaintenanceRepo constructs a maintenance repository.
func NewMaintenanceRepo(db *DB) *MaintenanceRepo { return &MaintenanceRepo{db: db} }

const maintenanceCols = `id, resident_id, resident_name, flat_number, contact_number, title, description, category,
urgency, status, acknowledged_by, acknowledged_at, assigned_to, completed_at, notes, created_at, updated_at`

func scanMaintenance(row pgx.Row) (*model.MaintenanceRequest, error) {
	var (
		m                       model.MaintenanceRequest
		urgency, st             string
		ackBy, assignedTo, note *string
	)
	if err := row.Scan(&m.ID, &m.ResidentID, &m.ResidentName, &m.FlatNumber, &m.ContactNumber, &m.Title,
		&m.Description, &m.Category, &urgency, &st, &ackBy, &m.AcknowledgedAt, &assignedTo, &m.CompletedAt,
		&note, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Urgency = model.Urgency(urgency)
	m.Status = workflow.MaintenanceStatus(st)
	m.AcknowledgedBy, m.AssignedTo, m.Notes = deref(ackBy), deref(assignedTo), deref(note)
	return &m, nil
}

// List returns maintenance requests, newest first.
func (r *MaintenanceRepo) List(ctx context.Context, f repository.Filter) ([]model.MaintenanceRequest, error) {
	where, args := whereFilter(f, "resident_id")
	rows, err := r.db.Pool.Query(ctx, "SELECT "+maintenanceCols+" FROM maintenance_requests"+where+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MaintenanceRequest{}
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Get returns one maintenance request.
func (r *MaintenanceRepo) Get(ctx context.Context, id uuid.UUID) (*model.MaintenanceRequest, error) {
	m, err := scanMaintenance(r.db.Pool.QueryRow(ctx, "SELECT "+maintenanceCols+" FROM maintenance_requests WHERE id=$1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return m, err
}

// Create inserts a maintenance request.
func (r *MaintenanceRepo) Create(ctx context.Context, m *model.MaintenanceRequest) error {
	const q = `
INSERT INTO maintenance_requests (id, resident_id, resident_name, flat_number, contact_number, title, description,
  category, urgency, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`
	_, err := r.db.Pool.Exec(ctx, q, m.ID, m.ResidentID, m.ResidentName, m.FlatNumber, m.ContactNumber, m.Title,
		m.Description, m.Category, string(m.Urgency), string(m.Status), m.CreatedAt)
	return err
}

// UpdateStatus moves a request from -> to and stamps the matching side columns.
func (r *MaintenanceRepo) UpdateStatus(
	ctx context.Context, id uuid.UUID, from, to workflow.MaintenanceStatus, st repository.Stamp,
) (*model.MaintenanceRequest, error) {
	const q = `
UPDATE maintenance_requests
SET status=$3::text, updated_at=$4,
    acknowledged_by = CASE WHEN $3::text = 'acknowledged' THEN $5 ELSE acknowledged_by END,
    acknowledged_at = CASE WHEN $3::text = 'acknowledged' THEN $4 ELSE acknowledged_at END,
    completed_at    = CASE WHEN $3::text = 'completed' THEN $4 ELSE completed_at END
WHERE id=$1 AND status=$2
RETURNING ` + maintenanceCols
	m, err := scanMaintenance(r.db.Pool.QueryRow(ctx, q, id, string(from), string(to), st.At, st.Actor))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrVersionConflict
	}
	return m, err
}

// CountByStatus summarizes maintenance requests per status.
func (r *MaintenanceRepo) CountByStatus(ctx context.Context, owner uuid.UUID) ([]model.StatusCount, error) {
	return countByStatus(ctx, r.db, workflow.KindMaintenance, "resident_id", owner)
}
