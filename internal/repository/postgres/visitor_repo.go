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

// VisitorRepo implements VisitorRepository using PostgreSQL.
type VisitorRepo struct{ db *DB }

// NewVisitorRepo constructs a visitor repository.
func NewVisitorRepo(db *DB) *VisitorRepo { return &VisitorRepo{db: db} }

const visitorCols = `id, resident_id, host_name, host_flat_number, host_contact, visitor_name, visitor_phone,
visitor_email, expected_arrival, purpose, status, approved_by, approved_at, actual_arrival, actual_departure,
created_at, updated_at`

func scanVisitor(row pgx.Row) (*model.VisitorRequest, error) {
	var (
		v                 model.VisitorRequest
		st                string
		email, approvedBy *string
	)
	if err := row.Scan(&v.ID, &v.ResidentID, &v.HostName, &v.HostFlatNumber, &v.HostContact, &v.VisitorName,
		&v.VisitorPhone, &email, &v.ExpectedArrival, &v.Purpose, &st, &approvedBy, &v.ApprovedAt,
		&v.ActualArrival, &v.ActualDeparture, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.Status = workflow.VisitorStatus(st)
	v.VisitorEmail, v.ApprovedBy = deref(email), deref(approvedBy)
	return &v, nil
}

// List returns visitor requests, newest first.
func (r *VisitorRepo) List(ctx context.Context, f repository.Filter) ([]model.VisitorRequest, error) {
	where, args := whereFilter(f, "resident_id")
	rows, err := r.db.Pool.Query(ctx, "SELECT "+visitorCols+" FROM visitor_requests"+where+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.VisitorRequest{}
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// Get returns one visitor request.
func (r *VisitorRepo) Get(ctx context.Context, id uuid.UUID) (*model.VisitorRequest, error) {
	v, err := scanVisitor(r.db.Pool.QueryRow(ctx, "SELECT "+visitorCols+" FROM visitor_requests WHERE id=$1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return v, err
}

// Create inserts a visitor request.
func (r *VisitorRepo) Create(ctx context.Context, v *model.VisitorRequest) error {
	const q = `
INSERT INTO visitor_requests (id, resident_id, host_name, host_flat_number, host_contact, visitor_name,
  visitor_phone, visitor_email, expected_arrival, purpose, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`
	_, err := r.db.Pool.Exec(ctx, q, v.ID, v.ResidentID, v.HostName, v.HostFlatNumber, v.HostContact, v.VisitorName,
		v.VisitorPhone, nullIfEmpty(v.VisitorEmail), v.ExpectedArrival, v.Purpose, string(v.Status), v.CreatedAt)
	return err
}

// UpdateStatus moves a request from -> to; approval stamps approver and time.
func (r *VisitorRepo) UpdateStatus(
	ctx context.Context, id uuid.UUID, from, to workflow.VisitorStatus, st repository.Stamp,
) (*model.VisitorRequest, error) {
	const q = `
UPDATE visitor_requests
SET status=$3::text, updated_at=$4,
    approved_by = CASE WHEN $3::text = 'approved' THEN $5 ELSE approved_by END,
    approved_at = CASE WHEN $3::text = 'approved' THEN $4 ELSE approved_at END
WHERE id=$1 AND status=$2
RETURNING ` + visitorCols
	v, err := scanVisitor(r.db.Pool.QueryRow(ctx, q, id, string(from), string(to), st.At, st.Actor))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrVersionConflict
	}
	return v, err
}

// CountByStatus summarizes visitor requests per status.
func (r *VisitorRepo) CountByStatus(ctx context.Context, owner uuid.UUID) ([]model.StatusCount, error) {
	return countByStatus(ctx, r.db, workflow.KindVisitor, "resident_id", owner)
}
