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

// DeliveryRepo implements DeliveryRepository using PostgreSQL.
type DeliveryRepo struct{ db *DB }

// NewDeliveryRepo constructs a delivery repository.
func NewDeliveryRepo(db *DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

const deliveryCols = `id, user_id, delivery_name, carrier, tracking_number, scheduled_date, status, notes, created_at, updated_at`

func scanDelivery(row pgx.Row) (*model.Delivery, error) {
	var (
		d  model.Delivery
		st string
	)
	if err := row.Scan(&d.ID, &d.UserID, &d.DeliveryName, &d.Carrier, &d.TrackingNumber,
		&d.ScheduledDate, &st, &d.Notes, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Status = workflow.DeliveryStatus(st)
	return &d, nil
}

// List returns deliveries ordered by scheduled date, latest first.
func (r *DeliveryRepo) List(ctx context.Context, f repository.Filter) ([]model.Delivery, error) {
	where, args := whereFilter(f, "user_id")
	q := "SELECT " + deliveryCols + " FROM deliveries" + where + " ORDER BY scheduled_date DESC NULLS LAST, created_at DESC"
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Get returns one delivery.
func (r *DeliveryRepo) Get(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	d, err := scanDelivery(r.db.Pool.QueryRow(ctx, "SELECT "+deliveryCols+" FROM deliveries WHERE id=$1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return d, err
}

// Create inserts a delivery.
func (r *DeliveryRepo) Create(ctx context.Context, d *model.Delivery) error {
	const q = `
INSERT INTO deliveries (id, user_id, delivery_name, carrier, tracking_number, scheduled_date, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	_, err := r.db.Pool.Exec(ctx, q, d.ID, d.UserID, d.DeliveryName, d.Carrier, d.TrackingNumber,
		d.ScheduledDate, string(d.Status), d.Notes, d.CreatedAt)
	return err
}

// Update rewrites a delivery if its status is still seen.
func (r *DeliveryRepo) Update(ctx context.Context, d *model.Delivery, seen workflow.DeliveryStatus) error {
	const q = `
UPDATE deliveries
SET delivery_name=$3, carrier=$4, tracking_number=$5, scheduled_date=$6, status=$7, notes=$8, updated_at=$9
WHERE id=$1 AND user_id=$2 AND status=$10`
	tag, err := r.db.Pool.Exec(ctx, q, d.ID, d.UserID, d.DeliveryName, d.Carrier, d.TrackingNumber,
		d.ScheduledDate, string(d.Status), d.Notes, d.UpdatedAt, string(seen))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrVersionConflict
	}
	return nil
}

// Delete removes a delivery owned by userID.
func (r *DeliveryRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM deliveries WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CountByStatus summarizes deliveries per status.
func (r *DeliveryRepo) CountByStatus(ctx context.Context, owner uuid.UUID) ([]model.StatusCount, error) {
	return countByStatus(ctx, r.db, workflow.KindDelivery, "user_id", owner)
}
