package postgres

import (
	"context"

	"github.com/and161185/estatedesk/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AnnouncementRepo implements AnnouncementRepository using PostgreSQL.
type AnnouncementRepo struct{ db *DB }

// NewAnnouncementRepo constructs an announcement repository.
func NewAnnouncementRepo(db *DB) *AnnouncementRepo { return &AnnouncementRepo{db: db} }

// List returns announcements newest first; activeOnly hides inactive ones.
func (r *AnnouncementRepo) List(ctx context.Context, activeOnly bool) ([]model.Announcement, error) {
	q := `SELECT id, title, content, is_active, created_by, created_at, updated_at FROM announcements`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Announcement{}
	for rows.Next() {
		var a model.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.IsActive, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts an announcement.
func (r *AnnouncementRepo) Create(ctx context.Context, a *model.Announcement) error {
	const q = `
INSERT INTO announcements (id, title, content, is_active, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, a.Title, a.Content, a.IsActive, a.CreatedBy, a.CreatedAt)
	return err
}

// Update rewrites title, content and active flag.
func (r *AnnouncementRepo) Update(ctx context.Context, a *model.Announcement) error {
	const q = `UPDATE announcements SET title=$2, content=$3, is_active=$4, updated_at=$5 WHERE id=$1`
	return expectOne(r.db.Pool.Exec(ctx, q, a.ID, a.Title, a.Content, a.IsActive, a.UpdatedAt))
}

// SetActive toggles visibility to residents.
func (r *AnnouncementRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	const q = `UPDATE announcements SET is_active=$2, updated_at=now() WHERE id=$1`
	return expectOne(r.db.Pool.Exec(ctx, q, id, active))
}

// Delete removes an announcement.
func (r *AnnouncementRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return expectOne(r.db.Pool.Exec(ctx, `DELETE FROM announcements WHERE id=$1`, id))
}
