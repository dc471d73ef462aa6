package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// AdminRepo implements AdminRepository using PostgreSQL.
type AdminRepo struct{ db *DB }

// NewAdminRepo constructs an admin repository.
func NewAdminRepo(db *DB) *AdminRepo { return &AdminRepo{db: db} }

// Create inserts an administrator.
func (r *AdminRepo) Create(ctx context.Context, a *model.AdminUser) error {
	const q = `INSERT INTO admin_users (id, username, pwd_hash, salt_auth) VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, a.Username, a.PwdHash, a.SaltAuth)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByUsername selects an administrator by exact username.
func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	const q = `
SELECT id, username, pwd_hash, salt_auth, last_login, created_at
FROM admin_users WHERE username=$1`
	var a model.AdminUser
	err := r.db.Pool.QueryRow(ctx, q, username).Scan(&a.ID, &a.Username, &a.PwdHash, &a.SaltAuth, &a.LastLogin, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// TouchLastLogin stamps last_login for a successful sign-in.
func (r *AdminRepo) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE admin_users SET last_login=$2 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, at)
	return err
}
