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

// UserRepo implements UserRepository and ProfileRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row together with its empty profile.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const ins = `
INSERT INTO users (id, email, phone, pwd_hash, salt_auth, provider)
VALUES ($1, $2, $3, $4, $5, $6)`
	const prof = `INSERT INTO profiles (id, phone) VALUES ($1, $2)`

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ins, u.ID, nullIfEmpty(u.Email), nullIfEmpty(u.Phone), u.PwdHash, u.SaltAuth, u.Provider); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, prof, u.ID, u.Phone)
		return err
	})
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

const selectUser = `
SELECT id, email, phone, pwd_hash, salt_auth, provider, created_at
FROM users`

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	row := r.db.Pool.QueryRow(ctx, selectUser+" WHERE "+where, arg)
	var (
		u            model.User
		email, phone *string
	)
	if err := row.Scan(&u.ID, &email, &phone, &u.PwdHash, &u.SaltAuth, &u.Provider, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	u.Email, u.Phone = deref(email), deref(phone)
	return &u, nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, "id=$1", id)
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email=$1", email)
}

// GetByPhone selects a user by phone number.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.getOne(ctx, "phone=$1", phone)
}

// SetPassword replaces the password hash.
func (r *UserRepo) SetPassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error {
	const q = `UPDATE users SET pwd_hash=$2, salt_auth=$3 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, hash, salt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ProfileRepo implements ProfileRepository.
type ProfileRepo struct{ db *DB }

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Get loads a profile.
func (r *ProfileRepo) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	const q = `
SELECT id, first_name, last_name, phone, mfa_enabled, updated_at
FROM profiles WHERE id=$1`
	var p model.Profile
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Phone, &p.MFAEnabled, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update writes the editable profile fields.
func (r *ProfileRepo) Update(ctx context.Context, p *model.Profile) error {
	const q = `
UPDATE profiles SET first_name=$2, last_name=$3, phone=$4, updated_at=$5
WHERE id=$1`
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	tag, err := r.db.Pool.Exec(ctx, q, p.ID, p.FirstName, p.LastName, p.Phone, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetMFA toggles the multi-factor flag.
func (r *ProfileRepo) SetMFA(ctx context.Context, id uuid.UUID, enabled bool) error {
	const q = `UPDATE profiles SET mfa_enabled=$2, updated_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
