// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/estatedesk/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to resident accounts of the identity provider.
type UserRepository interface {
	// Create inserts a new user and an empty profile row.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByPhone loads a user by phone number.
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	// SetPassword replaces the password hash and salt.
	SetPassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error
}

// AdminRepository provides access to the local administrator table.
type AdminRepository interface {
	// Create inserts an administrator.
	Create(ctx context.Context, a *model.AdminUser) error
	// GetByUsername loads an administrator by exact username.
	GetByUsername(ctx context.Context, username string) (*model.AdminUser, error)
	// TouchLastLogin stamps last_login.
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ProfileRepository provides access to resident profiles.
type ProfileRepository interface {
	// Get loads the profile of a user.
	Get(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	// Update writes name and phone fields.
	Update(ctx context.Context, p *model.Profile) error
	// SetMFA toggles the multi-factor flag.
	SetMFA(ctx context.Context, id uuid.UUID, enabled bool) error
}
