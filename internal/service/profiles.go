package service

import (
	"context"
	"fmt"
	"time"

	pkgcrypto "github.com/and161185/estatedesk/internal/crypto"
	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/repository"
)

// ProfileService edits the calling resident's profile and credentials.
type ProfileService interface {
	Get(ctx context.Context, a Actor) (*model.Profile, error)
	Update(ctx context.Context, a Actor, p model.Profile) (*model.Profile, error)
	SetMFA(ctx context.Context, a Actor, enabled bool) error
	// ChangePassword replaces the password and revokes the token it was called with.
	ChangePassword(ctx context.Context, a Actor, claims *Claims, current, next string) error
}

type ProfileServiceImpl struct {
	profiles repository.ProfileRepository
	users    repository.UserRepository
	tokens   *TokenIssuer
	now      clock
}

// NewProfileService constructs ProfileService.
func NewProfileService(profiles repository.ProfileRepository, users repository.UserRepository, tokens *TokenIssuer) *ProfileServiceImpl {
	return &ProfileServiceImpl{profiles: profiles, users: users, tokens: tokens, now: time.Now}
}

func (s *ProfileServiceImpl) Get(ctx context.Context, a Actor) (*model.Profile, error) {
	if err := a.resident(); err != nil {
		return nil, err
	}
	return s.profiles.Get(ctx, a.ID)
}

func (s *ProfileServiceImpl) Update(ctx context.Context, a Actor, p model.Profile) (*model.Profile, error) {
	if err := a.resident(); err != nil {
		return nil, err
	}
	cur, err := s.profiles.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	cur.FirstName, cur.LastName, cur.Phone = p.FirstName, p.LastName, normalizePhone(p.Phone)
	cur.UpdatedAt = s.now.stamp()
	if err := s.profiles.Update(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

func (s *ProfileServiceImpl) SetMFA(ctx context.Context, a Actor, enabled bool) error {
	if err := a.resident(); err != nil {
		return err
	}
	return s.profiles.SetMFA(ctx, a.ID, enabled)
}

// ChangePassword requires the current password when the account already has one.
func (s *ProfileServiceImpl) ChangePassword(ctx context.Context, a Actor, claims *Claims, current, next string) error {
	if err := a.resident(); err != nil {
		return err
	}
	if len(next) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", errs.ErrValidation, minPasswordLen)
	}
	u, err := s.users.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if len(u.PwdHash) > 0 && !pkgcrypto.VerifyPassword([]byte(current), u.SaltAuth, u.PwdHash) {
		return errs.ErrUnauthorized
	}
	hash, salt, err := pkgcrypto.NewPasswordHash(next)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, a.ID, hash, salt); err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, claims)
}
