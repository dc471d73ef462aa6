package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/and161185/estatedesk/internal/crypto"
	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/limiter"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/repository"
)

// ErrAdminCredentialsRequired is the validation error for an empty username or password.
var ErrAdminCredentialsRequired = fmt.Errorf("%w: Username and password are required", errs.ErrValidation)

// AdminService checks credentials against the administrator table.
type AdminService interface {
	// Login returns a fresh AdminSession for valid credentials.
	Login(ctx context.Context, username, password, ip string) (model.AdminSession, error)
	// Ensure creates the administrator if the username is free.
	Ensure(ctx context.Context, username, password string) error
}

// AdminPolicy tunes what failed logins disclose.
type AdminPolicy struct {
	// RevealUsernames reports errs.ErrAdminUnknown and errs.ErrAdminPasswordMismatch
	// instead of errs.ErrUnauthorized.
	RevealUsernames bool
	TokenTTL        time.Duration
}

type AdminServiceImpl struct {
	admins repository.AdminRepository
	tokens *TokenIssuer
	lim    limiter.Limiter
	policy AdminPolicy
	now    func() time.Time
}

// NewAdminService constructs AdminService.
func NewAdminService(admins repository.AdminRepository, tokens *TokenIssuer, lim limiter.Limiter, p AdminPolicy) *AdminServiceImpl {
	return &AdminServiceImpl{admins: admins, tokens: tokens, lim: lim, policy: p, now: time.Now}
}

// Login looks the username up, verifies the password hash, stamps last_login and issues an admin token.
func (s *AdminServiceImpl) Login(ctx context.Context, username, password, ip string) (model.AdminSession, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.AdminSession{}, ErrAdminCredentialsRequired
	}
	key := limiter.NewKey(limiter.ScopeAdmin, username, ip)
	allowed, _, err := s.lim.Allow(ctx, key)
	if err != nil {
		return model.AdminSession{}, err
	}
	if !allowed {
		return model.AdminSession{}, errs.ErrRateLimited
	}

	a, err := s.admins.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return model.AdminSession{}, s.reject(ctx, key, errs.ErrAdminUnknown)
	case err != nil:
		return model.AdminSession{}, err
	case !pkgcrypto.VerifyPassword([]byte(password), a.SaltAuth, a.PwdHash):
		return model.AdminSession{}, s.reject(ctx, key, errs.ErrAdminPasswordMismatch)
	}
	_ = s.lim.Success(ctx, key)

	if err := s.admins.TouchLastLogin(ctx, a.ID, s.now().UTC()); err != nil {
		return model.AdminSession{}, err
	}
	tok, err := s.tokens.Issue(a.ID, KindAdmin, "", a.Username, s.policy.TokenTTL)
	if err != nil {
		return model.AdminSession{}, err
	}
	return model.AdminSession{ID: a.ID, Username: a.Username, Role: model.RoleAdmin, Token: tok.AccessToken}, nil
}

func (s *AdminServiceImpl) reject(ctx context.Context, key limiter.Key, reason error) error {
	if blocked, _, err := s.lim.Failure(ctx, key); err == nil && blocked {
		return errs.ErrRateLimited
	}
	if s.policy.RevealUsernames {
		return reason
	}
	return errs.ErrUnauthorized
}

// Ensure is used at startup to bootstrap the first administrator.
func (s *AdminServiceImpl) Ensure(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrAdminCredentialsRequired
	}
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	hash, salt, err := pkgcrypto.NewPasswordHash(password)
	if err != nil {
		return err
	}
	err = s.admins.Create(ctx, &model.AdminUser{ID: id, Username: username, PwdHash: hash, SaltAuth: salt})
	if errors.Is(err, errs.ErrAlreadyExists) {
		return nil
	}
	return err
}
