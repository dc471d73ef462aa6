// Package service contains the application services behind the HTTP API:
// identity, admin credentials, resident requests, announcements and profiles.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/cache"
	pkgcrypto "github.com/and161185/estatedesk/internal/crypto"
	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/limiter"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/repository"
)

const (
	minPasswordLen   = 6
	maxCodeAttempts  = 5
	oauthStateTTL    = 10 * time.Minute
	providerPassword = "password"
	providerPhone    = "phone"
	providerGoogle   = "google"
)

// AuthService is the resident identity provider.
type AuthService interface {
	// SignUp creates a password account and returns its first session.
	SignUp(ctx context.Context, email, password string) (model.UserSession, error)
	// SignIn checks a password. With MFA enabled it returns errs.ErrMFARequired carrying factor_id=<id>.
	SignIn(ctx context.Context, email, password, ip string) (model.UserSession, error)
	// VerifyMFA completes a sign-in started by SignIn.
	VerifyMFA(ctx context.Context, factorID, code, ip string) (model.UserSession, error)
	// SendPhoneCode texts a one-time code to phone.
	SendPhoneCode(ctx context.Context, phone string) error
	// VerifyPhoneCode signs in (or up) by phone.
	VerifyPhoneCode(ctx context.Context, phone, code, ip string) (model.UserSession, error)
	// FederatedURL returns the provider URL that starts a federated sign-in.
	FederatedURL(ctx context.Context, returnTo string) (string, error)
	// CompleteFederated finishes a federated sign-in and returns where to send the browser.
	CompleteFederated(ctx context.Context, state, code string) (model.UserSession, string, error)
	// SignOut revokes the token described by claims.
	SignOut(ctx context.Context, claims *Claims) error
}

// AuthDeps groups the collaborators of AuthServiceImpl.
type AuthDeps struct {
	Users    repository.UserRepository
	Profiles repository.ProfileRepository
	Tokens   *TokenIssuer
	Limiter  limiter.Limiter
	Cache    cache.Cache
	Sender   Sender
	// Federation is nil when federated sign-in is not configured.
	Federation Federation
	AccessTTL  time.Duration
	CodeTTL    time.Duration
}

type AuthServiceImpl struct {
	d     AuthDeps
	codes *challenges
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(d AuthDeps) *AuthServiceImpl {
	return &AuthServiceImpl{
		d:     d,
		codes: &challenges{c: d.Cache, ttl: d.CodeTTL, maxAttempts: maxCodeAttempts},
	}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func normalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, s)
}

// SignUp creates a new user record with a per-user salt.
func (s *AuthServiceImpl) SignUp(ctx context.Context, email, password string) (model.UserSession, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return model.UserSession{}, fmt.Errorf("%w: email and password required", errs.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return model.UserSession{}, fmt.Errorf("%w: password must be at least %d characters", errs.ErrValidation, minPasswordLen)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.UserSession{}, err
	}
	hash, salt, err := pkgcrypto.NewPasswordHash(password)
	if err != nil {
		return model.UserSession{}, err
	}
	u := &model.User{ID: uid, Email: email, PwdHash: hash, SaltAuth: salt, Provider: providerPassword}
	if err := s.d.Users.Create(ctx, u); err != nil {
		return model.UserSession{}, err
	}
	return s.session(u)
}

// SignIn authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) SignIn(ctx context.Context, email, password, ip string) (model.UserSession, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return model.UserSession{}, fmt.Errorf("%w: email and password required", errs.ErrValidation)
	}
	key := limiter.NewKey(limiter.ScopeUser, email, ip)
	if err := s.allow(ctx, key); err != nil {
		return model.UserSession{}, err
	}

	u, err := s.d.Users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.UserSession{}, err
	}
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		return model.UserSession{}, s.fail(ctx, key)
	}
	_ = s.d.Limiter.Success(ctx, key)

	p, err := s.d.Profiles.Get(ctx, u.ID)
	switch {
	case err == nil && p.MFAEnabled:
		return model.UserSession{}, s.startMFA(ctx, u)
	case err != nil && !errors.Is(err, errs.ErrNotFound):
		return model.UserSession{}, err
	}
	return s.session(u)
}

func (s *AuthServiceImpl) startMFA(ctx context.Context, u *model.User) error {
	factorID, err := uuid.NewV4()
	if err != nil {
		return err
	}
	code, err := s.codes.issue(ctx, "mfa:"+factorID.String(), u.ID.String())
	if err != nil {
		return err
	}
	to := u.Email
	if to == "" {
		to = u.Phone
	}
	if err := s.d.Sender.Send(ctx, to, "Your estatedesk verification code is "+code); err != nil {
		return err
	}
	return fmt.Errorf("%w: factor_id=%s", errs.ErrMFARequired, factorID)
}

// VerifyMFA redeems the second-factor code.
func (s *AuthServiceImpl) VerifyMFA(ctx context.Context, factorID, code, ip string) (model.UserSession, error) {
	if _, err := uuid.FromString(factorID); err != nil {
		return model.UserSession{}, fmt.Errorf("%w: factor_id", errs.ErrValidation)
	}
	key := limiter.NewKey(limiter.ScopeUser, "mfa:"+factorID, ip)
	if err := s.allow(ctx, key); err != nil {
		return model.UserSession{}, err
	}
	payload, err := s.codes.redeem(ctx, "mfa:"+factorID, code)
	if errors.Is(err, errs.ErrInvalidCode) {
		if ferr := s.fail(ctx, key); errors.Is(ferr, errs.ErrRateLimited) {
			return model.UserSession{}, ferr
		}
		return model.UserSession{}, err
	}
	if err != nil {
		return model.UserSession{}, err
	}
	uid, err := uuid.FromString(payload)
	if err != nil {
		return model.UserSession{}, errs.ErrInvalidCode
	}
	u, err := s.d.Users.GetByID(ctx, uid)
	if err != nil {
		return model.UserSession{}, err
	}
	return s.session(u)
}

// SendPhoneCode issues a code for phone, replacing any pending one.
func (s *AuthServiceImpl) SendPhoneCode(ctx context.Context, phone string) error {
	phone = normalizePhone(phone)
	if phone == "" {
		return fmt.Errorf("%w: phone required", errs.ErrValidation)
	}
	code, err := s.codes.issue(ctx, "phone:"+phone, "")
	if err != nil {
		return err
	}
	return s.d.Sender.Send(ctx, phone, "Your estatedesk sign-in code is "+code)
}

// VerifyPhoneCode redeems a phone code; the first successful verification creates the account.
func (s *AuthServiceImpl) VerifyPhoneCode(ctx context.Context, phone, code, ip string) (model.UserSession, error) {
	phone = normalizePhone(phone)
	if phone == "" {
		return model.UserSession{}, fmt.Errorf("%w: phone required", errs.ErrValidation)
	}
	key := limiter.NewKey(limiter.ScopePhone, phone, ip)
	if err := s.allow(ctx, key); err != nil {
		return model.UserSession{}, err
	}
	if _, err := s.codes.redeem(ctx, "phone:"+phone, code); err != nil {
		if errors.Is(err, errs.ErrInvalidCode) {
			if ferr := s.fail(ctx, key); errors.Is(ferr, errs.ErrRateLimited) {
				return model.UserSession{}, ferr
			}
		}
		return model.UserSession{}, err
	}
	_ = s.d.Limiter.Success(ctx, key)

	u, err := s.d.Users.GetByPhone(ctx, phone)
	if errors.Is(err, errs.ErrNotFound) {
		u, err = s.createExternal(ctx, &model.User{Phone: phone, Provider: providerPhone})
	}
	if err != nil {
		return model.UserSession{}, err
	}
	return s.session(u)
}

// FederatedURL stores a state token and returns the provider consent URL.
func (s *AuthServiceImpl) FederatedURL(ctx context.Context, returnTo string) (string, error) {
	if s.d.Federation == nil {
		return "", fmt.Errorf("%w: federated sign-in is not configured", errs.ErrUnsupported)
	}
	raw, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return "", err
	}
	state := hex.EncodeToString(raw)
	if err := s.d.Cache.Set(ctx, "oauth:"+state, returnTo, oauthStateTTL); err != nil {
		return "", err
	}
	return s.d.Federation.AuthCodeURL(state), nil
}

// CompleteFederated consumes state, resolves the provider identity and finds or creates the user.
func (s *AuthServiceImpl) CompleteFederated(ctx context.Context, state, code string) (model.UserSession, string, error) {
	if s.d.Federation == nil {
		return model.UserSession{}, "", errs.ErrUnsupported
	}
	returnTo, err := s.d.Cache.Get(ctx, "oauth:"+state)
	if errors.Is(err, cache.ErrMiss) {
		return model.UserSession{}, "", errs.ErrUnauthorized
	}
	if err != nil {
		return model.UserSession{}, "", err
	}
	_ = s.d.Cache.Del(ctx, "oauth:"+state)

	email, err := s.d.Federation.Identity(ctx, code)
	if err != nil {
		return model.UserSession{}, "", fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	email = normalizeEmail(email)
	u, err := s.d.Users.GetByEmail(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		u, err = s.createExternal(ctx, &model.User{Email: email, Provider: providerGoogle})
	}
	if err != nil {
		return model.UserSession{}, "", err
	}
	us, err := s.session(u)
	return us, returnTo, err
}

// SignOut revokes the presented token.
func (s *AuthServiceImpl) SignOut(ctx context.Context, claims *Claims) error {
	return s.d.Tokens.Revoke(ctx, claims)
}

func (s *AuthServiceImpl) createExternal(ctx context.Context, u *model.User) (*model.User, error) {
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	u.ID = uid
	if err := s.d.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthServiceImpl) allow(ctx context.Context, key limiter.Key) error {
	allowed, _, err := s.d.Limiter.Allow(ctx, key)
	if err != nil {
		return err
	}
	if !allowed {
		return errs.ErrRateLimited
	}
	return nil
}

// fail records a failed attempt and returns the error to report.
func (s *AuthServiceImpl) fail(ctx context.Context, key limiter.Key) error {
	if blocked, _, err := s.d.Limiter.Failure(ctx, key); err == nil && blocked {
		return errs.ErrRateLimited
	}
	return errs.ErrUnauthorized
}

func (s *AuthServiceImpl) session(u *model.User) (model.UserSession, error) {
	tok, err := s.d.Tokens.Issue(u.ID, KindUser, u.Email, "", s.d.AccessTTL)
	if err != nil {
		return model.UserSession{}, err
	}
	return model.UserSession{AccessToken: tok.AccessToken, UserID: u.ID, Email: u.Email, ExpiresAt: tok.ExpiresAt}, nil
}
