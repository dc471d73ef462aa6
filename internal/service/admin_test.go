package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/estatedesk/internal/cache"
	pkgcrypto "github.com/and161185/estatedesk/internal/crypto"
	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
)

func newAdminFixture(reveal bool) (*AdminServiceImpl, *fakeAdmins, *fakeLimiter) {
	hash, salt, _ := pkgcrypto.NewPasswordHash("s3cret")
	admins := &fakeAdmins{byName: map[string]*model.AdminUser{
		"alice": {ID: uuid.Must(uuid.NewV4()), Username: "alice", PwdHash: hash, SaltAuth: salt},
	}}
	lim := &fakeLimiter{allowOK: true}
	tokens := NewTokenIssuer([]byte("k"), cache.NewMemoryCache())
	return NewAdminService(admins, tokens, lim, AdminPolicy{RevealUsernames: reveal, TokenTTL: time.Hour}), admins, lim
}

func TestAdmin_Login_RevealedErrors(t *testing.T) {
	s, _, lim := newAdminFixture(true)
	ctx := context.Background()

	_, err := s.Login(ctx, "alice", "wrong", "")
	require.ErrorIs(t, err, errs.ErrAdminPasswordMismatch)
	require.Equal(t, "Incorrect password", err.Error())

	_, err = s.Login(ctx, "mallory", "whatever", "")
	require.ErrorIs(t, err, errs.ErrAdminUnknown)
	require.Equal(t, "Admin username not found", err.Error())
	require.Equal(t, 2, lim.failureCalls)
}

func TestAdmin_Login_HiddenErrorsByDefault(t *testing.T) {
	s, _, _ := newAdminFixture(false)
	ctx := context.Background()

	_, err := s.Login(ctx, "alice", "wrong", "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = s.Login(ctx, "mallory", "whatever", "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestAdmin_Login_SuccessAndValidation(t *testing.T) {
	s, admins, lim := newAdminFixture(false)
	ctx := context.Background()

	_, err := s.Login(ctx, "", "x", "")
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Contains(t, err.Error(), "Username and password are required")
	require.Zero(t, lim.allowCalls)

	sess, err := s.Login(ctx, "alice", "s3cret", "10.0.0.1")
	require.NoError(t, err)
	require.True(t, sess.Valid())
	require.Equal(t, model.RoleAdmin, sess.Role)
	require.NotEmpty(t, sess.Token)
	require.Contains(t, admins.touched, sess.ID)

	claims, err := s.tokens.Parse(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, KindAdmin, claims.Kind)

	lim.allowOK = false
	_, err = s.Login(ctx, "alice", "s3cret", "10.0.0.1")
	require.ErrorIs(t, err, errs.ErrRateLimited)

	lim.allowOK, lim.failBlocked = true, true
	_, err = s.Login(ctx, "alice", "nope", "10.0.0.1")
	require.True(t, errors.Is(err, errs.ErrRateLimited))
}

func TestAdmin_Ensure_Idempotent(t *testing.T) {
	s, admins, _ := newAdminFixture(false)
	ctx := context.Background()

	require.NoError(t, s.Ensure(ctx, "root", "pw"))
	require.NoError(t, s.Ensure(ctx, "root", "other"))
	require.Len(t, admins.byName, 2)

	_, err := s.Login(ctx, "root", "pw", "")
	require.NoError(t, err)
}
