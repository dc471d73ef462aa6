package service

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
)

func TestProfile_ChangePasswordRevokesToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.addUser("ann@example.com", "old-pass")
	ps := NewProfileService(f.profiles, f.users, f.tokens)

	us, err := f.s.SignIn(ctx, "ann@example.com", "old-pass", "")
	require.NoError(t, err)
	claims, err := f.tokens.Parse(ctx, us.AccessToken)
	require.NoError(t, err)
	a, err := ActorFromClaims(claims)
	require.NoError(t, err)
	require.Equal(t, u.ID, a.ID)

	require.ErrorIs(t, ps.ChangePassword(ctx, a, claims, "wrong", "new-pass"), errs.ErrUnauthorized)
	require.ErrorIs(t, ps.ChangePassword(ctx, a, claims, "old-pass", "x"), errs.ErrValidation)
	require.NoError(t, ps.ChangePassword(ctx, a, claims, "old-pass", "new-pass"))

	_, err = f.tokens.Parse(ctx, us.AccessToken)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = f.s.SignIn(ctx, "ann@example.com", "new-pass", "")
	require.NoError(t, err)
}

func TestProfile_UpdateAndMFA(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.addUser("ann@example.com", "pw1234")
	ps := NewProfileService(f.profiles, f.users, f.tokens)
	a := Actor{ID: u.ID, Name: u.Email}

	p, err := ps.Update(ctx, a, model.Profile{FirstName: "Ann", LastName: "Lee", Phone: "555 0100"})
	require.NoError(t, err)
	require.Equal(t, "5550100", p.Phone)
	require.False(t, p.UpdatedAt.IsZero())

	require.NoError(t, ps.SetMFA(ctx, a, true))
	got, err := ps.Get(ctx, a)
	require.NoError(t, err)
	require.True(t, got.MFAEnabled)
	require.Equal(t, "Ann", got.FirstName)

	_, err = ps.Get(ctx, Actor{ID: uuid.Must(uuid.NewV4()), Admin: true})
	require.ErrorIs(t, err, errs.ErrForbidden)
}
