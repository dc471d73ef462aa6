package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/estatedesk/internal/cache"
	"github.com/and161185/estatedesk/internal/errs"
)

func TestChallenges_AttemptBudget(t *testing.T) {
	ch := &challenges{c: cache.NewMemoryCache(), ttl: time.Minute, maxAttempts: 3}
	ctx := context.Background()

	code, err := ch.issue(ctx, "phone:+1555", "payload")
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "999999"
	}

	_, err = ch.redeem(ctx, "phone:+1555", "12ab56")
	require.ErrorIs(t, err, errs.ErrInvalidCode)

	for i := 0; i < 3; i++ {
		_, err = ch.redeem(ctx, "phone:+1555", wrong)
		require.ErrorIs(t, err, errs.ErrInvalidCode)
	}
	_, err = ch.redeem(ctx, "phone:+1555", code)
	require.ErrorIs(t, err, errs.ErrInvalidCode, "challenge must be gone after the attempt budget is spent")

	code, err = ch.issue(ctx, "phone:+1555", "payload")
	require.NoError(t, err)
	got, err := ch.redeem(ctx, "phone:+1555", code)
	require.NoError(t, err)
	require.Equal(t, "payload", got)
}
