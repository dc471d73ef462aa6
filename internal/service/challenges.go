package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/and161185/estatedesk/internal/cache"
	pkgcrypto "github.com/and161185/estatedesk/internal/crypto"
	"github.com/and161185/estatedesk/internal/errs"
)

// challenges stores hashed one-time codes with a TTL and an attempt budget.
type challenges struct {
	c           cache.Cache
	ttl         time.Duration
	maxAttempts int
}

type challenge struct {
	Hash    string `json:"hash"`
	Payload string `json:"payload,omitempty"`
}

// issue generates a code for key and stores its hash. A pending code for key is replaced.
func (ch *challenges) issue(ctx context.Context, key, payload string) (string, error) {
	code, err := pkgcrypto.NewCode()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(challenge{Hash: pkgcrypto.HashCode(key, code), Payload: payload})
	if err != nil {
		return "", err
	}
	if err := ch.c.Del(ctx, key+":tries"); err != nil {
		return "", err
	}
	if err := ch.c.Set(ctx, key, string(raw), ch.ttl); err != nil {
		return "", err
	}
	return code, nil
}

// redeem checks code and consumes the challenge on success or when attempts run out.
func (ch *challenges) redeem(ctx context.Context, key, code string) (string, error) {
	if !pkgcrypto.ValidCode(code) {
		return "", errs.ErrInvalidCode
	}
	raw, err := ch.c.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return "", errs.ErrInvalidCode
	}
	if err != nil {
		return "", err
	}
	var stored challenge
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		_ = ch.c.Del(ctx, key)
		return "", errs.ErrInvalidCode
	}

	if pkgcrypto.EqualHash(stored.Hash, pkgcrypto.HashCode(key, code)) {
		_ = ch.c.Del(ctx, key)
		_ = ch.c.Del(ctx, key+":tries")
		return stored.Payload, nil
	}

	tries, err := ch.c.Incr(ctx, key+":tries", ch.ttl)
	if err != nil {
		return "", err
	}
	if int(tries) >= ch.maxAttempts {
		_ = ch.c.Del(ctx, key)
		_ = ch.c.Del(ctx, key+":tries")
	}
	return "", errs.ErrInvalidCode
}
