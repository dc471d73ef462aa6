package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/estatedesk/internal/cache"
	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
)

// Kind tells resident tokens from admin tokens.
type Kind string

const (
	KindUser  Kind = "user"
	KindAdmin Kind = "admin"
)

// Claims is the payload of every access token.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Kind     Kind   `json:"kind"`
}

// UserID parses the subject.
func (c *Claims) UserID() (uuid.UUID, error) { return uuid.FromString(c.Subject) }

// TokenIssuer signs, verifies and revokes HS256 access tokens.
type TokenIssuer struct {
	key     []byte
	revoked cache.Cache
	now     func() time.Time
}

// NewTokenIssuer constructs an issuer; revoked holds the ids of signed-out tokens.
func NewTokenIssuer(key []byte, revoked cache.Cache) *TokenIssuer {
	return &TokenIssuer{key: key, revoked: revoked, now: time.Now}
}

// Issue signs a token for subject.
func (t *TokenIssuer) Issue(sub uuid.UUID, kind Kind, email, username string, ttl time.Duration) (model.Tokens, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, err
	}
	now := t.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   sub.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:    email,
		Username: username,
		Kind:     kind,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}

// Parse verifies signature, expiry and revocation.
func (t *TokenIssuer) Parse(ctx context.Context, raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.key, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errs.ErrUnauthorized
	}
	if claims.Kind != KindUser && claims.Kind != KindAdmin {
		return nil, errs.ErrUnauthorized
	}
	if _, err := t.revoked.Get(ctx, revokedKey(claims.ID)); err == nil {
		return nil, errs.ErrUnauthorized
	} else if !errors.Is(err, cache.ErrMiss) {
		return nil, err
	}
	return &claims, nil
}

// Revoke blocks the token until it would have expired anyway.
func (t *TokenIssuer) Revoke(ctx context.Context, c *Claims) error {
	if c.ID == "" || c.ExpiresAt == nil {
		return nil
	}
	ttl := c.ExpiresAt.Sub(t.now())
	if ttl <= 0 {
		return nil
	}
	return t.revoked.Set(ctx, revokedKey(c.ID), "1", ttl)
}

func revokedKey(jti string) string { return "revoked:" + jti }
