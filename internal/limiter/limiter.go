// Package limiter throttles sign-in attempts per subject and client address.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Scopes keep the counters of different sign-in paths apart.
const (
	ScopeUser  = "user"
	ScopeAdmin = "admin"
	ScopePhone = "phone"
)

// Key identifies one throttled (subject, address) pair.
type Key struct {
	Scope   string
	Subject string
	IPHash  []byte
}

func (k Key) subject() string { return k.Scope + ":" + k.Subject }

// NewKey builds a key hashing the raw client address.
func NewKey(scope, subject, ip string) Key {
	return Key{Scope: scope, Subject: subject, IPHash: HashIP(ip)}
}

// Limiter controls sign-in attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether an attempt is currently allowed and, if not, how long to wait.
	Allow(ctx context.Context, k Key) (bool, time.Duration, error)
	// Success resets counters after a successful sign-in.
	Success(ctx context.Context, k Key) error
	// Failure records a failed attempt and reports whether it started a block.
	Failure(ctx context.Context, k Key) (bool, time.Duration, error)
}

// Policy is the shared window/threshold configuration.
type Policy struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// DefaultPolicy allows five failures per fifteen minutes.
var DefaultPolicy = Policy{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}
