package limiter

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/and161185/estatedesk/internal/cache"
)

// Cached keeps counters in a cache.Cache, typically Redis shared by all replicas.
type Cached struct {
	c   cache.Cache
	p   Policy
	now func() time.Time
}

// NewCached constructs a cache-backed limiter.
func NewCached(c cache.Cache, p Policy) *Cached {
	return &Cached{c: c, p: p, now: time.Now}
}

func keys(k Key) (fails, block string) {
	base := "limiter:" + k.subject() + ":" + hex.EncodeToString(k.IPHash)
	return base + ":fails", base + ":block"
}

func (l *Cached) Allow(ctx context.Context, k Key) (bool, time.Duration, error) {
	_, blockKey := keys(k)
	v, err := l.c.Get(ctx, blockKey)
	if errors.Is(err, cache.ErrMiss) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	until, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return true, 0, nil
	}
	if now := l.now(); until.After(now) {
		return false, until.Sub(now), nil
	}
	return true, 0, nil
}

func (l *Cached) Success(ctx context.Context, k Key) error {
	failKey, blockKey := keys(k)
	if err := l.c.Del(ctx, failKey); err != nil {
		return err
	}
	return l.c.Del(ctx, blockKey)
}

func (l *Cached) Failure(ctx context.Context, k Key) (bool, time.Duration, error) {
	failKey, blockKey := keys(k)
	n, err := l.c.Incr(ctx, failKey, l.p.Window)
	if err != nil {
		return false, 0, err
	}
	if int(n) < l.p.MaxFails {
		return false, 0, nil
	}
	until := l.now().Add(l.p.BlockFor).UTC().Format(time.RFC3339Nano)
	if err := l.c.Set(ctx, blockKey, until, l.p.BlockFor); err != nil {
		return false, 0, err
	}
	if err := l.c.Del(ctx, failKey); err != nil {
		return false, 0, err
	}
	return true, l.p.BlockFor, nil
}
