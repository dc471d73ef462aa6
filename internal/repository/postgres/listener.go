package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/and161185/estatedesk/internal/changefeed"
)

// ChangeChannel is the NOTIFY channel written by the estatedesk_notify_change trigger.
const ChangeChannel = "estatedesk_changes"

// Publisher receives decoded change events.
type Publisher interface {
	Publish(evt changefeed.Event)
}

// listenConn is the part of a dedicated connection the listener needs.
type listenConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Release()
}

type poolConn struct{ c *pgxpool.Conn }

func (p poolConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.c.Exec(ctx, sql, args...)
}
func (p poolConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return p.c.Conn().WaitForNotification(ctx)
}
func (p poolConn) Release() { p.c.Release() }

// Listener turns Postgres notifications into change events.
type Listener struct {
	acquire func(ctx context.Context) (listenConn, error)
	pub     Publisher
	log     *zap.Logger
	retry   time.Duration
	now     func() time.Time
}

// NewListener constructs a listener holding one pooled connection while running.
func NewListener(pool *pgxpool.Pool, pub Publisher, log *zap.Logger) *Listener {
	return &Listener{
		acquire: func(ctx context.Context) (listenConn, error) {
			c, err := pool.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return poolConn{c: c}, nil
		},
		pub:   pub,
		log:   log,
		retry: 2 * time.Second,
		now:   time.Now,
	}
}

// Run listens until ctx is done, reconnecting after connection failures.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listenOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.log.Warn("change listener interrupted", zap.Error(err), zap.Duration("retry", l.retry))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retry):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context) error {
	conn, err := l.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		return err
	}
	l.log.Info("listening for changes", zap.String("channel", ChangeChannel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		evt, err := decodeNotification(n.Payload, l.now())
		if err != nil {
			l.log.Warn("bad change payload", zap.Error(err))
			continue
		}
		l.pub.Publish(evt)
	}
}

func decodeNotification(payload string, at time.Time) (changefeed.Event, error) {
	var evt changefeed.Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return evt, err
	}
	if evt.Table == "" || evt.Type == "" {
		return evt, errors.New("missing table/type")
	}
	if string(evt.New) == "null" {
		evt.New = nil
	}
	if string(evt.Old) == "null" {
		evt.Old = nil
	}
	evt.At = at.UTC()
	return evt, nil
}
