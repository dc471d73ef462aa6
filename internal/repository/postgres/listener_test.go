package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/estatedesk/internal/changefeed"
)

type fakeListenConn struct {
	execSQL  []string
	notes    chan *pgconn.Notification
	released bool
}

func (f *fakeListenConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeListenConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	select {
	case n, ok := <-f.notes:
		if !ok {
			return nil, errors.New("conn closed")
		}
		return n, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeListenConn) Release() { f.released = true }

type collect struct {
	mu  sync.Mutex
	got []changefeed.Event
}

func (c *collect) Publish(e changefeed.Event) {
	c.mu.Lock()
	c.got = append(c.got, e)
	c.mu.Unlock()
}

func (c *collect) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func TestListener_PublishesDecodedEventsAndSkipsGarbage(t *testing.T) {
	conn := &fakeListenConn{notes: make(chan *pgconn.Notification, 3)}
	pub := &collect{}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := &Listener{
		acquire: func(context.Context) (listenConn, error) { return conn, nil },
		pub:     pub,
		log:     zaptest.NewLogger(t),
		retry:   time.Millisecond,
		now:     func() time.Time { return at },
	}

	conn.notes <- &pgconn.Notification{Payload: `{"table":"deliveries","type":"INSERT","new":{"id":"x"},"old":null}`}
	conn.notes <- &pgconn.Notification{Payload: `not json`}
	conn.notes <- &pgconn.Notification{Payload: `{"table":"deliveries","type":"DELETE","new":null,"old":{"id":"x"}}`}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.len() == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, []string{`LISTEN "estatedesk_changes"`}, conn.execSQL[:1])
	require.True(t, conn.released)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Equal(t, changefeed.OpInsert, pub.got[0].Type)
	require.Nil(t, pub.got[0].Old)
	require.Equal(t, at, pub.got[0].At)
	require.Equal(t, changefeed.OpDelete, pub.got[1].Type)
	require.Nil(t, pub.got[1].New)
}

func Test_decodeNotification_HeaderOnlyRows(t *testing.T) {
	payload := `{"table":"announcements","type":"UPDATE",` +
		`"new":{"id":"0b8c5c1e-6f0e-4a43-9d39-3d0f6b1a0c11","title":"Lift repair","is_active":false},` +
		`"old":{"id":"0b8c5c1e-6f0e-4a43-9d39-3d0f6b1a0c11","title":"Lift repair","is_active":true}}`
	evt, err := decodeNotification(payload, time.Unix(0, 0))
	require.NoError(t, err)
	require.Equal(t, "Lift repair", evt.Name())
	require.Equal(t, "0b8c5c1e-6f0e-4a43-9d39-3d0f6b1a0c11", evt.RecordID().String())

	_, ok := evt.For([16]byte{1}, false)
	require.True(t, ok)

	_, err = decodeNotification(`{"new":{"id":"x"}}`, time.Now())
	require.Error(t, err)
}

func TestListener_ReconnectsAfterAcquireFailure(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	conn := &fakeListenConn{notes: make(chan *pgconn.Notification)}
	l := &Listener{
		acquire: func(context.Context) (listenConn, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return nil, errors.New("db down")
			}
			return conn, nil
		},
		pub:   &collect{},
		log:   zaptest.NewLogger(t),
		retry: time.Millisecond,
		now:   time.Now,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
