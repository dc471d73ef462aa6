// Package notifier turns change events into transient "updated" markers,
// human-readable notifications and cache invalidations.
package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/estatedesk/internal/changefeed"
	"github.com/and161185/estatedesk/internal/workflow"
)

// MarkerTTL is how long an "Updated" marker stays on a record.
const MarkerTTL = 5 * time.Second

// Source opens a change stream. The channel closes when ctx is done.
type Source interface {
	Changes(ctx context.Context, tables []string) (<-chan changefeed.Event, error)
}

// Invalidator drops cached lists so the next read refetches.
type Invalidator interface {
	Invalidate()
}

// Notification is a user-visible message about a remote change.
type Notification struct {
	Kind    workflow.Kind
	ID      uuid.UUID
	Message string
}

// Timer is the part of *time.Timer the notifier needs.
type Timer interface {
	Stop() bool
}

type marker struct {
	status string
	timer  Timer
}

// Notifier owns the marker set. Construct with New and open page-scoped
// subscriptions with Watch.
type Notifier struct {
	src       Source
	log       *zap.Logger
	ttl       time.Duration
	afterFunc func(time.Duration, func()) Timer
	notify    func(Notification)

	mu           sync.Mutex
	markers      map[uuid.UUID]*marker
	invalidators map[workflow.Kind][]Invalidator
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAfterFunc replaces time.AfterFunc (tests).
func WithAfterFunc(f func(time.Duration, func()) Timer) Option {
	return func(n *Notifier) { n.afterFunc = f }
}

// OnNotify receives every notification.
func OnNotify(f func(Notification)) Option { return func(n *Notifier) { n.notify = f } }

// Invalidates registers inv to be dropped on every change to kind.
func Invalidates(kind workflow.Kind, inv Invalidator) Option {
	return func(n *Notifier) { n.invalidators[kind] = append(n.invalidators[kind], inv) }
}

// New builds a notifier reading from src.
func New(src Source, log *zap.Logger, opts ...Option) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	n := &Notifier{
		src:          src,
		log:          log,
		ttl:          MarkerTTL,
		afterFunc:    func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		notify:       func(Notification) {},
		markers:      map[uuid.UUID]*marker{},
		invalidators: map[workflow.Kind][]Invalidator{},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Updated reports whether id currently carries the "Updated" marker.
func (n *Notifier) Updated(id uuid.UUID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.markers[id]
	return ok
}

// Subscription is a live stream bound to a page. Close releases it.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// Close stops the stream and waits for it. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	<-s.done
}

// Done is closed when the stream has ended.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Watch subscribes to changes of tables (every table when empty).
func (n *Notifier) Watch(ctx context.Context, tables ...string) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	ch, err := n.src.Changes(ctx, tables)
	if err != nil {
		cancel()
		return nil, err
	}
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for evt := range ch {
			if !sub.active() {
				continue
			}
			n.handle(evt)
		}
	}()
	return sub, nil
}

func (n *Notifier) handle(evt changefeed.Event) {
	kind, ok := evt.Kind()
	if !ok {
		return
	}

	n.mu.Lock()
	invs := n.invalidators[kind]
	n.mu.Unlock()
	for _, inv := range invs {
		inv.Invalidate()
	}

	switch evt.Type {
	case changefeed.OpInsert:
		n.notify(Notification{
			Kind:    kind,
			ID:      evt.RecordID(),
			Message: fmt.Sprintf("New %s %q has been created", strings.ToLower(kind.Noun()), evt.Name()),
		})
	case changefeed.OpUpdate:
		old, cur := evt.Statuses()
		if cur == "" || old == cur {
			return
		}
		if n.mark(evt.RecordID(), cur) {
			n.notify(Notification{
				Kind:    kind,
				ID:      evt.RecordID(),
				Message: fmt.Sprintf("%s %q %s", kind.Noun(), evt.Name(), workflow.PhraseOf(kind, cur)),
			})
		}
	}
}

// mark sets or refreshes the marker on id. It reports false when the same
// status is already marked, so a burst of identical changes notifies once.
func (n *Notifier) mark(id uuid.UUID, status string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	fresh := true
	if m, ok := n.markers[id]; ok {
		m.timer.Stop()
		fresh = m.status != status
	}
	m := &marker{status: status}
	m.timer = n.afterFunc(n.ttl, func() { n.clear(id, m) })
	n.markers[id] = m
	return fresh
}

func (n *Notifier) clear(id uuid.UUID, m *marker) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.markers[id] == m {
		delete(n.markers, id)
	}
}
