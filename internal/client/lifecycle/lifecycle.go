// Package lifecycle is the client-side status engine shared by deliveries,
// maintenance requests and visitor requests. It validates before writing,
// offers only the transitions the workflow allows and keeps a cached list
// that is dropped after every confirmed mutation or remote change.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/workflow"
)

// Record is a request resource with a status workflow.
type Record[S workflow.Status[S]] interface {
	Key() uuid.UUID
	CurrentStatus() S
	Validate() error
}

// Store is the remote side of one resource.
type Store[R Record[S], S workflow.Status[S]] interface {
	List(ctx context.Context, status string) ([]R, error)
	Create(ctx context.Context, r R) (*R, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to S) (*R, error)
}

// Deleter is implemented by stores whose records can be removed.
type Deleter interface {
	Delete(ctx context.Context, id uuid.UUID) error
}

// Manager wraps a Store with validation, transition checks and a list cache.
type Manager[R Record[S], S workflow.Status[S]] struct {
	kind  workflow.Kind
	store Store[R, S]
	log   *zap.Logger

	mu     sync.Mutex
	cached map[string][]R
	gen    uint64
}

// New builds a manager for kind.
func New[R Record[S], S workflow.Status[S]](kind workflow.Kind, store Store[R, S], log *zap.Logger) *Manager[R, S] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager[R, S]{kind: kind, store: store, log: log, cached: map[string][]R{}}
}

// Kind is the resource family managed.
func (m *Manager[R, S]) Kind() workflow.Kind { return m.kind }

// List returns the cached list for filter, fetching it when absent.
func (m *Manager[R, S]) List(ctx context.Context, filter string) ([]R, error) {
	m.mu.Lock()
	if out, ok := m.cached[filter]; ok {
		m.mu.Unlock()
		return out, nil
	}
	gen := m.gen
	m.mu.Unlock()

	out, err := m.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	// a response older than the last invalidation is returned but not cached
	if gen == m.gen {
		m.cached[filter] = out
	}
	m.mu.Unlock()
	return out, nil
}

// Invalidate drops every cached list.
func (m *Manager[R, S]) Invalidate() {
	m.mu.Lock()
	m.cached = map[string][]R{}
	m.gen++
	m.mu.Unlock()
}

// Create validates required fields locally; an invalid payload never reaches the store.
func (m *Manager[R, S]) Create(ctx context.Context, r R) (*R, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out, err := m.store.Create(ctx, r)
	if err != nil {
		return nil, err
	}
	m.Invalidate()
	return out, nil
}

// Actions lists exactly the statuses r may move to next.
func (m *Manager[R, S]) Actions(r R) []S {
	return r.CurrentStatus().Next()
}

// UpdateStatus moves r to status to. Transitions outside the workflow are
// rejected with errs.ErrInvalidTransition and never sent.
func (m *Manager[R, S]) UpdateStatus(ctx context.Context, r R, to S) (*R, error) {
	if err := workflow.Check(r.CurrentStatus(), to); err != nil {
		return nil, err
	}
	out, err := m.store.UpdateStatus(ctx, r.Key(), to)
	if err != nil {
		m.log.Debug("status update failed",
			zap.String("kind", string(m.kind)),
			zap.String("id", r.Key().String()),
			zap.String("to", string(to)),
			zap.Error(err))
		return nil, err
	}
	m.Invalidate()
	return out, nil
}

// Delete removes a record where the resource supports it.
func (m *Manager[R, S]) Delete(ctx context.Context, id uuid.UUID) error {
	d, ok := m.store.(Deleter)
	if !ok {
		return fmt.Errorf("delete %s: %w", m.kind, errs.ErrUnsupported)
	}
	if err := d.Delete(ctx, id); err != nil {
		return err
	}
	m.Invalidate()
	return nil
}
