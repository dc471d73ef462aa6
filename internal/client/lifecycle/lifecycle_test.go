package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/workflow"
)

type memMaintenance struct {
	items    map[uuid.UUID]model.MaintenanceRequest
	lists    int
	creates  int
	updates  int
	failNext error
}

func newMemMaintenance() *memMaintenance {
	return &memMaintenance{items: map[uuid.UUID]model.MaintenanceRequest{}}
}

func (s *memMaintenance) List(_ context.Context, status string) ([]model.MaintenanceRequest, error) {
	s.lists++
	out := []model.MaintenanceRequest{}
	for _, m := range s.items {
		if status == "" || string(m.Status) == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memMaintenance) Create(_ context.Context, m model.MaintenanceRequest) (*model.MaintenanceRequest, error) {
	s.creates++
	m.ID = uuid.Must(uuid.NewV4())
	m.Status = workflow.MaintenancePending
	s.items[m.ID] = m
	return &m, nil
}

func (s *memMaintenance) UpdateStatus(_ context.Context, id uuid.UUID, to workflow.MaintenanceStatus) (*model.MaintenanceRequest, error) {
	s.updates++
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return nil, err
	}
	m := s.items[id]
	m.Status = to
	m.UpdatedAt = time.Now()
	s.items[id] = m
	return &m, nil
}

type memVisitors struct {
	items map[uuid.UUID]model.VisitorRequest
	owner uuid.UUID
}

func (s *memVisitors) List(_ context.Context, _ string) ([]model.VisitorRequest, error) {
	out := []model.VisitorRequest{}
	for _, v := range s.items {
		if v.ResidentID == s.owner {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *memVisitors) Create(_ context.Context, v model.VisitorRequest) (*model.VisitorRequest, error) {
	v.ID, v.ResidentID, v.Status = uuid.Must(uuid.NewV4()), s.owner, workflow.VisitorPending
	s.items[v.ID] = v
	return &v, nil
}

func (s *memVisitors) UpdateStatus(context.Context, uuid.UUID, workflow.VisitorStatus) (*model.VisitorRequest, error) {
	return nil, errors.New("not used")
}

type memDeliveries struct {
	items   map[uuid.UUID]model.Delivery
	deleted []uuid.UUID
}

func (s *memDeliveries) List(context.Context, string) ([]model.Delivery, error) {
	out := []model.Delivery{}
	for _, d := range s.items {
		out = append(out, d)
	}
	return out, nil
}

func (s *memDeliveries) Create(_ context.Context, d model.Delivery) (*model.Delivery, error) {
	d.ID, d.Status = uuid.Must(uuid.NewV4()), workflow.DeliveryScheduled
	s.items[d.ID] = d
	return &d, nil
}

func (s *memDeliveries) UpdateStatus(_ context.Context, id uuid.UUID, to workflow.DeliveryStatus) (*model.Delivery, error) {
	d := s.items[id]
	d.Status = to
	s.items[id] = d
	return &d, nil
}

func (s *memDeliveries) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.items, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func validMaintenance() model.MaintenanceRequest {
	return model.MaintenanceRequest{
		ResidentName: "Ann", FlatNumber: "4B", ContactNumber: "555", Title: "Leak",
		Description: "Kitchen sink", Category: "plumbing", Urgency: model.UrgencyHigh,
	}
}

func TestCreate_ValidatesBeforeSending(t *testing.T) {
	store := newMemMaintenance()
	m := New[model.MaintenanceRequest, workflow.MaintenanceStatus](workflow.KindMaintenance, store, zaptest.NewLogger(t))

	bad := validMaintenance()
	bad.Title = ""
	_, err := m.Create(context.Background(), bad)
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Equal(t, 0, store.creates)

	got, err := m.Create(context.Background(), validMaintenance())
	require.NoError(t, err)
	require.Equal(t, workflow.MaintenancePending, got.Status)
}

func TestMaintenance_OnlyForwardChain(t *testing.T) {
	store := newMemMaintenance()
	m := New[model.MaintenanceRequest, workflow.MaintenanceStatus](workflow.KindMaintenance, store, nil)
	rec, err := m.Create(context.Background(), validMaintenance())
	require.NoError(t, err)

	chain := []workflow.MaintenanceStatus{workflow.MaintenanceAcknowledged, workflow.MaintenanceInProgress, workflow.MaintenanceCompleted}
	cur := *rec
	for _, next := range chain {
		require.Equal(t, []workflow.MaintenanceStatus{next}, m.Actions(cur), "exactly one action from %s", cur.Status)

		for _, other := range workflow.AllMaintenanceStatuses() {
			if other == next {
				continue
			}
			before := store.updates
			_, err := m.UpdateStatus(context.Background(), cur, other)
			require.ErrorIs(t, err, errs.ErrInvalidTransition, "%s -> %s", cur.Status, other)
			require.Equal(t, before, store.updates, "rejected transitions are never sent")
		}

		updated, err := m.UpdateStatus(context.Background(), cur, next)
		require.NoError(t, err)
		cur = *updated
	}
	require.Empty(t, m.Actions(cur))
}

func TestUpdateStatus_FailureKeepsCache(t *testing.T) {
	store := newMemMaintenance()
	m := New[model.MaintenanceRequest, workflow.MaintenanceStatus](workflow.KindMaintenance, store, nil)
	rec, _ := m.Create(context.Background(), validMaintenance())

	_, err := m.List(context.Background(), "")
	require.NoError(t, err)
	_, err = m.List(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 1, store.lists, "second list is served from cache")

	store.failNext = errors.New("store unavailable")
	_, err = m.UpdateStatus(context.Background(), *rec, workflow.MaintenanceAcknowledged)
	require.Error(t, err)
	_, _ = m.List(context.Background(), "")
	require.Equal(t, 1, store.lists)

	_, err = m.UpdateStatus(context.Background(), *rec, workflow.MaintenanceAcknowledged)
	require.NoError(t, err)
	list, _ := m.List(context.Background(), "")
	require.Equal(t, 2, store.lists, "success refreshes the list")
	require.Equal(t, workflow.MaintenanceAcknowledged, list[0].Status)
}

func TestVisitor_CreateThenListIsPending(t *testing.T) {
	owner := uuid.Must(uuid.NewV4())
	store := &memVisitors{items: map[uuid.UUID]model.VisitorRequest{}, owner: owner}
	m := New[model.VisitorRequest, workflow.VisitorStatus](workflow.KindVisitor, store, nil)

	_, err := m.Create(context.Background(), model.VisitorRequest{
		HostName: "Ann", HostFlatNumber: "4B", HostContact: "555", VisitorName: "Bob",
		VisitorPhone: "556", Purpose: "dinner", ExpectedArrival: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	list, err := m.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, workflow.VisitorPending, list[0].Status)
	require.ElementsMatch(t, []workflow.VisitorStatus{workflow.VisitorApproved, workflow.VisitorDenied}, m.Actions(list[0]))
}

func TestDelete_DeliveryOnly(t *testing.T) {
	del := &memDeliveries{items: map[uuid.UUID]model.Delivery{}}
	dm := New[model.Delivery, workflow.DeliveryStatus](workflow.KindDelivery, del, nil)
	d, err := dm.Create(context.Background(), model.Delivery{DeliveryName: "Sofa"})
	require.NoError(t, err)
	require.NoError(t, dm.Delete(context.Background(), d.ID))
	require.Equal(t, []uuid.UUID{d.ID}, del.deleted)

	vm := New[model.VisitorRequest, workflow.VisitorStatus](workflow.KindVisitor, &memVisitors{items: map[uuid.UUID]model.VisitorRequest{}}, nil)
	require.ErrorIs(t, vm.Delete(context.Background(), uuid.Must(uuid.NewV4())), errs.ErrUnsupported)
}

func TestNoSelfTransitionOffered(t *testing.T) {
	dm := New[model.Delivery, workflow.DeliveryStatus](workflow.KindDelivery, &memDeliveries{items: map[uuid.UUID]model.Delivery{}}, nil)
	for _, s := range workflow.AllDeliveryStatuses() {
		d := model.Delivery{ID: uuid.Must(uuid.NewV4()), Status: s}
		require.NotContains(t, dm.Actions(d), s)
		_, err := dm.UpdateStatus(context.Background(), d, s)
		require.ErrorIs(t, err, errs.ErrInvalidTransition)
	}
}

func TestInvalidate(t *testing.T) {
	store := newMemMaintenance()
	m := New[model.MaintenanceRequest, workflow.MaintenanceStatus](workflow.KindMaintenance, store, nil)
	_, _ = m.List(context.Background(), "pending")
	m.Invalidate()
	_, _ = m.List(context.Background(), "pending")
	require.Equal(t, 2, store.lists)
}
