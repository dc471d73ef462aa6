package service

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/workflow"
)

var (
	resident = Actor{ID: uuid.Must(uuid.NewV4()), Name: "ann@example.com"}
	neighbor = Actor{ID: uuid.Must(uuid.NewV4()), Name: "bob@example.com"}
	root     = Actor{ID: uuid.Must(uuid.NewV4()), Name: "root", Admin: true}
)

func leak() model.MaintenanceRequest {
	return model.MaintenanceRequest{
		ResidentName: "Ann", FlatNumber: "4B", ContactNumber: "555", Title: "Leak",
		Description: "Kitchen sink", Category: "plumbing", Urgency: model.UrgencyHigh,
	}
}

func TestMaintenance_FullChainStampsSideFields(t *testing.T) {
	repo := &memMaintenance{rows: map[uuid.UUID]*model.MaintenanceRequest{}}
	s := NewMaintenanceService(repo)
	ctx := context.Background()

	m, err := s.Create(ctx, resident, leak())
	require.NoError(t, err)
	require.Equal(t, workflow.MaintenancePending, m.Status)
	require.Equal(t, resident.ID, m.ResidentID)

	_, err = s.UpdateStatus(ctx, resident, m.ID, workflow.MaintenanceAcknowledged)
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = s.UpdateStatus(ctx, root, m.ID, workflow.MaintenanceInProgress)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	_, err = s.UpdateStatus(ctx, root, m.ID, workflow.MaintenancePending)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	for _, to := range []workflow.MaintenanceStatus{
		workflow.MaintenanceAcknowledged, workflow.MaintenanceInProgress, workflow.MaintenanceCompleted,
	} {
		before := time.Now().UTC().Add(-time.Second)
		got, err := s.UpdateStatus(ctx, root, m.ID, to)
		require.NoError(t, err)
		require.Equal(t, to, got.Status)
		require.True(t, got.UpdatedAt.After(before))
	}

	got, err := s.Get(ctx, resident, m.ID)
	require.NoError(t, err)
	require.Equal(t, "root", got.AcknowledgedBy)
	require.NotNil(t, got.AcknowledgedAt)
	require.NotNil(t, got.CompletedAt)

	_, err = s.Get(ctx, neighbor, m.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = s.UpdateStatus(ctx, root, m.ID, workflow.MaintenancePending)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestMaintenance_CreateValidatesAndRejectsAdmins(t *testing.T) {
	s := NewMaintenanceService(&memMaintenance{rows: map[uuid.UUID]*model.MaintenanceRequest{}})
	ctx := context.Background()

	bad := leak()
	bad.Title = ""
	_, err := s.Create(ctx, resident, bad)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = s.Create(ctx, root, leak())
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = s.List(ctx, resident, "bogus")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestVisitor_CreateThenListPendingAndApprove(t *testing.T) {
	repo := &memVisitors{rows: map[uuid.UUID]*model.VisitorRequest{}}
	s := NewVisitorService(repo)
	ctx := context.Background()

	v, err := s.Create(ctx, resident, model.VisitorRequest{
		HostName: "Ann", HostFlatNumber: "4B", HostContact: "555", VisitorName: "Carl",
		VisitorPhone: "556", Purpose: "dinner", ExpectedArrival: time.Now().Add(time.Hour),
		Status: workflow.VisitorApproved,
	})
	require.NoError(t, err)

	mine, err := s.List(ctx, resident, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, workflow.VisitorPending, mine[0].Status)

	theirs, err := s.List(ctx, neighbor, "")
	require.NoError(t, err)
	require.Empty(t, theirs)

	all, err := s.List(ctx, root, "pending")
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = s.UpdateStatus(ctx, root, v.ID, workflow.VisitorCompleted)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	got, err := s.UpdateStatus(ctx, root, v.ID, workflow.VisitorApproved)
	require.NoError(t, err)
	require.Equal(t, "root", got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)

	dash := NewDashboardService(&memDeliveries{}, repo)
	sum, err := dash.Summary(ctx, resident)
	require.NoError(t, err)
	require.Equal(t, []model.StatusCount{
		{Kind: workflow.KindDelivery, Status: "scheduled", Count: 1},
		{Kind: workflow.KindVisitor, Status: "approved", Count: 1},
	}, sum)
}

func TestDelivery_OwnerEditsAndDeletes(t *testing.T) {
	repo := &memDeliveries{rows: map[uuid.UUID]*model.Delivery{}}
	s := NewDeliveryService(repo)
	ctx := context.Background()

	_, err := s.Create(ctx, resident, model.Delivery{})
	require.ErrorIs(t, err, errs.ErrValidation)

	d, err := s.Create(ctx, resident, model.Delivery{DeliveryName: "Groceries", Carrier: "DHL"})
	require.NoError(t, err)
	require.Equal(t, workflow.DeliveryScheduled, d.Status)

	same := workflow.DeliveryScheduled
	_, err = s.Update(ctx, resident, d.ID, model.DeliveryUpdate{Status: &same})
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	_, err = s.Update(ctx, neighbor, d.ID, model.DeliveryUpdate{Notes: ptr("mine now")})
	require.ErrorIs(t, err, errs.ErrNotFound)

	transit := workflow.DeliveryInTransit
	got, err := s.Update(ctx, resident, d.ID, model.DeliveryUpdate{Status: &transit, Notes: ptr("gate code 12")})
	require.NoError(t, err)
	require.Equal(t, workflow.DeliveryInTransit, got.Status)
	require.Equal(t, "gate code 12", got.Notes)
	require.Equal(t, "DHL", got.Carrier)

	delivered := workflow.DeliveryDelivered
	_, err = s.Update(ctx, resident, d.ID, model.DeliveryUpdate{Status: &delivered})
	require.NoError(t, err)
	back := workflow.DeliveryScheduled
	_, err = s.Update(ctx, resident, d.ID, model.DeliveryUpdate{Status: &back})
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	require.ErrorIs(t, s.Delete(ctx, neighbor, d.ID), errs.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, root, d.ID), errs.ErrForbidden)
	require.NoError(t, s.Delete(ctx, resident, d.ID))
	_, err = s.Get(ctx, resident, d.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func ptr[T any](v T) *T { return &v }
