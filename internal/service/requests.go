package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/repository"
	"github.com/and161185/estatedesk/internal/workflow"
)

// DeliveryService manages resident deliveries.
type DeliveryService interface {
	List(ctx context.Context, a Actor, status string) ([]model.Delivery, error)
	Get(ctx context.Context, a Actor, id uuid.UUID) (*model.Delivery, error)
	Create(ctx context.Context, a Actor, d model.Delivery) (*model.Delivery, error)
	Update(ctx context.Context, a Actor, id uuid.UUID, u model.DeliveryUpdate) (*model.Delivery, error)
	Delete(ctx context.Context, a Actor, id uuid.UUID) error
}

// MaintenanceService manages maintenance requests.
type MaintenanceService interface {
	List(ctx context.Context, a Actor, status string) ([]model.MaintenanceRequest, error)
	Get(ctx context.Context, a Actor, id uuid.UUID) (*model.MaintenanceRequest, error)
	Create(ctx context.Context, a Actor, m model.MaintenanceRequest) (*model.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, a Actor, id uuid.UUID, to workflow.MaintenanceStatus) (*model.MaintenanceRequest, error)
}

// VisitorService manages visitor requests.
type VisitorService interface {
	List(ctx context.Context, a Actor, status string) ([]model.VisitorRequest, error)
	Get(ctx context.Context, a Actor, id uuid.UUID) (*model.VisitorRequest, error)
	Create(ctx context.Context, a Actor, v model.VisitorRequest) (*model.VisitorRequest, error)
	UpdateStatus(ctx context.Context, a Actor, id uuid.UUID, to workflow.VisitorStatus) (*model.VisitorRequest, error)
}

type clock func() time.Time

func (c clock) stamp() time.Time { return c().UTC() }

type DeliveryServiceImpl struct {
	repo repository.DeliveryRepository
	now  clock
}

// NewDeliveryService constructs DeliveryService.
func NewDeliveryService(repo repository.DeliveryRepository) *DeliveryServiceImpl {
	return &DeliveryServiceImpl{repo: repo, now: time.Now}
}

func (s *DeliveryServiceImpl) List(ctx context.Context, a Actor, status string) ([]model.Delivery, error) {
	if status != "" {
		if _, err := workflow.ParseDeliveryStatus(status); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, a.scope(status))
}

func (s *DeliveryServiceImpl) Get(ctx context.Context, a Actor, id uuid.UUID) (*model.Delivery, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.canSee(d.UserID); err != nil {
		return nil, err
	}
	return d, nil
}

// Create stores a delivery for the calling resident; status defaults to scheduled.
func (s *DeliveryServiceImpl) Create(ctx context.Context, a Actor, d model.Delivery) (*model.Delivery, error) {
	if err := a.resident(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	if d.Status == "" {
		d.Status = workflow.DeliveryScheduled
	}
	now := s.now.stamp()
	d.ID, d.UserID, d.CreatedAt, d.UpdatedAt = id, a.ID, now, now
	if err := s.repo.Create(ctx, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Update applies an owner edit. A status change must be a real change.
func (s *DeliveryServiceImpl) Update(ctx context.Context, a Actor, id uuid.UUID, u model.DeliveryUpdate) (*model.Delivery, error) {
	if err := a.resident(); err != nil {
		return nil, err
	}
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != a.ID {
		return nil, errs.ErrNotFound
	}
	seen := d.Status
	if u.Status != nil {
		if err := workflow.Check(seen, *u.Status); err != nil {
			return nil, err
		}
		d.Status = *u.Status
	}
	if u.DeliveryName != nil {
		d.DeliveryName = *u.DeliveryName
	}
	if u.Carrier != nil {
		d.Carrier = *u.Carrier
	}
	if u.TrackingNumber != nil {
		d.TrackingNumber = *u.TrackingNumber
	}
	if u.ScheduledDate != nil {
		d.ScheduledDate = u.ScheduledDate
	}
	if u.Notes != nil {
		d.Notes = *u.Notes
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	d.UpdatedAt = s.now.stamp()
	if err := s.repo.Update(ctx, d, seen); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DeliveryServiceImpl) Delete(ctx context.Context, a Actor, id uuid.UUID) error {
	if err := a.resident(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id, a.ID)
}

type MaintenanceServiceImpl struct {
	repo repository.MaintenanceRepository
	now  clock
}

// NewMaintenanceService constructs MaintenanceService.
func NewMaintenanceService(repo repository.MaintenanceRepository) *MaintenanceServiceImpl {
	return &MaintenanceServiceImpl{repo: repo, now: time.Now}
}

func (s *MaintenanceServiceImpl) List(ctx context.Context, a Actor, status string) ([]model.MaintenanceRequest, error) {
	if status != "" {
		if _, err := workflow.ParseMaintenanceStatus(status); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, a.scope(status))
}

func (s *MaintenanceServiceImpl) Get(ctx context.Context, a Actor, id uuid.UUID) (*model.MaintenanceRequest, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.canSee(m.ResidentID); err != nil {
		return nil, err
	}
	return m, nil
}

// Create files a request for the calling resident; it always starts pending.
func (s *MaintenanceServiceImpl) Create(ctx context.Context, a Actor, m model.MaintenanceRequest) (*model.MaintenanceRequest, error) {
	if err := a.resident(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.now.stamp()
	m.ID, m.ResidentID, m.Status, m.CreatedAt, m.UpdatedAt = id, a.ID, workflow.MaintenancePending, now, now
	m.AcknowledgedBy, m.AcknowledgedAt, m.CompletedAt = "", nil, nil
	if err := s.repo.Create(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateStatus advances the request one step; only administrators may do so.
func (s *MaintenanceServiceImpl) UpdateStatus(
	ctx context.Context, a Actor, id uuid.UUID, to workflow.MaintenanceStatus,
) (*model.MaintenanceRequest, error) {
	if err := a.admin(); err != nil {
		return nil, err
	}
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.Check(cur.Status, to); err != nil {
		return nil, err
	}
	out, err := s.repo.UpdateStatus(ctx, id, cur.Status, to, repository.Stamp{At: s.now.stamp(), Actor: a.Name})
	if err != nil {
		return nil, fmt.Errorf("maintenance %s: %w", id, err)
	}
	return out, nil
}

type VisitorServiceImpl struct {
	repo repository.VisitorRepository
	now  clock
}

// NewVisitorService constructs VisitorService.
func NewVisitorService(repo repository.VisitorRepository) *VisitorServiceImpl {
	return &VisitorServiceImpl{repo: repo, now: time.Now}
}

func (s *VisitorServiceImpl) List(ctx context.Context, a Actor, status string) ([]model.VisitorRequest, error) {
	if status != "" {
		if _, err := workflow.ParseVisitorStatus(status); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, a.scope(status))
}

func (s *VisitorServiceImpl) Get(ctx context.Context, a Actor, id uuid.UUID) (*model.VisitorRequest, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.canSee(v.ResidentID); err != nil {
		return nil, err
	}
	return v, nil
}

// Create registers an expected visitor; the request starts pending.
func (s *VisitorServiceImpl) Create(ctx context.Context, a Actor, v model.VisitorRequest) (*model.VisitorRequest, error) {
	if err := a.resident(); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.now.stamp()
	v.ID, v.ResidentID, v.Status, v.CreatedAt, v.UpdatedAt = id, a.ID, workflow.VisitorPending, now, now
	v.ApprovedBy, v.ApprovedAt = "", nil
	if err := s.repo.Create(ctx, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateStatus approves, denies or completes a visit; only administrators may do so.
func (s *VisitorServiceImpl) UpdateStatus(
	ctx context.Context, a Actor, id uuid.UUID, to workflow.VisitorStatus,
) (*model.VisitorRequest, error) {
	if err := a.admin(); err != nil {
		return nil, err
	}
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.Check(cur.Status, to); err != nil {
		return nil, err
	}
	out, err := s.repo.UpdateStatus(ctx, id, cur.Status, to, repository.Stamp{At: s.now.stamp(), Actor: a.Name})
	if err != nil {
		return nil, fmt.Errorf("visitor %s: %w", id, err)
	}
	return out, nil
}
