package repository

import (
	"context"
	"time"

	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/workflow"
	"github.com/gofrs/uuid/v5"
)

// Filter narrows list queries. A uuid.Nil OwnerID lists every owner's records.
type Filter struct {
	OwnerID uuid.UUID
	Status  string
}

// Stamp carries the side fields written together with a status change.
type Stamp struct {
	At    time.Time
	Actor string
}

// DeliveryRepository stores deliveries. Deliveries are the only request type that can be hard-deleted.
type DeliveryRepository interface {
	List(ctx context.Context, f Filter) ([]model.Delivery, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Delivery, error)
	Create(ctx context.Context, d *model.Delivery) error
	// Update rewrites every editable field, guarded by the status the caller last saw.
	Update(ctx context.Context, d *model.Delivery, seen workflow.DeliveryStatus) error
	// Delete removes a delivery owned by userID.
	Delete(ctx context.Context, id, userID uuid.UUID) error
	CountByStatus(ctx context.Context, owner uuid.UUID) ([]model.StatusCount, error)
}

// MaintenanceRepository stores maintenance requests.
type MaintenanceRepository interface {
	List(ctx context.Context, f Filter) ([]model.MaintenanceRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*model.MaintenanceRequest, error)
	Create(ctx context.Context, m *model.MaintenanceRequest) error
	// UpdateStatus moves from -> to; ErrVersionConflict when the row is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to workflow.MaintenanceStatus, st Stamp) (*model.MaintenanceRequest, error)
	CountByStatus(ctx context.Context, owner uuid.UUID) ([]model.StatusCount, error)
}

// VisitorRepository stores visitor requests.
type VisitorRepository interface {
	List(ctx context.Context, f Filter) ([]model.VisitorRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*model.VisitorRequest, error)
	Create(ctx context.Context, v *model.VisitorRequest) error
	// UpdateStatus moves from -> to; ErrVersionConflict when the row is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to workflow.VisitorStatus, st Stamp) (*model.VisitorRequest, error)
	CountByStatus(ctx context.Context, owner uuid.UUID) ([]model.StatusCount, error)
}

// AnnouncementRepository stores announcements.
type AnnouncementRepository interface {
	List(ctx context.Context, activeOnly bool) ([]model.Announcement, error)
	Create(ctx context.Context, a *model.Announcement) error
	Update(ctx context.Context, a *model.Announcement) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}
