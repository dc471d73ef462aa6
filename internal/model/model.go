// Package model defines domain entities used by services, repositories and the client core.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/workflow"
)

// Tokens collects an issued access token and its expiry.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User is a resident account known to the identity provider. Passwords are never stored in plaintext.
type User struct {
	ID        uuid.UUID
	Email     string // unique, may be empty for phone-only accounts
	Phone     string // unique, may be empty
	PwdHash   []byte // Argon2id(password, SaltAuth)
	SaltAuth  []byte
	Provider  string // "password", "phone", "google"
	CreatedAt time.Time
}

// AdminUser is a row of the local administrator table, separate from the resident identity system.
type AdminUser struct {
	ID        uuid.UUID
	Username  string
	PwdHash   []byte
	SaltAuth  []byte
	LastLogin *time.Time
	CreatedAt time.Time
}

// Profile holds resident details and security preferences.
type Profile struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Phone      string    `json:"phone"`
	MFAEnabled bool      `json:"mfa_enabled"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Urgency of a maintenance request.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Valid reports whether u is one of the known urgency levels.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	default:
		return false
	}
}

// Delivery is a resident-scheduled delivery.
type Delivery struct {
	ID             uuid.UUID               `json:"id"`
	UserID         uuid.UUID               `json:"user_id"`
	DeliveryName   string                  `json:"delivery_name"`
	Carrier        string                  `json:"carrier,omitempty"`
	TrackingNumber string                  `json:"tracking_number,omitempty"`
	ScheduledDate  *time.Time              `json:"scheduled_date,omitempty"`
	Status         workflow.DeliveryStatus `json:"status"`
	Notes          string                  `json:"notes,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// DeliveryUpdate carries the fields of an owner edit; nil fields are left unchanged.
type DeliveryUpdate struct {
	DeliveryName   *string                  `json:"delivery_name,omitempty"`
	Carrier        *string                  `json:"carrier,omitempty"`
	TrackingNumber *string                  `json:"tracking_number,omitempty"`
	ScheduledDate  *time.Time               `json:"scheduled_date,omitempty"`
	Status         *workflow.DeliveryStatus `json:"status,omitempty"`
	Notes          *string                  `json:"notes,omitempty"`
}

// MaintenanceRequest is a resident-submitted repair request triaged by administrators.
type MaintenanceRequest struct {
	ID             uuid.UUID                  `json:"id"`
	ResidentID     uuid.UUID                  `json:"resident_id"`
	ResidentName   string                     `json:"resident_name"`
	FlatNumber     string                     `json:"flat_number"`
	ContactNumber  string                     `json:"contact_number"`
	Title          string                     `json:"title"`
	Description    string                     `json:"description"`
	Category       string                     `json:"category"`
	Urgency        Urgency                    `json:"urgency"`
	Status         workflow.MaintenanceStatus `json:"status"`
	AcknowledgedBy string                     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time                 `json:"acknowledged_at,omitempty"`
	AssignedTo     string                     `json:"assigned_to,omitempty"`
	CompletedAt    *time.Time                 `json:"completed_at,omitempty"`
	Notes          string                     `json:"notes,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

// VisitorRequest is a resident request to admit a visitor.
type VisitorRequest struct {
	ID              uuid.UUID              `json:"id"`
	ResidentID      uuid.UUID              `json:"resident_id"`
	HostName        string                 `json:"host_name"`
	HostFlatNumber  string                 `json:"host_flat_number"`
	HostContact     string                 `json:"host_contact"`
	VisitorName     string                 `json:"visitor_name"`
	VisitorPhone    string                 `json:"visitor_phone"`
	VisitorEmail    string                 `json:"visitor_email,omitempty"`
	ExpectedArrival time.Time              `json:"expected_arrival"`
	Purpose         string                 `json:"purpose"`
	Status          workflow.VisitorStatus `json:"status"`
	ApprovedBy      string                 `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time             `json:"approved_at,omitempty"`
	ActualArrival   *time.Time             `json:"actual_arrival,omitempty"`
	ActualDeparture *time.Time             `json:"actual_departure,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// Announcement is an admin-authored notice; residents see it only while active.
type Announcement struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	IsActive  bool      `json:"is_active"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCount is one bucket of a dashboard summary.
type StatusCount struct {
	Kind   workflow.Kind `json:"kind"`
	Status string        `json:"status"`
	Count  int           `json:"count"`
}
