package workflow

import (
	"fmt"

	"github.com/and161185/estatedesk/internal/errs"
)

// DeliveryStatus is the lifecycle of a resident delivery.
type DeliveryStatus string

const (
	DeliveryScheduled DeliveryStatus = "scheduled"
	DeliveryInTransit DeliveryStatus = "in_transit"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryCancelled DeliveryStatus = "cancelled"
)

// AllDeliveryStatuses lists every delivery status in display order.
func AllDeliveryStatuses() []DeliveryStatus {
	return []DeliveryStatus{DeliveryScheduled, DeliveryInTransit, DeliveryDelivered, DeliveryFailed, DeliveryCancelled}
}

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryScheduled, DeliveryInTransit, DeliveryDelivered, DeliveryFailed, DeliveryCancelled:
		return true
	default:
		return false
	}
}

func (s DeliveryStatus) Label() string {
	switch s {
	case DeliveryScheduled:
		return "Scheduled"
	case DeliveryInTransit:
		return "In Transit"
	case DeliveryDelivered:
		return "Delivered"
	case DeliveryFailed:
		return "Failed"
	case DeliveryCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

func (s DeliveryStatus) Phrase() string {
	switch s {
	case DeliveryScheduled:
		return "has been scheduled"
	case DeliveryInTransit:
		return "is now in transit"
	case DeliveryDelivered:
		return "has been delivered"
	case DeliveryFailed:
		return "failed to deliver"
	case DeliveryCancelled:
		return "has been cancelled"
	default:
		return DefaultPhrase
	}
}

func (s DeliveryStatus) Terminal() bool {
	switch s {
	case DeliveryDelivered, DeliveryFailed, DeliveryCancelled:
		return true
	default:
		return false
	}
}

// Next: the owner edits a live delivery directly, so any other status is reachable
// until the delivery settles in a terminal status.
func (s DeliveryStatus) Next() []DeliveryStatus {
	switch s {
	case DeliveryScheduled, DeliveryInTransit:
		out := make([]DeliveryStatus, 0, 4)
		for _, o := range AllDeliveryStatuses() {
			if o != s {
				out = append(out, o)
			}
		}
		return out
	default:
		return nil
	}
}

// MaintenanceStatus is the lifecycle of a maintenance request.
type MaintenanceStatus string

const (
	MaintenancePending      MaintenanceStatus = "pending"
	MaintenanceAcknowledged MaintenanceStatus = "acknowledged"
	MaintenanceInProgress   MaintenanceStatus = "in_progress"
	MaintenanceCompleted    MaintenanceStatus = "completed"
)

func AllMaintenanceStatuses() []MaintenanceStatus {
	return []MaintenanceStatus{MaintenancePending, MaintenanceAcknowledged, MaintenanceInProgress, MaintenanceCompleted}
}

func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenancePending, MaintenanceAcknowledged, MaintenanceInProgress, MaintenanceCompleted:
		return true
	default:
		return false
	}
}

func (s MaintenanceStatus) Label() string {
	switch s {
	case MaintenancePending:
		return "Pending"
	case MaintenanceAcknowledged:
		return "Acknowledged"
	case MaintenanceInProgress:
		return "In Progress"
	case MaintenanceCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

func (s MaintenanceStatus) Phrase() string {
	switch s {
	case MaintenancePending:
		return "has been submitted"
	case MaintenanceAcknowledged:
		return "has been acknowledged"
	case MaintenanceInProgress:
		return "is now in progress"
	case MaintenanceCompleted:
		return "has been completed"
	default:
		return DefaultPhrase
	}
}

func (s MaintenanceStatus) Terminal() bool { return s == MaintenanceCompleted }

// Next returns the single step forward; requests move one step at a time.
func (s MaintenanceStatus) Next() []MaintenanceStatus {
	switch s {
	case MaintenancePending:
		return []MaintenanceStatus{MaintenanceAcknowledged}
	case MaintenanceAcknowledged:
		return []MaintenanceStatus{MaintenanceInProgress}
	case MaintenanceInProgress:
		return []MaintenanceStatus{MaintenanceCompleted}
	default:
		return nil
	}
}

// VisitorStatus is the lifecycle of a visitor request.
type VisitorStatus string

const (
	VisitorPending   VisitorStatus = "pending"
	VisitorApproved  VisitorStatus = "approved"
	VisitorDenied    VisitorStatus = "denied"
	VisitorCompleted VisitorStatus = "completed"
)

func AllVisitorStatuses() []VisitorStatus {
	return []VisitorStatus{VisitorPending, VisitorApproved, VisitorDenied, VisitorCompleted}
}

func (s VisitorStatus) Valid() bool {
	switch s {
	case VisitorPending, VisitorApproved, VisitorDenied, VisitorCompleted:
		return true
	default:
		return false
	}
}

func (s VisitorStatus) Label() string {
	switch s {
	case VisitorPending:
		return "Pending"
	case VisitorApproved:
		return "Approved"
	case VisitorDenied:
		return "Denied"
	case VisitorCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

func (s VisitorStatus) Phrase() string {
	switch s {
	case VisitorPending:
		return "is awaiting approval"
	case VisitorApproved:
		return "has been approved"
	case VisitorDenied:
		return "has been denied"
	case VisitorCompleted:
		return "has been completed"
	default:
		return DefaultPhrase
	}
}

func (s VisitorStatus) Terminal() bool {
	switch s {
	case VisitorDenied, VisitorCompleted:
		return true
	default:
		return false
	}
}

func (s VisitorStatus) Next() []VisitorStatus {
	switch s {
	case VisitorPending:
		return []VisitorStatus{VisitorApproved, VisitorDenied}
	case VisitorApproved:
		return []VisitorStatus{VisitorCompleted}
	default:
		return nil
	}
}

// ParseDeliveryStatus validates a raw value.
func ParseDeliveryStatus(raw string) (DeliveryStatus, error) {
	s := DeliveryStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("delivery status %q: %w", raw, errs.ErrValidation)
	}
	return s, nil
}

// ParseMaintenanceStatus validates a raw value.
func ParseMaintenanceStatus(raw string) (MaintenanceStatus, error) {
	s := MaintenanceStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("maintenance status %q: %w", raw, errs.ErrValidation)
	}
	return s, nil
}

// ParseVisitorStatus validates a raw value.
func ParseVisitorStatus(raw string) (VisitorStatus, error) {
	s := VisitorStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("visitor status %q: %w", raw, errs.ErrValidation)
	}
	return s, nil
}
