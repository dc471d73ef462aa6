// Package workflow defines the closed status sets of request resources and their allowed transitions.
//
// Every mapping (label, notification phrase, next statuses) is an exhaustive switch over the
// status constants; adding a status without extending each switch is caught by the All() tests.
package workflow

import (
	"fmt"

	"github.com/and161185/estatedesk/internal/errs"
)

// Status is the constraint satisfied by every resource status type.
type Status[S any] interface {
	~string
	Valid() bool
	Label() string
	Phrase() string
	Terminal() bool
	Next() []S
}

// DefaultPhrase is used for statuses with no dedicated notification phrase.
const DefaultPhrase = "has been updated"

// CanTransition reports whether from -> to is in the allowed set. Self-transitions are never allowed.
func CanTransition[S Status[S]](from, to S) bool {
	if from == to || !to.Valid() {
		return false
	}
	for _, n := range from.Next() {
		if n == to {
			return true
		}
	}
	return false
}

// Check returns errs.ErrInvalidTransition when from -> to is not allowed.
func Check[S Status[S]](from, to S) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", string(from), string(to), errs.ErrInvalidTransition)
	}
	return nil
}

// PhraseOf returns the notification phrase for a raw status value of any resource,
// falling back to DefaultPhrase for unknown values.
func PhraseOf(kind Kind, raw string) string {
	switch kind {
	case KindDelivery:
		return DeliveryStatus(raw).Phrase()
	case KindMaintenance:
		return MaintenanceStatus(raw).Phrase()
	case KindVisitor:
		return VisitorStatus(raw).Phrase()
	default:
		return DefaultPhrase
	}
}

// Kind identifies a resource family.
type Kind string

const (
	KindDelivery     Kind = "delivery"
	KindMaintenance  Kind = "maintenance"
	KindVisitor      Kind = "visitor"
	KindAnnouncement Kind = "announcement"
)

// Table returns the backing table name.
func (k Kind) Table() string {
	switch k {
	case KindDelivery:
		return "deliveries"
	case KindMaintenance:
		return "maintenance_requests"
	case KindVisitor:
		return "visitor_requests"
	case KindAnnouncement:
		return "announcements"
	default:
		return ""
	}
}

// Noun is the human name used in notifications.
func (k Kind) Noun() string {
	switch k {
	case KindDelivery:
		return "Delivery"
	case KindMaintenance:
		return "Maintenance request"
	case KindVisitor:
		return "Visitor request"
	case KindAnnouncement:
		return "Announcement"
	default:
		return "Record"
	}
}

// KindFromTable maps a table name back to its Kind.
func KindFromTable(table string) (Kind, bool) {
	for _, k := range []Kind{KindDelivery, KindMaintenance, KindVisitor, KindAnnouncement} {
		if k.Table() == table {
			return k, true
		}
	}
	return "", false
}
