// Package changefeed fans data-store change events out to live subscribers.
package changefeed

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/workflow"
)

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event is a single row change of a watched table. New is empty for deletes, Old for inserts.
type Event struct {
	Table string          `json:"table"`
	Type  Op              `json:"type"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
	At    time.Time       `json:"at"`
}

// Kind maps the event's table to a resource kind.
func (e Event) Kind() (workflow.Kind, bool) { return workflow.KindFromTable(e.Table) }

type rowHeader struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	ResidentID   uuid.UUID `json:"resident_id"`
	Status       string    `json:"status"`
	DeliveryName string    `json:"delivery_name"`
	VisitorName  string    `json:"visitor_name"`
	Title        string    `json:"title"`
	IsActive     *bool     `json:"is_active"`
}

func header(raw json.RawMessage) (rowHeader, bool) {
	var h rowHeader
	if len(raw) == 0 {
		return h, false
	}
	if err := json.Unmarshal(raw, &h); err != nil {
		return h, false
	}
	return h, true
}

// Owner returns the resident owning the changed row, or uuid.Nil for unowned tables.
func (e Event) Owner() uuid.UUID {
	h, ok := header(e.New)
	if !ok {
		h, _ = header(e.Old)
	}
	if h.UserID != uuid.Nil {
		return h.UserID
	}
	return h.ResidentID
}

// RecordID returns the id of the changed row.
func (e Event) RecordID() uuid.UUID {
	if h, ok := header(e.New); ok {
		return h.ID
	}
	h, _ := header(e.Old)
	return h.ID
}

// Statuses returns the old and new status values ("" when absent).
func (e Event) Statuses() (old, cur string) {
	o, _ := header(e.Old)
	n, _ := header(e.New)
	return o.Status, n.Status
}

// Name is the human label of the changed row: delivery name, visitor name or title.
func (e Event) Name() string {
	h, ok := header(e.New)
	if !ok {
		h, _ = header(e.Old)
	}
	switch {
	case h.DeliveryName != "":
		return h.DeliveryName
	case h.VisitorName != "":
		return h.VisitorName
	default:
		return h.Title
	}
}

// Visible reports whether a subscriber may see the event at all.
func (e Event) Visible(subscriber uuid.UUID, admin bool) bool {
	_, ok := e.For(subscriber, admin)
	return ok
}

// For returns the event as the subscriber may see it. Admins see everything;
// residents see their own rows and changes to active announcements.
func (e Event) For(subscriber uuid.UUID, admin bool) (Event, bool) {
	if admin {
		return e, true
	}
	if e.Table == workflow.KindAnnouncement.Table() {
		return e.forResident()
	}
	return e, subscriber != uuid.Nil && e.Owner() == subscriber
}

// forResident hides inactive announcements. A row leaving the active set is
// reported by id only so lists refresh without exposing its content.
func (e Event) forResident() (Event, bool) {
	n, hasNew := header(e.New)
	o, hasOld := header(e.Old)
	if hasNew && active(n) {
		return e, true
	}
	if !hasOld || !active(o) {
		return Event{}, false
	}
	gone := Event{Table: e.Table, Type: e.Type, At: e.At}
	gone.Old, _ = json.Marshal(struct {
		ID       uuid.UUID `json:"id"`
		IsActive bool      `json:"is_active"`
	}{o.ID, true})
	return gone, true
}

func active(h rowHeader) bool { return h.IsActive != nil && *h.IsActive }
