package model

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/and161185/estatedesk/internal/errs"
)

type field struct {
	name  string
	value string
}

func required(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", errs.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// Field length caps. Names also travel in change notifications.
const (
	MaxNameLen = 200
	MaxTextLen = 4000
)

func bounded(limit int, fields ...field) error {
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > limit {
			return fmt.Errorf("%w: %s longer than %d characters", errs.ErrValidation, f.name, limit)
		}
	}
	return nil
}

// Validate checks the fields a new delivery must carry.
func (d Delivery) Validate() error {
	if err := required(field{"delivery_name", d.DeliveryName}); err != nil {
		return err
	}
	if err := bounded(MaxNameLen, field{"delivery_name", d.DeliveryName}, field{"carrier", d.Carrier},
		field{"tracking_number", d.TrackingNumber}); err != nil {
		return err
	}
	if err := bounded(MaxTextLen, field{"notes", d.Notes}); err != nil {
		return err
	}
	if d.Status != "" && !d.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", errs.ErrValidation, d.Status)
	}
	return nil
}

// Validate checks the fields a new maintenance request must carry.
func (m MaintenanceRequest) Validate() error {
	if err := required(
		field{"resident_name", m.ResidentName},
		field{"flat_number", m.FlatNumber},
		field{"contact_number", m.ContactNumber},
		field{"title", m.Title},
		field{"description", m.Description},
		field{"category", m.Category},
		field{"urgency", string(m.Urgency)},
	); err != nil {
		return err
	}
	if err := bounded(MaxNameLen,
		field{"resident_name", m.ResidentName},
		field{"flat_number", m.FlatNumber},
		field{"contact_number", m.ContactNumber},
		field{"title", m.Title},
		field{"category", m.Category},
	); err != nil {
		return err
	}
	if err := bounded(MaxTextLen, field{"description", m.Description}); err != nil {
		return err
	}
	if !m.Urgency.Valid() {
		return fmt.Errorf("%w: unknown urgency %q", errs.ErrValidation, m.Urgency)
	}
	return nil
}

// Validate checks the fields a new visitor request must carry.
func (v VisitorRequest) Validate() error {
	if err := required(
		field{"host_name", v.HostName},
		field{"host_flat_number", v.HostFlatNumber},
		field{"host_contact", v.HostContact},
		field{"visitor_name", v.VisitorName},
		field{"visitor_phone", v.VisitorPhone},
		field{"purpose", v.Purpose},
	); err != nil {
		return err
	}
	if err := bounded(MaxNameLen,
		field{"host_name", v.HostName},
		field{"host_flat_number", v.HostFlatNumber},
		field{"host_contact", v.HostContact},
		field{"visitor_name", v.VisitorName},
		field{"visitor_phone", v.VisitorPhone},
		field{"visitor_email", v.VisitorEmail},
	); err != nil {
		return err
	}
	if err := bounded(MaxTextLen, field{"purpose", v.Purpose}); err != nil {
		return err
	}
	if v.ExpectedArrival.IsZero() {
		return fmt.Errorf("%w: expected_arrival required", errs.ErrValidation)
	}
	return nil
}

// Validate checks title and content.
func (a Announcement) Validate() error {
	if err := required(field{"title", a.Title}, field{"content", a.Content}); err != nil {
		return err
	}
	if err := bounded(MaxNameLen, field{"title", a.Title}); err != nil {
		return err
	}
	return bounded(MaxTextLen, field{"content", a.Content})
}
