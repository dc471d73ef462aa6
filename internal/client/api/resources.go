package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/workflow"
)

type statusChange struct {
	Status string `json:"status"`
}

func statusQuery(status string) url.Values {
	if status == "" {
		return nil
	}
	return url.Values{"status": {status}}
}

// Deliveries is the /deliveries resource.
type Deliveries struct{ c *Client }

// Maintenance is the /maintenance resource.
type Maintenance struct{ c *Client }

// Visitors is the /visitors resource.
type Visitors struct{ c *Client }

func (c *Client) Deliveries() Deliveries   { return Deliveries{c} }
func (c *Client) Maintenance() Maintenance { return Maintenance{c} }
func (c *Client) Visitors() Visitors       { return Visitors{c} }

func (r Deliveries) List(ctx context.Context, status string) ([]model.Delivery, error) {
	var out []model.Delivery
	err := r.c.call(ctx, http.MethodGet, "/deliveries/", statusQuery(status), "", nil, &out)
	return out, err
}

func (r Deliveries) Create(ctx context.Context, d model.Delivery) (*model.Delivery, error) {
	var out model.Delivery
	if err := r.c.call(ctx, http.MethodPost, "/deliveries/", nil, "", d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r Deliveries) Update(ctx context.Context, id uuid.UUID, u model.DeliveryUpdate) (*model.Delivery, error) {
	var out model.Delivery
	if err := r.c.call(ctx, http.MethodPatch, "/deliveries/"+id.String(), nil, "", u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus is an owner edit touching only the status.
func (r Deliveries) UpdateStatus(ctx context.Context, id uuid.UUID, to workflow.DeliveryStatus) (*model.Delivery, error) {
	return r.Update(ctx, id, model.DeliveryUpdate{Status: &to})
}

func (r Deliveries) Delete(ctx context.Context, id uuid.UUID) error {
	return r.c.call(ctx, http.MethodDelete, "/deliveries/"+id.String(), nil, "", nil, nil)
}

func (r Maintenance) List(ctx context.Context, status string) ([]model.MaintenanceRequest, error) {
	var out []model.MaintenanceRequest
	err := r.c.call(ctx, http.MethodGet, "/maintenance/", statusQuery(status), "", nil, &out)
	return out, err
}

func (r Maintenance) Create(ctx context.Context, m model.MaintenanceRequest) (*model.MaintenanceRequest, error) {
	var out model.MaintenanceRequest
	if err := r.c.call(ctx, http.MethodPost, "/maintenance/", nil, "", m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r Maintenance) UpdateStatus(ctx context.Context, id uuid.UUID, to workflow.MaintenanceStatus) (*model.MaintenanceRequest, error) {
	var out model.MaintenanceRequest
	if err := r.c.call(ctx, http.MethodPost, "/maintenance/"+id.String()+"/status", nil, "", statusChange{Status: string(to)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r Visitors) List(ctx context.Context, status string) ([]model.VisitorRequest, error) {
	var out []model.VisitorRequest
	err := r.c.call(ctx, http.MethodGet, "/visitors/", statusQuery(status), "", nil, &out)
	return out, err
}

func (r Visitors) Create(ctx context.Context, v model.VisitorRequest) (*model.VisitorRequest, error) {
	var out model.VisitorRequest
	if err := r.c.call(ctx, http.MethodPost, "/visitors/", nil, "", v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r Visitors) UpdateStatus(ctx context.Context, id uuid.UUID, to workflow.VisitorStatus) (*model.VisitorRequest, error) {
	var out model.VisitorRequest
	if err := r.c.call(ctx, http.MethodPost, "/visitors/"+id.String()+"/status", nil, "", statusChange{Status: string(to)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Announcements lists announcements visible to the caller.
func (c *Client) Announcements(ctx context.Context) ([]model.Announcement, error) {
	var out []model.Announcement
	err := c.call(ctx, http.MethodGet, "/announcements/", nil, "", nil, &out)
	return out, err
}

// CreateAnnouncement publishes a notice (admin only).
func (c *Client) CreateAnnouncement(ctx context.Context, a model.Announcement) (*model.Announcement, error) {
	var out model.Announcement
	if err := c.call(ctx, http.MethodPost, "/announcements/", nil, "", a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetAnnouncementActive shows or hides a notice (admin only).
func (c *Client) SetAnnouncementActive(ctx context.Context, id uuid.UUID, active bool) error {
	body := struct {
		Active bool `json:"active"`
	}{active}
	return c.call(ctx, http.MethodPost, "/announcements/"+id.String()+"/active", nil, "", body, nil)
}

// Profile loads the caller's profile.
func (c *Client) Profile(ctx context.Context) (*model.Profile, error) {
	var out model.Profile
	if err := c.call(ctx, http.MethodGet, "/profile/", nil, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetMFA toggles the second factor on the caller's account.
func (c *Client) SetMFA(ctx context.Context, enabled bool) error {
	body := struct {
		Enabled bool `json:"enabled"`
	}{enabled}
	return c.call(ctx, http.MethodPost, "/profile/mfa", nil, "", body, nil)
}

// Dashboard returns per-status counts.
func (c *Client) Dashboard(ctx context.Context) ([]model.StatusCount, error) {
	var out []model.StatusCount
	err := c.call(ctx, http.MethodGet, "/dashboard", nil, "", nil, &out)
	return out, err
}
