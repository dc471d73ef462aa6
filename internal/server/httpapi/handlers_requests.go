package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/changefeed"
	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/workflow"
)

type statusChange struct {
	Status string `json:"status"`
}

func (a *api) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, fmt.Errorf("%w: id", errs.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

// --- deliveries ---

func (a *api) listDeliveries(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	out, err := a.d.Deliveries.List(r.Context(), act, r.URL.Query().Get("status"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getDelivery(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	d, err := a.d.Deliveries.Get(r.Context(), act, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *api) createDelivery(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	var in model.Delivery
	if !a.decode(w, r, &in) {
		return
	}
	d, err := a.d.Deliveries.Create(r.Context(), act, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (a *api) updateDelivery(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var in model.DeliveryUpdate
	if !a.decode(w, r, &in) {
		return
	}
	d, err := a.d.Deliveries.Update(r.Context(), act, id, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *api) deleteDelivery(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.d.Deliveries.Delete(r.Context(), act, id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- maintenance ---

func (a *api) listMaintenance(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	out, err := a.d.Maintenance.List(r.Context(), act, r.URL.Query().Get("status"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getMaintenance(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	m, err := a.d.Maintenance.Get(r.Context(), act, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *api) createMaintenance(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	var in model.MaintenanceRequest
	if !a.decode(w, r, &in) {
		return
	}
	m, err := a.d.Maintenance.Create(r.Context(), act, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (a *api) updateMaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var in statusChange
	if !a.decode(w, r, &in) {
		return
	}
	to, err := workflow.ParseMaintenanceStatus(in.Status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	m, err := a.d.Maintenance.UpdateStatus(r.Context(), act, id, to)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// --- visitors ---

func (a *api) listVisitors(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	out, err := a.d.Visitors.List(r.Context(), act, r.URL.Query().Get("status"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getVisitor(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	v, err := a.d.Visitors.Get(r.Context(), act, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *api) createVisitor(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	var in model.VisitorRequest
	if !a.decode(w, r, &in) {
		return
	}
	v, err := a.d.Visitors.Create(r.Context(), act, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (a *api) updateVisitorStatus(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var in statusChange
	if !a.decode(w, r, &in) {
		return
	}
	to, err := workflow.ParseVisitorStatus(in.Status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	v, err := a.d.Visitors.UpdateStatus(r.Context(), act, id, to)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// --- dashboard and change stream ---

func (a *api) dashboard(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	out, err := a.d.Dashboard.Summary(r.Context(), act)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// changes upgrades to a WebSocket; ?tables=deliveries,visitor_requests narrows the stream.
func (a *api) changes(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	var tables []string
	if raw := r.URL.Query().Get("tables"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if _, ok := workflow.KindFromTable(strings.TrimSpace(t)); !ok {
				a.fail(w, r, fmt.Errorf("%w: unknown table %q", errs.ErrValidation, t))
				return
			}
			tables = append(tables, strings.TrimSpace(t))
		}
	}
	changefeed.Stream(w, r, a.d.Hub, act.ID, act.Admin, tables, a.d.Stream, a.log)
}
