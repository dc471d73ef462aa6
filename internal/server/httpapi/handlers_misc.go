package httpapi

import (
	"net/http"

	"github.com/and161185/estatedesk/internal/model"
)

func (a *api) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	out, err := a.d.Announcements.List(r.Context(), act)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) createAnnouncement(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	var in model.Announcement
	if !a.decode(w, r, &in) {
		return
	}
	out, err := a.d.Announcements.Create(r.Context(), act, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (a *api) updateAnnouncement(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var in model.Announcement
	if !a.decode(w, r, &in) {
		return
	}
	in.ID = id
	out, err := a.d.Announcements.Update(r.Context(), act, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) setAnnouncementActive(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		Active bool `json:"active"`
	}
	if !a.decode(w, r, &in) {
		return
	}
	if err := a.d.Announcements.SetActive(r.Context(), act, id, in.Active); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) deleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.d.Announcements.Delete(r.Context(), act, id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) getProfile(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	p, err := a.d.Profiles.Get(r.Context(), act)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *api) updateProfile(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	var in model.Profile
	if !a.decode(w, r, &in) {
		return
	}
	p, err := a.d.Profiles.Update(r.Context(), act, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *api) setMFA(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	var in struct {
		Enabled bool `json:"enabled"`
	}
	if !a.decode(w, r, &in) {
		return
	}
	if err := a.d.Profiles.SetMFA(r.Context(), act, in.Enabled); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) changePassword(w http.ResponseWriter, r *http.Request) {
	act, ok := a.actor(w, r)
	if !ok {
		return
	}
	var in struct {
		Current string `json:"current"`
		Next    string `json:"next"`
	}
	if !a.decode(w, r, &in) {
		return
	}
	claims, _ := ClaimsFromCtx(r.Context())
	if err := a.d.Profiles.ChangePassword(r.Context(), act, claims, in.Current, in.Next); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
