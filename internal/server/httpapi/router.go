// Package httpapi exposes the services over HTTP/JSON and streams change
// events over WebSocket.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/estatedesk/internal/changefeed"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/service"
)

// Summarizer produces dashboard counts.
type Summarizer interface {
	Summary(ctx context.Context, a service.Actor) ([]model.StatusCount, error)
}

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Auth          service.AuthService
	Admin         service.AdminService
	Tokens        *service.TokenIssuer
	Deliveries    service.DeliveryService
	Maintenance   service.MaintenanceService
	Visitors      service.VisitorService
	Announcements service.AnnouncementService
	Profiles      service.ProfileService
	Dashboard     Summarizer

	Hub    *changefeed.Hub
	Stream changefeed.StreamOptions

	// OAuthReturnURL is used when a federated sign-in did not name its own return URL.
	OAuthReturnURL string
	Log            *zap.Logger
}

type api struct {
	d   Deps
	log *zap.Logger
}

// NewRouter wires every route under /api/v1.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	a := &api{d: d, log: d.Log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoverer(a.log))
	r.Use(requestLog(a.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", a.signUp)
		r.Post("/auth/signin", a.signIn)
		r.Post("/auth/mfa/verify", a.verifyMFA)
		r.Post("/auth/phone/send", a.sendPhoneCode)
		r.Post("/auth/phone/verify", a.verifyPhoneCode)
		r.Get("/auth/google", a.federatedURL)
		r.Get("/auth/google/callback", a.federatedCallback)
		r.Post("/admin/login", a.adminLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.authenticate)

			r.Get("/auth/session", a.currentSession)
			r.Post("/auth/signout", a.signOut)

			r.Get("/dashboard", a.dashboard)
			r.Get("/changes", a.changes)

			r.Route("/deliveries", func(r chi.Router) {
				r.Get("/", a.listDeliveries)
				r.Post("/", a.createDelivery)
				r.Get("/{id}", a.getDelivery)
				r.Patch("/{id}", a.updateDelivery)
				r.Delete("/{id}", a.deleteDelivery)
			})
			r.Route("/maintenance", func(r chi.Router) {
				r.Get("/", a.listMaintenance)
				r.Post("/", a.createMaintenance)
				r.Get("/{id}", a.getMaintenance)
				r.Post("/{id}/status", a.updateMaintenanceStatus)
			})
			r.Route("/visitors", func(r chi.Router) {
				r.Get("/", a.listVisitors)
				r.Post("/", a.createVisitor)
				r.Get("/{id}", a.getVisitor)
				r.Post("/{id}/status", a.updateVisitorStatus)
			})
			r.Route("/announcements", func(r chi.Router) {
				r.Get("/", a.listAnnouncements)
				r.Post("/", a.createAnnouncement)
				r.Put("/{id}", a.updateAnnouncement)
				r.Post("/{id}/active", a.setAnnouncementActive)
				r.Delete("/{id}", a.deleteAnnouncement)
			})
			r.Route("/profile", func(r chi.Router) {
				r.Get("/", a.getProfile)
				r.Put("/", a.updateProfile)
				r.Post("/mfa", a.setMFA)
				r.Post("/password", a.changePassword)
			})
		})
	})
	return r
}
