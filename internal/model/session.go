package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// UserSession is the resident identity issued by the identity provider and mirrored locally.
type UserSession struct {
	AccessToken string    `json:"access_token"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (u UserSession) Expired(now time.Time) bool {
	return !u.ExpiresAt.IsZero() && !now.Before(u.ExpiresAt)
}

// RoleAdmin is the only role an AdminSession carries.
const RoleAdmin = "admin"

// AdminSession is a locally issued administrator identity, distinct from UserSession.
// The persisted form is {id, username, role}; Token is kept alongside for API calls.
type AdminSession struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Token    string    `json:"token,omitempty"`
}

// Valid reports whether the record is a usable admin session.
func (a AdminSession) Valid() bool {
	return a.ID != uuid.Nil && a.Username != "" && a.Role == RoleAdmin
}

// Session is the active identity of a client: exactly one of Anonymous, Resident or Admin.
type Session interface {
	isSession()
}

// Anonymous is the session of a client with no identity.
type Anonymous struct{}

// Resident wraps a resident (user) session.
type Resident struct{ UserSession }

// Admin wraps an administrator session.
type Admin struct{ AdminSession }

func (Anonymous) isSession() {}
func (Resident) isSession()  {}
func (Admin) isSession()     {}

// Resolve picks the active session. An admin session takes precedence over a user session.
func Resolve(user *UserSession, admin *AdminSession) Session {
	switch {
	case admin != nil && admin.Valid():
		return Admin{*admin}
	case user != nil && user.AccessToken != "":
		return Resident{*user}
	default:
		return Anonymous{}
	}
}
