package service

import (
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/repository"
)

// Actor is the authenticated caller of a service method.
type Actor struct {
	ID    uuid.UUID
	Name  string
	Admin bool
}

// ActorFromClaims maps verified token claims to an Actor.
func ActorFromClaims(c *Claims) (Actor, error) {
	id, err := c.UserID()
	if err != nil {
		return Actor{}, errs.ErrUnauthorized
	}
	switch c.Kind {
	case KindAdmin:
		return Actor{ID: id, Name: c.Username, Admin: true}, nil
	case KindUser:
		return Actor{ID: id, Name: c.Email}, nil
	default:
		return Actor{}, errs.ErrUnauthorized
	}
}

// scope lists everything for admins and only own records for residents.
func (a Actor) scope(status string) repository.Filter {
	if a.Admin {
		return repository.Filter{Status: status}
	}
	return repository.Filter{OwnerID: a.ID, Status: status}
}

func (a Actor) owner() uuid.UUID {
	if a.Admin {
		return uuid.Nil
	}
	return a.ID
}

// canSee hides other residents' records as not found.
func (a Actor) canSee(owner uuid.UUID) error {
	if a.Admin || a.ID == owner {
		return nil
	}
	return errs.ErrNotFound
}

func (a Actor) resident() error {
	if a.Admin {
		return errs.ErrForbidden
	}
	return nil
}

func (a Actor) admin() error {
	if !a.Admin {
		return errs.ErrForbidden
	}
	return nil
}
