package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/repository"
)

// AnnouncementService publishes community notices.
type AnnouncementService interface {
	// List returns all announcements to admins and only active ones to residents.
	List(ctx context.Context, a Actor) ([]model.Announcement, error)
	Create(ctx context.Context, a Actor, in model.Announcement) (*model.Announcement, error)
	Update(ctx context.Context, a Actor, in model.Announcement) (*model.Announcement, error)
	SetActive(ctx context.Context, a Actor, id uuid.UUID, active bool) error
	Delete(ctx context.Context, a Actor, id uuid.UUID) error
}

type AnnouncementServiceImpl struct {
	repo repository.AnnouncementRepository
	now  clock
}

// NewAnnouncementService constructs AnnouncementService.
func NewAnnouncementService(repo repository.AnnouncementRepository) *AnnouncementServiceImpl {
	return &AnnouncementServiceImpl{repo: repo, now: time.Now}
}

func (s *AnnouncementServiceImpl) List(ctx context.Context, a Actor) ([]model.Announcement, error) {
	return s.repo.List(ctx, !a.Admin)
}

func (s *AnnouncementServiceImpl) Create(ctx context.Context, a Actor, in model.Announcement) (*model.Announcement, error) {
	if err := a.admin(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.now.stamp()
	in.ID, in.CreatedBy, in.CreatedAt, in.UpdatedAt = id, a.Name, now, now
	if err := s.repo.Create(ctx, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *AnnouncementServiceImpl) Update(ctx context.Context, a Actor, in model.Announcement) (*model.Announcement, error) {
	if err := a.admin(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.UpdatedAt = s.now.stamp()
	if err := s.repo.Update(ctx, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *AnnouncementServiceImpl) SetActive(ctx context.Context, a Actor, id uuid.UUID, active bool) error {
	if err := a.admin(); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, active)
}

func (s *AnnouncementServiceImpl) Delete(ctx context.Context, a Actor, id uuid.UUID) error {
	if err := a.admin(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
