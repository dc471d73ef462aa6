package service

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/model"
)

type statusCounter interface {
	CountByStatus(ctx context.Context, owner uuid.UUID) ([]model.StatusCount, error)
}

// DashboardService summarizes request counts per status.
type DashboardService struct {
	sources []statusCounter
}

// NewDashboardService aggregates the given repositories in order.
func NewDashboardService(sources ...statusCounter) *DashboardService {
	return &DashboardService{sources: sources}
}

// Summary counts the caller's records, or every record for an administrator.
func (s *DashboardService) Summary(ctx context.Context, a Actor) ([]model.StatusCount, error) {
	out := []model.StatusCount{}
	for _, src := range s.sources {
		counts, err := src.CountByStatus(ctx, a.owner())
		if err != nil {
			return nil, err
		}
		out = append(out, counts...)
	}
	return out, nil
}
