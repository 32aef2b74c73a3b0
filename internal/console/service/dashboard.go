package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xela07ax/gad-tramites/internal/domain"
)

type StatsProvider interface {
	Stats(ctx context.Context, since time.Time) (*domain.DashboardStats, error)
}

type DashboardService struct {
	repo StatsProvider
	loc  *time.Location
	now  func() time.Time
}

// NewDashboardService — "сегодня" считается в часовом поясе офиса.
func NewDashboardService(repo StatsProvider, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{repo: repo, loc: loc, now: time.Now}
}

func (s *DashboardService) GetGlobalStats(ctx context.Context) (*domain.DashboardStats, error) {
	now := s.now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	stats, err := s.repo.Stats(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("dashboard_service: %w", err)
	}
	return stats, nil
}
