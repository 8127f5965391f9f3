package service

import (
	"context"

	"github.com/ecohuntapp/ecohunt-server/internal/model"
	"github.com/ecohuntapp/ecohunt-server/internal/repository"
	"github.com/google/uuid"
)

// ProfileOverview is the profile screen payload: identity, cached
// progression and the latest ledger entries. TotalPoints is summed from the
// ledger, not read from the cache, so the screen always shows the truth.
type ProfileOverview struct {
	Profile      *model.Profile   `json:"profile"`
	Stats        *model.UserStats `json:"stats"`
	TotalPoints  int              `json:"total_points"`
	RecentPoints []model.PointLog `json:"recent_points"`
}

type ProfileService interface {
	GetOverview(ctx context.Context, userID uuid.UUID) (*ProfileOverview, error)
	GetOverviewByUsername(ctx context.Context, username string) (*ProfileOverview, error)
}

type profileService struct {
	userRepo  repository.UserRepository
	pointRepo repository.PointRepository
}

func NewProfileService(userRepo repository.UserRepository, pointRepo repository.PointRepository) ProfileService {
	return &profileService{userRepo: userRepo, pointRepo: pointRepo}
}

func (s *profileService) GetOverviewByUsername(ctx context.Context, username string) (*ProfileOverview, error) {
	profile, err := s.userRepo.FindProfileByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.GetOverview(ctx, profile.UserID)
}

func (s *profileService) GetOverview(ctx context.Context, userID uuid.UUID) (*ProfileOverview, error) {
	profile, err := s.userRepo.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.userRepo.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.pointRepo.SumForUser(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	recent, err := s.pointRepo.ListForUser(ctx, userID, 20)
	if err != nil {
		return nil, err
	}

	return &ProfileOverview{
		Profile:      profile,
		Stats:        stats,
		TotalPoints:  total,
		RecentPoints: recent,
	}, nil
}
