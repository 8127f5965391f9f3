package service

import (
	"context"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/eco"
	"github.com/ecohuntapp/ecohunt-server/internal/repository"
)

// LeaderboardSnapshot is one complete pipeline result: ranked rows plus the
// summary cards derived from them. Global stats are never fetched on their
// own, so they cannot drift from the rows.
type LeaderboardSnapshot struct {
	Period      eco.Period            `json:"period"`
	Leaders     []eco.UserAggregation `json:"leaders"`
	GlobalStats eco.GlobalStats       `json:"global_stats"`
	ComputedAt  time.Time             `json:"computed_at"`
}

type LeaderboardService interface {
	// Compute runs the full fetch-aggregate-sort pipeline for a period.
	// It is a pure function of the period and the store contents:
	// idempotent and side-effect free.
	Compute(ctx context.Context, period eco.Period) (*LeaderboardSnapshot, error)
}

type leaderboardService struct {
	repo repository.LeaderboardRepository
	now  func() time.Time
}

func NewLeaderboardService(repo repository.LeaderboardRepository) LeaderboardService {
	return &leaderboardService{repo: repo, now: time.Now}
}

func (s *leaderboardService) Compute(ctx context.Context, period eco.Period) (*LeaderboardSnapshot, error) {
	now := s.now()
	rng := eco.Range(period, now)

	ds, err := s.repo.FetchWindow(ctx, rng.From)
	if err != nil {
		return nil, err
	}

	leaders := eco.SortLeaderboard(eco.Aggregate(ds))
	return &LeaderboardSnapshot{
		Period:      period,
		Leaders:     leaders,
		GlobalStats: eco.AggregateGlobalStats(leaders),
		ComputedAt:  now,
	}, nil
}
