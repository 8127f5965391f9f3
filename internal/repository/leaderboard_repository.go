package repository

import (
	"context"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/eco"
	"github.com/ecohuntapp/ecohunt-server/internal/model"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// LeaderboardRepository fetches everything one aggregation pass needs.
type LeaderboardRepository interface {
	// FetchWindow returns the dataset for a period lower bound (nil = all
	// time). When no CLEANED missions fall inside the window it returns an
	// empty dataset without issuing the dependent queries.
	FetchWindow(ctx context.Context, from *time.Time) (eco.Dataset, error)
}

type leaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) FetchWindow(ctx context.Context, from *time.Time) (eco.Dataset, error) {
	// Fetch (1) is the hard dependency every other fetch keys off.
	var missions []model.Mission
	q := r.db.WithContext(ctx).Where("status = ?", model.MissionCleaned)
	if from != nil {
		q = q.Where("updated_at >= ?", *from)
	}
	if err := q.Find(&missions).Error; err != nil {
		return eco.Dataset{}, err
	}

	if len(missions) == 0 {
		// Nothing cleaned in this window; skip the round-trips entirely.
		return eco.Dataset{}, nil
	}

	missionIDs := make([]uuid.UUID, 0, len(missions))
	userIDSet := make(map[uuid.UUID]struct{})
	for _, m := range missions {
		missionIDs = append(missionIDs, m.ID)
		userIDSet[m.CreatorID] = struct{}{}
	}
	userIDs := make([]uuid.UUID, 0, len(userIDSet))
	for id := range userIDSet {
		userIDs = append(userIDs, id)
	}

	// Fetches (2)-(4) are independent once the mission set is known.
	var (
		profiles []model.Profile
		stats    []model.UserStats
		analyses []model.MissionAnalysis
		points   []model.PointLog
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.WithContext(gctx).Where("user_id IN ?", userIDs).Find(&profiles).Error
	})
	g.Go(func() error {
		return r.db.WithContext(gctx).Where("user_id IN ?", userIDs).Find(&stats).Error
	})
	g.Go(func() error {
		return r.db.WithContext(gctx).Where("mission_id IN ?", missionIDs).Find(&analyses).Error
	})
	g.Go(func() error {
		pq := r.db.WithContext(gctx).Where("user_id IN ?", userIDs)
		if from != nil {
			pq = pq.Where("created_at >= ?", *from)
		}
		return pq.Find(&points).Error
	})
	if err := g.Wait(); err != nil {
		// One failed fetch aborts the whole cycle; the caller keeps its
		// previous snapshot.
		return eco.Dataset{}, err
	}

	return buildDataset(missions, analyses, points, profiles, stats), nil
}

func buildDataset(
	missions []model.Mission,
	analyses []model.MissionAnalysis,
	points []model.PointLog,
	profiles []model.Profile,
	stats []model.UserStats,
) eco.Dataset {
	ds := eco.Dataset{
		Missions: make([]eco.Mission, 0, len(missions)),
		Analyses: make([]eco.Analysis, 0, len(analyses)),
		Points:   make([]eco.PointEntry, 0, len(points)),
		Profiles: make([]eco.Profile, 0, len(profiles)),
		Stats:    make([]eco.UserStats, 0, len(stats)),
	}

	for _, m := range missions {
		ds.Missions = append(ds.Missions, eco.Mission{
			ID:        m.ID,
			CreatorID: m.CreatorID,
			Severity:  eco.ParseSeverity(m.SeverityColor),
		})
	}
	for _, a := range analyses {
		ds.Analyses = append(ds.Analyses, eco.Analysis{
			MissionID:       a.MissionID,
			ItemsBefore:     a.ItemsBefore,
			ItemsAfter:      a.ItemsAfter,
			WasteDivertedKg: a.WasteDivertedKg,
			CO2SavedKg:      a.CO2SavedKg,
		})
	}
	for _, p := range points {
		ds.Points = append(ds.Points, eco.PointEntry{UserID: p.UserID, Points: p.Points})
	}
	for _, p := range profiles {
		ds.Profiles = append(ds.Profiles, eco.Profile{
			UserID:    p.UserID,
			Username:  p.Username,
			AvatarURL: p.AvatarURL,
		})
	}
	for _, s := range stats {
		ds.Stats = append(ds.Stats, eco.UserStats{
			UserID:     s.UserID,
			Level:      s.Level,
			StreakDays: s.StreakDays,
		})
	}

	return ds
}
