package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/model"
	"github.com/ecohuntapp/ecohunt-server/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MissionRepository interface {
	Create(ctx context.Context, mission *model.Mission) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Mission, error)
	Update(ctx context.Context, mission *model.Mission) error
	ListByStatus(ctx context.Context, status model.MissionStatus, limit int) ([]model.Mission, error)
	ListSince(ctx context.Context, since time.Time, limit int) ([]model.Mission, error)
	FindAnalysis(ctx context.Context, missionID uuid.UUID) (*model.MissionAnalysis, error)
	CreateMedia(ctx context.Context, media *model.MissionMedia) error
	ListMedia(ctx context.Context, missionID uuid.UUID) ([]model.MissionMedia, error)
	CompleteCleanup(ctx context.Context, mission *model.Mission, analysis *model.MissionAnalysis, media *model.MissionMedia, points []*model.PointLog, stats *model.UserStats) error
}

type missionRepository struct {
	db *gorm.DB
}

func NewMissionRepository(db *gorm.DB) MissionRepository {
	return &missionRepository{db: db}
}

func (r *missionRepository) Create(ctx context.Context, mission *model.Mission) error {
	return r.db.WithContext(ctx).Create(mission).Error
}

func (r *missionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Mission, error) {
	var mission model.Mission
	err := r.db.WithContext(ctx).Preload("Creator").First(&mission, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &mission, nil
}

func (r *missionRepository) Update(ctx context.Context, mission *model.Mission) error {
	return r.db.WithContext(ctx).Save(mission).Error
}

func (r *missionRepository) ListByStatus(ctx context.Context, status model.MissionStatus, limit int) ([]model.Mission, error) {
	var missions []model.Mission
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&missions).Error
	return missions, err
}

func (r *missionRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]model.Mission, error) {
	var missions []model.Mission
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&missions).Error
	return missions, err
}

func (r *missionRepository) FindAnalysis(ctx context.Context, missionID uuid.UUID) (*model.MissionAnalysis, error) {
	var analysis model.MissionAnalysis
	err := r.db.WithContext(ctx).First(&analysis, "mission_id = ?", missionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &analysis, nil
}

func (r *missionRepository) CreateMedia(ctx context.Context, media *model.MissionMedia) error {
	return r.db.WithContext(ctx).Create(media).Error
}

// CompleteCleanup commits every write of a finished cleanup in one
// transaction: the AFTER media, the analysis, the CLEANED mission, the ledger
// rows and the stats upsert. A failure anywhere rolls back all of it, so a
// retry never trips over a half-written analysis.
func (r *missionRepository) CompleteCleanup(ctx context.Context, mission *model.Mission, analysis *model.MissionAnalysis, media *model.MissionMedia, points []*model.PointLog, stats *model.UserStats) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if media != nil {
			if err := tx.Create(media).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(analysis).Error; err != nil {
			return err
		}
		if err := tx.Save(mission).Error; err != nil {
			return err
		}
		for _, p := range points {
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).Create(stats).Error
	})
}

func (r *missionRepository) ListMedia(ctx context.Context, missionID uuid.UUID) ([]model.MissionMedia, error) {
	var media []model.MissionMedia
	err := r.db.WithContext(ctx).
		Where("mission_id = ?", missionID).
		Order("created_at ASC").
		Find(&media).Error
	return media, err
}
