package repository

import (
	"context"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LocationRepository interface {
	Upsert(ctx context.Context, loc *model.UserLocation) error
	ListOthers(ctx context.Context, userID uuid.UUID, updatedAfter time.Time) ([]model.UserLocation, error)
}

type locationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) Upsert(ctx context.Context, loc *model.UserLocation) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"lat":         loc.Lat,
			"lng":         loc.Lng,
			"is_cleaning": loc.IsCleaning,
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(loc).Error
}

func (r *locationRepository) ListOthers(ctx context.Context, userID uuid.UUID, updatedAfter time.Time) ([]model.UserLocation, error) {
	var locations []model.UserLocation
	err := r.db.WithContext(ctx).
		Where("user_id <> ? AND updated_at >= ?", userID, updatedAfter).
		Find(&locations).Error
	return locations, err
}
