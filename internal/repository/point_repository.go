package repository

import (
	"context"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PointRepository reads the EcoPoints ledger, the single source of truth for
// point totals. Ledger rows are only ever written inside the cleanup
// transaction (MissionRepository.CompleteCleanup), never updated or deleted.
type PointRepository interface {
	SumForUser(ctx context.Context, userID uuid.UUID, from *time.Time) (int, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.PointLog, error)
}

type pointRepository struct {
	db *gorm.DB
}

func NewPointRepository(db *gorm.DB) PointRepository {
	return &pointRepository{db: db}
}

func (r *pointRepository) SumForUser(ctx context.Context, userID uuid.UUID, from *time.Time) (int, error) {
	var sum int
	q := r.db.WithContext(ctx).Model(&model.PointLog{}).
		Select("COALESCE(SUM(points), 0)").
		Where("user_id = ?", userID)
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	err := q.Scan(&sum).Error
	return sum, err
}

func (r *pointRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.PointLog, error) {
	var entries []model.PointLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
