package repository

import (
	"context"
	"errors"

	"github.com/ecohuntapp/ecohunt-server/internal/model"
	"github.com/ecohuntapp/ecohunt-server/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	FindProfileByUsername(ctx context.Context, username string) (*model.Profile, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*model.UserStats, error)
	SaveStats(ctx context.Context, stats *model.UserStats) error
	ResetWeeklyPoints(ctx context.Context) error
	ResetMonthlyPoints(ctx context.Context) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateWithProfile inserts the user and their profile atomically, so a
// failed profile insert never leaves a profileless user behind.
func (r *userRepository) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Preload("Profile").First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Preload("Profile").First(&user, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *userRepository) FindProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).First(&profile, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// GetStats returns zero-value stats (level 1) when the user has none yet.
func (r *userRepository) GetStats(ctx context.Context, userID uuid.UUID) (*model.UserStats, error) {
	var stats model.UserStats
	err := r.db.WithContext(ctx).First(&stats, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.UserStats{UserID: userID, Level: 1}, nil
		}
		return nil, err
	}
	return &stats, nil
}

func (r *userRepository) SaveStats(ctx context.Context, stats *model.UserStats) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(stats).Error
}

func (r *userRepository) ResetWeeklyPoints(ctx context.Context) error {
	return r.db.WithContext(ctx).Model(&model.UserStats{}).
		Where("weekly_points <> 0").
		Update("weekly_points", 0).Error
}

func (r *userRepository) ResetMonthlyPoints(ctx context.Context) error {
	return r.db.WithContext(ctx).Model(&model.UserStats{}).
		Where("monthly_points <> 0").
		Update("monthly_points", 0).Error
}
