package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PointLog is the append-only EcoPoints ledger. Rows are never updated or
// deleted; every displayed point total is a sum over this table.
type PointLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;index:idx_user_date,priority:1;not null" json:"user_id"`
	MissionID *uuid.UUID `gorm:"type:uuid;index" json:"mission_id,omitempty"`
	Points    int        `gorm:"not null" json:"points"`
	Reason    string     `gorm:"size:50" json:"reason"` // 'cleanup_base', 'improvement_bonus'
	CreatedAt time.Time  `gorm:"index:idx_user_date,priority:2;index:idx_date" json:"created_at"`
}

func (p *PointLog) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (PointLog) TableName() string { return "points_log" }

// UserStats is a cached denormalization of the ledger plus streak/level state.
// The leaderboard core only reads level and streak_days from here; point
// totals shown anywhere authoritative come from PointLog.
type UserStats struct {
	UserID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	TotalPoints   int        `gorm:"default:0" json:"total_points"`
	WeeklyPoints  int        `gorm:"default:0" json:"weekly_points"`
	MonthlyPoints int        `gorm:"default:0" json:"monthly_points"`
	Level         int        `gorm:"default:1" json:"level"`
	StreakDays    int        `gorm:"default:0" json:"streak_days"`
	LastActionAt  *time.Time `json:"last_action_at,omitempty"`
}
