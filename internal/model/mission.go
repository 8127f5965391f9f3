package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MissionStatus string

const (
	MissionOpen       MissionStatus = "OPEN"
	MissionInProgress MissionStatus = "IN_PROGRESS"
	MissionCleaned    MissionStatus = "CLEANED"
)

type MediaKind string

const (
	MediaBefore MediaKind = "BEFORE"
	MediaAfter  MediaKind = "AFTER"
)

// Mission is a single cleanup task tied to a map location.
// Status only ever moves OPEN -> IN_PROGRESS -> CLEANED; rows are never deleted.
type Mission struct {
	ID               uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	CreatorID        uuid.UUID     `gorm:"type:uuid;index;not null" json:"creator_id"`
	Creator          *Profile      `gorm:"foreignKey:CreatorID;references:UserID" json:"creator,omitempty"`
	Title            *string       `gorm:"size:200" json:"title,omitempty"`
	Description      *string       `gorm:"type:text" json:"description,omitempty"`
	Lat              float64       `gorm:"not null" json:"lat"`
	Lng              float64       `gorm:"not null" json:"lng"`
	SeverityColor    *string       `gorm:"size:10" json:"severity_color,omitempty"`
	Status           MissionStatus `gorm:"size:20;index;default:OPEN" json:"status"`
	WasteCategory    *string       `gorm:"size:50" json:"waste_category,omitempty"`
	BeforePhotoURL   *string       `gorm:"type:text" json:"before_photo_url,omitempty"`
	IsHelpRequest    bool          `gorm:"default:false" json:"is_help_request"`
	VolunteersNeeded *int          `json:"volunteers_needed,omitempty"`
	TimeEstimate     *string       `gorm:"size:50" json:"time_estimate,omitempty"`
	ToolsNeeded      []string      `gorm:"serializer:json;type:text" json:"tools_needed,omitempty"`
	ZoneID           *uuid.UUID    `gorm:"type:uuid" json:"zone_id,omitempty"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (m *Mission) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MissionAnalysis is written once by the AI analysis at cleanup completion
// and is immutable afterwards. A mission has zero or one analysis rows.
type MissionAnalysis struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MissionID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"mission_id"`
	ItemsBefore     int       `gorm:"default:0" json:"items_before"`
	ItemsAfter      int       `gorm:"default:0" json:"items_after"`
	ImprovementPct  float64   `gorm:"default:0" json:"improvement_pct"`
	WasteDivertedKg float64   `gorm:"default:0" json:"waste_diverted_kg"`
	CO2SavedKg      float64   `gorm:"column:co2_saved_kg;default:0" json:"co2_saved_kg"`
	Difficulty      string    `gorm:"size:10;default:EASY" json:"difficulty"`
}

func (a *MissionAnalysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (MissionAnalysis) TableName() string { return "mission_analysis" }

type MissionMedia struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MissionID uuid.UUID `gorm:"type:uuid;index;not null" json:"mission_id"`
	Kind      MediaKind `gorm:"size:10;not null" json:"kind"`
	ImageURL  string    `gorm:"type:text;not null" json:"image_url"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (m *MissionMedia) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (MissionMedia) TableName() string { return "mission_media" }

// Zone is a named polluted area on the map.
type Zone struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CenterLat float64   `gorm:"not null" json:"center_lat"`
	CenterLng float64   `gorm:"not null" json:"center_lng"`
	RadiusM   float64   `gorm:"default:150" json:"radius_m"`
	Severity  string    `gorm:"size:10;default:GREEN" json:"severity"`
}

func (z *Zone) BeforeCreate(tx *gorm.DB) error {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	return nil
}

// UserLocation is the live position heartbeat used by the nearby-users map.
type UserLocation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Lat        float64   `gorm:"not null" json:"lat"`
	Lng        float64   `gorm:"not null" json:"lng"`
	IsCleaning bool      `gorm:"default:false" json:"is_cleaning"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l *UserLocation) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
