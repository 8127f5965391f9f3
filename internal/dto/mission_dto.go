package dto

import (
	"encoding/json"

	"github.com/ecohuntapp/ecohunt-server/internal/model"
)

type CreateMissionInput struct {
	Title           *string  `json:"title" binding:"omitempty,max=200"`
	Description     *string  `json:"description"`
	Lat             *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng             *float64 `json:"lng" binding:"required,min=-180,max=180"`
	SeverityColor   *string  `json:"severity_color" binding:"omitempty,oneof=GREEN YELLOW RED green yellow red"`
	WasteCategory   *string  `json:"waste_category"`
	ImageBase64     string   `json:"image_base64"`
	IsHelpRequest   bool     `json:"is_help_request"`
	GenerateDetails bool     `json:"generate_details"`
	ToolsNeeded     []string `json:"tools_needed"`
}

type AddPhotoInput struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
	Kind        string `json:"kind" binding:"required,oneof=BEFORE AFTER"`
}

// CompleteCleanupInput carries the AFTER photo plus the before-scan result
// the client received when the mission was created, used for comparison.
type CompleteCleanupInput struct {
	ImageBase64 string          `json:"image_base64" binding:"required"`
	BeforeData  json.RawMessage `json:"before_data"`
}

type MissionResponse struct {
	Mission  *model.Mission         `json:"mission"`
	Analysis *model.MissionAnalysis `json:"analysis,omitempty"`
	Media    []model.MissionMedia   `json:"media,omitempty"`
}

// CleanupResult is returned after a completed cleanup: the updated mission,
// the stored analysis and the points the cleaner just earned.
type CleanupResult struct {
	Mission      *model.Mission         `json:"mission"`
	Analysis     *model.MissionAnalysis `json:"analysis"`
	EarnedPoints int                    `json:"earned_points"`
	TotalPoints  int                    `json:"total_points"`
	Level        int                    `json:"level"`
	StreakDays   int                    `json:"streak_days"`
	Report       string                 `json:"report"`
}

// AnalyzeInput mirrors the analyze-waste API: mode selects the prompt and
// before_data carries the stored BEFORE analysis for after-mode comparisons.
// The payload shapes are owned by the analysis service; the handler decodes.
type AnalyzeInput struct {
	ImageBase64 string          `json:"image_base64"`
	Mode        string          `json:"mode" binding:"required,oneof=before after help_description"`
	BeforeData  json.RawMessage `json:"before_data"`
	HelpContext json.RawMessage `json:"help_context"`
}
