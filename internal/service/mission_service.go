package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/dto"
	"github.com/ecohuntapp/ecohunt-server/internal/eco"
	"github.com/ecohuntapp/ecohunt-server/internal/model"
	"github.com/ecohuntapp/ecohunt-server/internal/repository"
	"github.com/ecohuntapp/ecohunt-server/pkg/apperror"
	"github.com/ecohuntapp/ecohunt-server/pkg/storage"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
)

type MissionService interface {
	CreateMission(ctx context.Context, userID uuid.UUID, input dto.CreateMissionInput) (*dto.MissionResponse, error)
	GetMission(ctx context.Context, missionID uuid.UUID) (*dto.MissionResponse, error)
	ListMissions(ctx context.Context, status string, limit int) ([]model.Mission, error)
	StartMission(ctx context.Context, userID uuid.UUID, missionID uuid.UUID) (*model.Mission, error)
	AddPhoto(ctx context.Context, userID uuid.UUID, missionID uuid.UUID, input dto.AddPhotoInput) (*model.MissionMedia, error)
	CompleteCleanup(ctx context.Context, userID uuid.UUID, missionID uuid.UUID, input dto.CompleteCleanupInput) (*dto.CleanupResult, error)
}

type missionService struct {
	missionRepo repository.MissionRepository
	pointRepo   repository.PointRepository
	userRepo    repository.UserRepository
	fileStorage storage.ImageStorage
	analysis    AnalysisService
	search      SearchService
	feed        *ChangeFeed
	rdb         *redis.Client
	rateLimit   time.Duration
	sanitizer   *bluemonday.Policy
	now         func() time.Time
}

func NewMissionService(
	missionRepo repository.MissionRepository,
	pointRepo repository.PointRepository,
	userRepo repository.UserRepository,
	fileStorage storage.ImageStorage,
	analysis AnalysisService,
	search SearchService,
	feed *ChangeFeed,
	rdb *redis.Client,
	rateLimit time.Duration,
) MissionService {
	return &missionService{
		missionRepo: missionRepo,
		pointRepo:   pointRepo,
		userRepo:    userRepo,
		fileStorage: fileStorage,
		analysis:    analysis,
		search:      search,
		feed:        feed,
		rdb:         rdb,
		rateLimit:   rateLimit,
		sanitizer:   bluemonday.StrictPolicy(),
		now:         time.Now,
	}
}

func (s *missionService) CreateMission(ctx context.Context, userID uuid.UUID, input dto.CreateMissionInput) (*dto.MissionResponse, error) {
	allowed, err := CheckAndSetRateLimit(ctx, s.rdb, userID, "create_mission", s.rateLimit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.ErrRateLimitExceeded
	}

	// ID assigned up front so the photo upload can be named after it.
	mission := &model.Mission{
		ID:            uuid.New(),
		CreatorID:     userID,
		Lat:           *input.Lat,
		Lng:           *input.Lng,
		Status:        model.MissionOpen,
		IsHelpRequest: input.IsHelpRequest,
		ToolsNeeded:   input.ToolsNeeded,
	}

	if input.Title != nil {
		mission.Title = s.sanitizePtr(input.Title)
	}
	if input.Description != nil {
		mission.Description = s.sanitizePtr(input.Description)
	}
	if input.WasteCategory != nil {
		cat := eco.CategoryByCode(*input.WasteCategory).Code
		mission.WasteCategory = &cat
	}

	// Normalize severity at the boundary; anything unparseable lands GREEN.
	sev := string(eco.ParseSeverity(input.SeverityColor))
	mission.SeverityColor = &sev

	if input.ImageBase64 != "" {
		url, err := s.uploadPhoto(ctx, input.ImageBase64, "missions/before", mission.ID.String())
		if err != nil {
			return nil, err
		}
		mission.BeforePhotoURL = &url
	}

	if input.IsHelpRequest && input.GenerateDetails {
		s.fillHelpRequestDetails(ctx, mission, input)
	}

	if err := s.missionRepo.Create(ctx, mission); err != nil {
		return nil, err
	}

	resp := &dto.MissionResponse{Mission: mission}
	if mission.BeforePhotoURL != nil {
		media := &model.MissionMedia{
			MissionID: mission.ID,
			Kind:      model.MediaBefore,
			ImageURL:  *mission.BeforePhotoURL,
		}
		if err := s.missionRepo.CreateMedia(ctx, media); err != nil {
			log.Printf("Failed to record before media for mission %s: %v", mission.ID, err)
		} else {
			resp.Media = []model.MissionMedia{*media}
		}
	}

	s.feed.Publish(ctx, TableMissions)
	if err := s.search.IndexMission(mission); err != nil {
		log.Printf("Failed to index mission %s: %v", mission.ID, err)
	}

	return resp, nil
}

// fillHelpRequestDetails asks the model for a structured description. A
// generation failure never blocks mission creation.
func (s *missionService) fillHelpRequestDetails(ctx context.Context, mission *model.Mission, input dto.CreateMissionInput) {
	hc := HelpContext{
		SeverityColor: derefOr(mission.SeverityColor, ""),
	}
	if mission.WasteCategory != nil {
		hc.Category = *mission.WasteCategory
	}
	if mission.Description != nil {
		hc.UserDescription = *mission.Description
	}

	hd, err := s.analysis.DescribeHelpRequest(ctx, hc)
	if err != nil {
		log.Printf("Failed to generate help description: %v", err)
		return
	}

	if mission.Description == nil || *mission.Description == "" {
		mission.Description = &hd.Description
	}
	mission.VolunteersNeeded = &hd.VolunteersNeeded
	mission.TimeEstimate = &hd.TimeEstimate
	if len(mission.ToolsNeeded) == 0 {
		mission.ToolsNeeded = hd.ToolsNeeded
	}
}

func (s *missionService) GetMission(ctx context.Context, missionID uuid.UUID) (*dto.MissionResponse, error) {
	mission, err := s.missionRepo.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}

	resp := &dto.MissionResponse{Mission: mission}

	if analysis, err := s.missionRepo.FindAnalysis(ctx, missionID); err == nil {
		resp.Analysis = analysis
	}
	if media, err := s.missionRepo.ListMedia(ctx, missionID); err == nil {
		resp.Media = media
	}

	return resp, nil
}

func (s *missionService) ListMissions(ctx context.Context, status string, limit int) ([]model.Mission, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if status == "" {
		return s.missionRepo.ListSince(ctx, s.now().Add(-30*24*time.Hour), limit)
	}

	st := model.MissionStatus(strings.ToUpper(status))
	switch st {
	case model.MissionOpen, model.MissionInProgress, model.MissionCleaned:
	default:
		return nil, apperror.ErrInvalidInput
	}
	return s.missionRepo.ListByStatus(ctx, st, limit)
}

func (s *missionService) StartMission(ctx context.Context, userID uuid.UUID, missionID uuid.UUID) (*model.Mission, error) {
	mission, err := s.missionRepo.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}

	if mission.Status != model.MissionOpen {
		return nil, apperror.ErrInvalidTransition
	}
	mission.Status = model.MissionInProgress

	if err := s.missionRepo.Update(ctx, mission); err != nil {
		return nil, err
	}

	s.feed.Publish(ctx, TableMissions)
	if err := s.search.IndexMission(mission); err != nil {
		log.Printf("Failed to reindex mission %s: %v", mission.ID, err)
	}
	return mission, nil
}

// AddPhoto attaches an extra photo to a mission. Cleaned missions are
// immutable; a BEFORE photo also becomes the cover when none is set yet.
func (s *missionService) AddPhoto(ctx context.Context, userID uuid.UUID, missionID uuid.UUID, input dto.AddPhotoInput) (*model.MissionMedia, error) {
	mission, err := s.missionRepo.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if mission.Status == model.MissionCleaned {
		return nil, apperror.ErrInvalidTransition
	}

	kind := model.MediaKind(input.Kind)
	folder := "missions/before"
	if kind == model.MediaAfter {
		folder = "missions/after"
	}

	url, err := s.uploadPhoto(ctx, input.ImageBase64, folder, mission.ID.String())
	if err != nil {
		return nil, err
	}

	media := &model.MissionMedia{
		MissionID: mission.ID,
		Kind:      kind,
		ImageURL:  url,
	}
	if err := s.missionRepo.CreateMedia(ctx, media); err != nil {
		return nil, err
	}

	if kind == model.MediaBefore && mission.BeforePhotoURL == nil {
		mission.BeforePhotoURL = &url
		if err := s.missionRepo.Update(ctx, mission); err != nil {
			log.Printf("Failed to set cover photo for mission %s: %v", mission.ID, err)
		}
	}

	s.feed.Publish(ctx, TableMissions)
	return media, nil
}

func (s *missionService) CompleteCleanup(ctx context.Context, userID uuid.UUID, missionID uuid.UUID, input dto.CompleteCleanupInput) (*dto.CleanupResult, error) {
	mission, err := s.missionRepo.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if mission.Status != model.MissionInProgress {
		return nil, apperror.ErrInvalidTransition
	}

	var before BeforeAnalysis
	if len(input.BeforeData) > 0 {
		if err := json.Unmarshal(input.BeforeData, &before); err != nil {
			return nil, apperror.New(400, "invalid before_data payload", apperror.ErrInvalidInput)
		}
	}

	after, err := s.analysis.AnalyzeAfter(ctx, input.ImageBase64, &before)
	if err != nil {
		return nil, err
	}

	afterURL, err := s.uploadPhoto(ctx, input.ImageBase64, "missions/after", mission.ID.String())
	if err != nil {
		return nil, err
	}
	media := &model.MissionMedia{
		MissionID: mission.ID,
		Kind:      model.MediaAfter,
		ImageURL:  afterURL,
	}

	analysis := &model.MissionAnalysis{
		MissionID:       mission.ID,
		ItemsBefore:     after.ItemsBefore,
		ItemsAfter:      after.ItemsAfter,
		ImprovementPct:  after.ImprovementPct,
		WasteDivertedKg: after.WasteDivertedKg,
		CO2SavedKg:      after.CO2SavedKg,
		Difficulty:      string(after.Difficulty),
	}

	mission.Status = model.MissionCleaned
	earned, entries := cleanupLedgerEntries(userID, mission.ID, after)

	stats, err := s.nextStats(ctx, userID, earned)
	if err != nil {
		return nil, err
	}

	// All five writes land in one transaction; a failure leaves the mission
	// IN_PROGRESS with no partial rows, so completion can simply be retried.
	if err := s.missionRepo.CompleteCleanup(ctx, mission, analysis, media, entries, stats); err != nil {
		return nil, err
	}

	s.feed.Publish(ctx, TableMissions, TableMissionAnalysis, TablePointsLog, TableUserStats)
	if err := s.search.IndexMission(mission); err != nil {
		log.Printf("Failed to reindex mission %s: %v", mission.ID, err)
	}

	return &dto.CleanupResult{
		Mission:      mission,
		Analysis:     analysis,
		EarnedPoints: earned,
		TotalPoints:  stats.TotalPoints,
		Level:        stats.Level,
		StreakDays:   stats.StreakDays,
		Report:       after.Report,
	}, nil
}

// cleanupLedgerEntries builds the ledger rows for a completed cleanup: the
// base difficulty reward plus the improvement bonus. The ledger is
// append-only; totals everywhere are sums over it.
func cleanupLedgerEntries(userID, missionID uuid.UUID, after *AfterAnalysis) (int, []*model.PointLog) {
	base := eco.BasePoints(after.Difficulty)
	earned := eco.EarnedPoints(base, after.ImprovementPct)
	bonus := earned - base

	entries := []*model.PointLog{
		{UserID: userID, MissionID: &missionID, Points: base, Reason: "cleanup_base"},
	}
	if bonus != 0 {
		entries = append(entries, &model.PointLog{
			UserID: userID, MissionID: &missionID, Points: bonus, Reason: "improvement_bonus",
		})
	}
	return earned, entries
}

// nextStats computes the denormalized counters after a cleanup worth earned
// points. The new ledger rows are committed in the same transaction as the
// stats, so the earned amount is added to the pre-cleanup ledger sum here.
func (s *missionService) nextStats(ctx context.Context, userID uuid.UUID, earned int) (*model.UserStats, error) {
	stats, err := s.userRepo.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.pointRepo.SumForUser(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	total += earned

	now := s.now()
	stats.TotalPoints = total
	stats.WeeklyPoints += earned
	stats.MonthlyPoints += earned
	stats.Level = eco.LevelForPoints(total)
	stats.StreakDays = eco.NextStreak(stats.StreakDays, stats.LastActionAt, now)
	stats.LastActionAt = &now
	return stats, nil
}

func (s *missionService) uploadPhoto(ctx context.Context, imageBase64, folder, name string) (string, error) {
	format, data, err := decodeImageDataURL(imageBase64)
	if err != nil {
		return "", apperror.New(400, "invalid image payload", apperror.ErrInvalidInput)
	}
	fileName := fmt.Sprintf("%s.%s", name, format)
	return s.fileStorage.UploadImage(ctx, bytes.NewReader(data), folder, fileName)
}

func (s *missionService) sanitizePtr(in *string) *string {
	clean := strings.TrimSpace(s.sanitizer.Sanitize(*in))
	return &clean
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
