package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/dto"
	"github.com/ecohuntapp/ecohunt-server/internal/eco"
	"github.com/ecohuntapp/ecohunt-server/internal/model"
	"github.com/ecohuntapp/ecohunt-server/pkg/apperror"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memMissionRepo struct {
	missions map[uuid.UUID]*model.Mission
	analyses map[uuid.UUID]*model.MissionAnalysis
	media    []model.MissionMedia

	// Destinations for the transactional cleanup writes.
	points *memPointRepo
	users  *memUserRepo

	failCleanupOnce bool
}

func newMemMissionRepo() *memMissionRepo {
	return &memMissionRepo{
		missions: make(map[uuid.UUID]*model.Mission),
		analyses: make(map[uuid.UUID]*model.MissionAnalysis),
	}
}

func (r *memMissionRepo) Create(_ context.Context, m *model.Mission) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	r.missions[m.ID] = &cp
	return nil
}

func (r *memMissionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Mission, error) {
	m, ok := r.missions[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMissionRepo) Update(_ context.Context, m *model.Mission) error {
	cp := *m
	r.missions[m.ID] = &cp
	return nil
}

func (r *memMissionRepo) ListByStatus(_ context.Context, status model.MissionStatus, _ int) ([]model.Mission, error) {
	var out []model.Mission
	for _, m := range r.missions {
		if m.Status == status {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memMissionRepo) ListSince(_ context.Context, _ time.Time, _ int) ([]model.Mission, error) {
	var out []model.Mission
	for _, m := range r.missions {
		out = append(out, *m)
	}
	return out, nil
}

func (r *memMissionRepo) FindAnalysis(_ context.Context, missionID uuid.UUID) (*model.MissionAnalysis, error) {
	a, ok := r.analyses[missionID]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memMissionRepo) CreateMedia(_ context.Context, m *model.MissionMedia) error {
	r.media = append(r.media, *m)
	return nil
}

// CompleteCleanup applies all writes or none, like the real transaction.
func (r *memMissionRepo) CompleteCleanup(ctx context.Context, mission *model.Mission, analysis *model.MissionAnalysis, media *model.MissionMedia, points []*model.PointLog, stats *model.UserStats) error {
	if r.failCleanupOnce {
		r.failCleanupOnce = false
		return fmt.Errorf("connection reset")
	}
	if _, exists := r.analyses[analysis.MissionID]; exists {
		return fmt.Errorf("duplicate analysis for mission %s", analysis.MissionID)
	}

	if media != nil {
		r.media = append(r.media, *media)
	}
	cpA := *analysis
	r.analyses[analysis.MissionID] = &cpA
	cpM := *mission
	r.missions[mission.ID] = &cpM
	for _, p := range points {
		r.points.entries = append(r.points.entries, *p)
	}
	return r.users.SaveStats(ctx, stats)
}

func (r *memMissionRepo) ListMedia(_ context.Context, missionID uuid.UUID) ([]model.MissionMedia, error) {
	var out []model.MissionMedia
	for _, m := range r.media {
		if m.MissionID == missionID {
			out = append(out, m)
		}
	}
	return out, nil
}

type memPointRepo struct {
	entries []model.PointLog
}

func (r *memPointRepo) SumForUser(_ context.Context, userID uuid.UUID, _ *time.Time) (int, error) {
	sum := 0
	for _, e := range r.entries {
		if e.UserID == userID {
			sum += e.Points
		}
	}
	return sum, nil
}

func (r *memPointRepo) ListForUser(_ context.Context, userID uuid.UUID, _ int) ([]model.PointLog, error) {
	var out []model.PointLog
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memUserRepo struct {
	users    map[string]*model.User // keyed by email
	profiles map[uuid.UUID]*model.Profile
	stats    map[uuid.UUID]*model.UserStats

	failProfileInsert bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:    make(map[string]*model.User),
		profiles: make(map[uuid.UUID]*model.Profile),
		stats:    make(map[uuid.UUID]*model.UserStats),
	}
}

func (r *memUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	r.users[u.Email] = &cp
	return nil
}

// CreateWithProfile stores both rows or neither, like the real transaction.
func (r *memUserRepo) CreateWithProfile(ctx context.Context, u *model.User, p *model.Profile) error {
	if r.failProfileInsert {
		return fmt.Errorf("profile insert failed")
	}
	if err := r.Create(ctx, u); err != nil {
		return err
	}
	p.UserID = u.ID
	return r.CreateProfile(ctx, p)
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := r.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperror.ErrNotFound
}

func (r *memUserRepo) CreateProfile(_ context.Context, p *model.Profile) error {
	cp := *p
	r.profiles[p.UserID] = &cp
	return nil
}

func (r *memUserRepo) FindProfile(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	if p, ok := r.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperror.ErrNotFound
}

func (r *memUserRepo) FindProfileByUsername(_ context.Context, username string) (*model.Profile, error) {
	for _, p := range r.profiles {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (r *memUserRepo) GetStats(_ context.Context, userID uuid.UUID) (*model.UserStats, error) {
	if s, ok := r.stats[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return &model.UserStats{UserID: userID, Level: 1}, nil
}

func (r *memUserRepo) SaveStats(_ context.Context, stats *model.UserStats) error {
	cp := *stats
	r.stats[stats.UserID] = &cp
	return nil
}

func (r *memUserRepo) ResetWeeklyPoints(context.Context) error  { return nil }
func (r *memUserRepo) ResetMonthlyPoints(context.Context) error { return nil }

type memStorage struct {
	uploads int
}

func (s *memStorage) UploadImage(_ context.Context, _ io.Reader, folder, fileName string) (string, error) {
	s.uploads++
	return fmt.Sprintf("https://cdn.example.com/%s/%s", folder, fileName), nil
}

func (s *memStorage) DeleteImage(context.Context, string) error { return nil }

type noopSearch struct {
	indexed int
}

func (s *noopSearch) IndexMission(*model.Mission) error { s.indexed++; return nil }
func (s *noopSearch) DeleteMission(string) error        { return nil }
func (s *noopSearch) SearchMissions(string, string, int64) ([]MissionHit, error) {
	return nil, nil
}

func testImage() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("fake-jpeg-bytes"))
}

func f64(v float64) *float64 { return &v }

func newTestMissionService(missionRepo *memMissionRepo, pointRepo *memPointRepo, userRepo *memUserRepo, search *noopSearch) *missionService {
	missionRepo.points = pointRepo
	missionRepo.users = userRepo
	return &missionService{
		missionRepo: missionRepo,
		pointRepo:   pointRepo,
		userRepo:    userRepo,
		fileStorage: &memStorage{},
		analysis:    NewMockAnalyzer(3),
		search:      search,
		feed:        NewChangeFeed(nil),
		sanitizer:   bluemonday.StrictPolicy(),
		now:         time.Now,
	}
}

func TestCreateMissionNormalizesAndStores(t *testing.T) {
	missionRepo := newMemMissionRepo()
	search := &noopSearch{}
	svc := newTestMissionService(missionRepo, &memPointRepo{}, newMemUserRepo(), search)

	title := "Beach <script>alert(1)</script> cleanup"
	sev := "red"
	cat := "plastic_pet_1"
	resp, err := svc.CreateMission(context.Background(), uuid.New(), dto.CreateMissionInput{
		Title:         &title,
		Lat:           f64(55.75),
		Lng:           f64(37.62),
		SeverityColor: &sev,
		WasteCategory: &cat,
		ImageBase64:   testImage(),
	})
	require.NoError(t, err)

	m := resp.Mission
	assert.Equal(t, model.MissionOpen, m.Status)
	assert.Equal(t, "RED", *m.SeverityColor) // normalized
	assert.Equal(t, "plastic_pet_1", *m.WasteCategory)
	assert.NotContains(t, *m.Title, "<script>")
	require.NotNil(t, m.BeforePhotoURL)
	require.Len(t, resp.Media, 1)
	assert.Equal(t, model.MediaBefore, resp.Media[0].Kind)
	assert.Equal(t, 1, search.indexed)
}

func TestCreateMissionUnknownCategoryFallsBack(t *testing.T) {
	svc := newTestMissionService(newMemMissionRepo(), &memPointRepo{}, newMemUserRepo(), &noopSearch{})

	cat := "alien_artifacts"
	resp, err := svc.CreateMission(context.Background(), uuid.New(), dto.CreateMissionInput{
		Lat: f64(1), Lng: f64(1), WasteCategory: &cat,
	})
	require.NoError(t, err)
	assert.Equal(t, eco.DefaultCategoryCode, *resp.Mission.WasteCategory)
}

func TestStartMissionTransitions(t *testing.T) {
	missionRepo := newMemMissionRepo()
	svc := newTestMissionService(missionRepo, &memPointRepo{}, newMemUserRepo(), &noopSearch{})
	userID := uuid.New()

	resp, err := svc.CreateMission(context.Background(), userID, dto.CreateMissionInput{Lat: f64(1), Lng: f64(1)})
	require.NoError(t, err)
	id := resp.Mission.ID

	m, err := svc.StartMission(context.Background(), userID, id)
	require.NoError(t, err)
	assert.Equal(t, model.MissionInProgress, m.Status)

	// Starting again is not a legal transition.
	_, err = svc.StartMission(context.Background(), userID, id)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestCompleteCleanupAwardsLedgerAndStats(t *testing.T) {
	missionRepo := newMemMissionRepo()
	pointRepo := &memPointRepo{}
	userRepo := newMemUserRepo()
	svc := newTestMissionService(missionRepo, pointRepo, userRepo, &noopSearch{})
	userID := uuid.New()

	resp, err := svc.CreateMission(context.Background(), userID, dto.CreateMissionInput{Lat: f64(1), Lng: f64(1), ImageBase64: testImage()})
	require.NoError(t, err)
	id := resp.Mission.ID

	_, err = svc.StartMission(context.Background(), userID, id)
	require.NoError(t, err)

	before := []byte(`{"items":[{"label":"Plastic Bottle","count":14,"points_per_item":5}],"total_items":14}`)
	result, err := svc.CompleteCleanup(context.Background(), userID, id, dto.CompleteCleanupInput{
		ImageBase64: testImage(),
		BeforeData:  before,
	})
	require.NoError(t, err)

	assert.Equal(t, model.MissionCleaned, result.Mission.Status)
	require.NotNil(t, result.Analysis)
	assert.Equal(t, 14, result.Analysis.ItemsBefore)
	assert.Equal(t, string(eco.DifficultyHard), result.Analysis.Difficulty)

	// Ledger holds base + bonus rows summing to the earned points.
	sum := 0
	for _, e := range pointRepo.entries {
		sum += e.Points
	}
	assert.Equal(t, result.EarnedPoints, sum)
	assert.Equal(t, "cleanup_base", pointRepo.entries[0].Reason)

	// Stats mirror the ledger total.
	assert.Equal(t, sum, result.TotalPoints)
	assert.Equal(t, eco.LevelForPoints(sum), result.Level)
	assert.Equal(t, 1, result.StreakDays)

	// A second completion of the same mission must be rejected.
	_, err = svc.CompleteCleanup(context.Background(), userID, id, dto.CompleteCleanupInput{ImageBase64: testImage()})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestCompleteCleanupRequiresInProgress(t *testing.T) {
	svc := newTestMissionService(newMemMissionRepo(), &memPointRepo{}, newMemUserRepo(), &noopSearch{})
	userID := uuid.New()

	resp, err := svc.CreateMission(context.Background(), userID, dto.CreateMissionInput{Lat: f64(1), Lng: f64(1)})
	require.NoError(t, err)

	_, err = svc.CompleteCleanup(context.Background(), userID, resp.Mission.ID, dto.CompleteCleanupInput{ImageBase64: testImage()})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestCompleteCleanupFailureLeavesMissionRetryable(t *testing.T) {
	missionRepo := newMemMissionRepo()
	pointRepo := &memPointRepo{}
	svc := newTestMissionService(missionRepo, pointRepo, newMemUserRepo(), &noopSearch{})
	userID := uuid.New()

	resp, err := svc.CreateMission(context.Background(), userID, dto.CreateMissionInput{Lat: f64(1), Lng: f64(1)})
	require.NoError(t, err)
	id := resp.Mission.ID

	_, err = svc.StartMission(context.Background(), userID, id)
	require.NoError(t, err)

	// First attempt dies at commit time: no analysis row, no ledger rows,
	// mission still IN_PROGRESS.
	missionRepo.failCleanupOnce = true
	_, err = svc.CompleteCleanup(context.Background(), userID, id, dto.CompleteCleanupInput{ImageBase64: testImage()})
	require.Error(t, err)

	m, err := missionRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.MissionInProgress, m.Status)
	_, err = missionRepo.FindAnalysis(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Empty(t, pointRepo.entries)

	// The retry goes through cleanly.
	result, err := svc.CompleteCleanup(context.Background(), userID, id, dto.CompleteCleanupInput{ImageBase64: testImage()})
	require.NoError(t, err)
	assert.Equal(t, model.MissionCleaned, result.Mission.Status)
	require.NotNil(t, result.Analysis)
	assert.NotEmpty(t, pointRepo.entries)
}
