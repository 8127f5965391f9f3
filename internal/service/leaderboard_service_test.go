package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/eco"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLeaderboardRepo struct {
	dataset  eco.Dataset
	err      error
	lastFrom *time.Time
	calls    int
}

func (f *fakeLeaderboardRepo) FetchWindow(_ context.Context, from *time.Time) (eco.Dataset, error) {
	f.calls++
	f.lastFrom = from
	return f.dataset, f.err
}

func TestComputePassesPeriodBound(t *testing.T) {
	repo := &fakeLeaderboardRepo{}
	svc := &leaderboardService{
		repo: repo,
		now:  func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) },
	}

	snap, err := svc.Compute(context.Background(), eco.PeriodWeekly)
	require.NoError(t, err)

	require.NotNil(t, repo.lastFrom)
	assert.Equal(t, time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC), *repo.lastFrom)
	assert.Equal(t, eco.PeriodWeekly, snap.Period)
	assert.Empty(t, snap.Leaders)
	assert.Zero(t, snap.GlobalStats.TotalMissions)

	_, err = svc.Compute(context.Background(), eco.PeriodAll)
	require.NoError(t, err)
	assert.Nil(t, repo.lastFrom, "all-time window must be unbounded")
}

func TestComputeSortsAndSummarizes(t *testing.T) {
	a := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	b := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000001")
	m1 := uuid.MustParse("11111111-0000-0000-0000-000000000001")
	m2 := uuid.MustParse("11111111-0000-0000-0000-000000000002")

	repo := &fakeLeaderboardRepo{dataset: eco.Dataset{
		Missions: []eco.Mission{
			{ID: m1, CreatorID: b, Severity: eco.SeverityYellow},
			{ID: m2, CreatorID: a, Severity: eco.SeverityGreen},
		},
		Points: []eco.PointEntry{
			{UserID: a, Points: 100},
			{UserID: b, Points: 40},
		},
	}}
	svc := NewLeaderboardService(repo)

	snap, err := svc.Compute(context.Background(), eco.PeriodAll)
	require.NoError(t, err)

	require.Len(t, snap.Leaders, 2)
	assert.Equal(t, a, snap.Leaders[0].UserID)
	assert.Equal(t, 140, snap.GlobalStats.TotalEcoPoints)
	assert.Equal(t, 2, snap.GlobalStats.TotalMissions)
}

func TestComputePropagatesFetchError(t *testing.T) {
	repo := &fakeLeaderboardRepo{err: errors.New("connection reset")}
	svc := NewLeaderboardService(repo)

	snap, err := svc.Compute(context.Background(), eco.PeriodDaily)
	assert.Error(t, err)
	assert.Nil(t, snap)
}
