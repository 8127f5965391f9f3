package eco

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUUID(s string) uuid.UUID {
	return uuid.MustParse(s)
}

var (
	userA = mustUUID("aaaaaaaa-0000-0000-0000-000000000001")
	userB = mustUUID("bbbbbbbb-0000-0000-0000-000000000002")
	userC = mustUUID("cccccccc-0000-0000-0000-000000000003")
)

// weeklyDataset builds the two-user scenario: A has 3 missions (2 GREEN,
// 1 RED), ledger 50+30+20, one mission without analysis; B has 1 YELLOW
// mission with full analysis (2.5 kg / 0.3 kg) and ledger 90.
func weeklyDataset() Dataset {
	a1 := mustUUID("11111111-0000-0000-0000-000000000001")
	a2 := mustUUID("11111111-0000-0000-0000-000000000002")
	a3 := mustUUID("11111111-0000-0000-0000-000000000003")
	b1 := mustUUID("22222222-0000-0000-0000-000000000001")

	return Dataset{
		Missions: []Mission{
			{ID: a1, CreatorID: userA, Severity: SeverityGreen},
			{ID: a2, CreatorID: userA, Severity: SeverityGreen},
			{ID: a3, CreatorID: userA, Severity: SeverityRed},
			{ID: b1, CreatorID: userB, Severity: SeverityYellow},
		},
		Analyses: []Analysis{
			{MissionID: a1, WasteDivertedKg: 1.2, CO2SavedKg: 0.1},
			{MissionID: a3, WasteDivertedKg: 4.0, CO2SavedKg: 0.5},
			// a2 intentionally has no analysis.
			{MissionID: b1, WasteDivertedKg: 2.5, CO2SavedKg: 0.3},
		},
		Points: []PointEntry{
			{UserID: userA, Points: 50},
			{UserID: userA, Points: 30},
			{UserID: userA, Points: 20},
			{UserID: userB, Points: 90},
		},
		Profiles: []Profile{
			{UserID: userA, Username: "alice"},
			{UserID: userB, Username: "bob"},
		},
		Stats: []UserStats{
			{UserID: userA, Level: 2, StreakDays: 5},
			{UserID: userB, Level: 1, StreakDays: 1},
		},
	}
}

func TestAggregateWeeklyScenario(t *testing.T) {
	leaders := SortLeaderboard(Aggregate(weeklyDataset()))
	require.Len(t, leaders, 2)

	// Points desc: A(100) above B(90) despite fewer kg.
	a, b := leaders[0], leaders[1]
	assert.Equal(t, userA, a.UserID)
	assert.Equal(t, 100, a.EcoPoints)
	assert.Equal(t, 3, a.MissionsCount)
	assert.Equal(t, 2, a.GreenCount)
	assert.Equal(t, 0, a.YellowCount)
	assert.Equal(t, 1, a.RedCount)
	assert.Equal(t, 5.2, a.TrashKg) // 1.2 + 4.0, the unanalyzed mission adds 0
	assert.Equal(t, 0.6, a.CO2Kg)
	assert.Equal(t, 2, a.Level)
	assert.Equal(t, 5, a.StreakDays)

	assert.Equal(t, userB, b.UserID)
	assert.Equal(t, 90, b.EcoPoints)
	assert.Equal(t, 1, b.MissionsCount)
	assert.Equal(t, 1, b.YellowCount)
	assert.Equal(t, 2.5, b.TrashKg)

	gs := AggregateGlobalStats(leaders)
	assert.Equal(t, 190, gs.TotalEcoPoints)
	assert.Equal(t, 4, gs.TotalMissions)
	assert.Equal(t, 7.7, gs.TotalTrashKg)
	assert.Equal(t, 0.9, gs.TotalCO2Kg)
}

func TestAggregateIsIdempotent(t *testing.T) {
	ds := weeklyDataset()

	first := SortLeaderboard(Aggregate(ds))
	second := SortLeaderboard(Aggregate(ds))

	assert.Equal(t, first, second)
	assert.Equal(t, AggregateGlobalStats(first), AggregateGlobalStats(second))
}

func TestAggregateEmptyDataset(t *testing.T) {
	leaders := Aggregate(Dataset{})
	assert.Empty(t, leaders)

	gs := AggregateGlobalStats(nil)
	assert.Equal(t, GlobalStats{}, gs)
}

func TestGlobalStatsAlwaysMatchDisplayedRows(t *testing.T) {
	leaders := SortLeaderboard(Aggregate(weeklyDataset()))
	gs := AggregateGlobalStats(leaders)

	var points, missions int
	for _, l := range leaders {
		points += l.EcoPoints
		missions += l.MissionsCount
	}
	assert.Equal(t, points, gs.TotalEcoPoints)
	assert.Equal(t, missions, gs.TotalMissions)
}

func TestLedgerIsPointsAuthority(t *testing.T) {
	m := mustUUID("33333333-0000-0000-0000-000000000001")
	ds := Dataset{
		Missions: []Mission{{ID: m, CreatorID: userC, Severity: SeverityGreen}},
		Points:   []PointEntry{{UserID: userC, Points: 40}, {UserID: userC, Points: 10}},
		Profiles: []Profile{{UserID: userC, Username: "carol"}},
		// Stats carry a level/streak but no point totals; even if the
		// user_stats table drifted, only the ledger sum may show up.
		Stats: []UserStats{{UserID: userC, Level: 9, StreakDays: 3}},
	}

	leaders := Aggregate(ds)
	require.Len(t, leaders, 1)
	assert.Equal(t, 50, leaders[0].EcoPoints)
	assert.Equal(t, 9, leaders[0].Level)
}

func TestMissingProfileAndStatsDefaults(t *testing.T) {
	m := mustUUID("44444444-0000-0000-0000-000000000001")
	ds := Dataset{
		Missions: []Mission{{ID: m, CreatorID: userC, Severity: SeverityGreen}},
		Points:   []PointEntry{{UserID: userC, Points: 15}},
	}

	leaders := Aggregate(ds)
	require.Len(t, leaders, 1)
	assert.Equal(t, "Unknown", leaders[0].Username)
	assert.Nil(t, leaders[0].AvatarURL)
	assert.Equal(t, 1, leaders[0].Level)
	assert.Equal(t, 0, leaders[0].StreakDays)
	assert.Equal(t, 15, leaders[0].EcoPoints)
}

func TestMissingAnalysisContributesExactlyZero(t *testing.T) {
	m := mustUUID("55555555-0000-0000-0000-000000000001")
	ds := Dataset{
		Missions: []Mission{{ID: m, CreatorID: userC, Severity: SeverityYellow}},
		Points:   []PointEntry{{UserID: userC, Points: 25}},
	}

	leaders := Aggregate(ds)
	require.Len(t, leaders, 1)
	assert.Zero(t, leaders[0].TrashKg)
	assert.Zero(t, leaders[0].CO2Kg)
	assert.Equal(t, 1, leaders[0].MissionsCount)
}

func TestSortTiebreakFallsThroughToUserID(t *testing.T) {
	lo := UserAggregation{UserID: mustUUID("00000000-0000-0000-0000-000000000001")}
	hi := UserAggregation{UserID: mustUUID("ffffffff-0000-0000-0000-000000000001")}

	sorted := SortLeaderboard([]UserAggregation{hi, lo})
	require.Len(t, sorted, 2)
	// All numeric keys tie at zero; smaller userID ranks first.
	assert.Equal(t, lo.UserID, sorted[0].UserID)
	assert.Equal(t, hi.UserID, sorted[1].UserID)
}

func TestSortKeyPrecedence(t *testing.T) {
	entries := []UserAggregation{
		{UserID: userA, EcoPoints: 100, TrashKg: 1.0, MissionsCount: 1},
		{UserID: userB, EcoPoints: 100, TrashKg: 2.0, MissionsCount: 1},
		{UserID: userC, EcoPoints: 200, TrashKg: 0.1, MissionsCount: 1},
	}

	sorted := SortLeaderboard(entries)
	assert.Equal(t, userC, sorted[0].UserID) // points wins first
	assert.Equal(t, userB, sorted[1].UserID) // then trash kg
	assert.Equal(t, userA, sorted[2].UserID)

	// Input must be left untouched.
	assert.Equal(t, userA, entries[0].UserID)
}

func TestRoundingHalfAwayFromZero(t *testing.T) {
	m := mustUUID("66666666-0000-0000-0000-000000000001")
	ds := Dataset{
		Missions: []Mission{{ID: m, CreatorID: userC, Severity: SeverityGreen}},
		Analyses: []Analysis{{MissionID: m, WasteDivertedKg: 0.125, CO2SavedKg: 0.005}},
	}

	leaders := Aggregate(ds)
	require.Len(t, leaders, 1)
	assert.Equal(t, 0.13, leaders[0].TrashKg)
	assert.Equal(t, 0.01, leaders[0].CO2Kg)
}
