package eco

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mission is the slice of a mission row the aggregation needs.
// The fetcher hands over only CLEANED missions inside the active window.
type Mission struct {
	ID        uuid.UUID
	CreatorID uuid.UUID
	Severity  Severity
}

// Analysis is the AI-written impact record of a cleaned mission (zero or one
// per mission).
type Analysis struct {
	MissionID       uuid.UUID
	ItemsBefore     int
	ItemsAfter      int
	WasteDivertedKg float64
	CO2SavedKg      float64
}

// PointEntry is one row of the append-only EcoPoints ledger, already
// filtered to the active window.
type PointEntry struct {
	UserID uuid.UUID
	Points int
}

// Profile is the identity slice merged into aggregates.
type Profile struct {
	UserID    uuid.UUID
	Username  string
	AvatarURL *string
}

// UserStats is the cached level/streak context. The aggregation copies these
// verbatim and never recomputes them.
type UserStats struct {
	UserID     uuid.UUID
	Level      int
	StreakDays int
}

// Dataset is the immutable input of one aggregation pass.
type Dataset struct {
	Missions []Mission
	Analyses []Analysis
	Points   []PointEntry
	Profiles []Profile
	Stats    []UserStats
}

// UserAggregation is the derived per-user rollup. It is fully recomputed on
// every pass and never persisted.
type UserAggregation struct {
	UserID        uuid.UUID `json:"user_id"`
	Username      string    `json:"username"`
	AvatarURL     *string   `json:"avatar_url,omitempty"`
	EcoPoints     int       `json:"eco_points"`
	TrashKg       float64   `json:"trash_kg"`
	CO2Kg         float64   `json:"co2_kg"`
	MissionsCount int       `json:"missions_count"`
	GreenCount    int       `json:"green_count"`
	YellowCount   int       `json:"yellow_count"`
	RedCount      int       `json:"red_count"`
	StreakDays    int       `json:"streak_days"`
	Level         int       `json:"level"`
}

// GlobalStats are the period-wide summary cards. They are always derived
// from the aggregation list, never fetched independently, so they cannot
// diverge from the rows on screen.
type GlobalStats struct {
	TotalMissions  int     `json:"total_missions"`
	TotalEcoPoints int     `json:"total_eco_points"`
	TotalTrashKg   float64 `json:"total_trash_kg"`
	TotalCO2Kg     float64 `json:"total_co2_kg"`
}

// Aggregate folds a dataset into one aggregate per distinct mission creator.
// EcoPoints come exclusively from the ledger entries; mission counts and
// severity never feed a points formula. Missions without an analysis row
// contribute zero mass and CO₂. The result is unsorted.
func Aggregate(ds Dataset) []UserAggregation {
	if len(ds.Missions) == 0 {
		return nil
	}

	analysisByMission := make(map[uuid.UUID]Analysis, len(ds.Analyses))
	for _, a := range ds.Analyses {
		analysisByMission[a.MissionID] = a
	}
	profileByUser := make(map[uuid.UUID]Profile, len(ds.Profiles))
	for _, p := range ds.Profiles {
		profileByUser[p.UserID] = p
	}
	statsByUser := make(map[uuid.UUID]UserStats, len(ds.Stats))
	for _, s := range ds.Stats {
		statsByUser[s.UserID] = s
	}
	pointsByUser := make(map[uuid.UUID]int, len(ds.Points))
	for _, e := range ds.Points {
		pointsByUser[e.UserID] += e.Points
	}

	byUser := make(map[uuid.UUID]*UserAggregation)
	for _, m := range ds.Missions {
		agg, ok := byUser[m.CreatorID]
		if !ok {
			agg = &UserAggregation{UserID: m.CreatorID}
			byUser[m.CreatorID] = agg
		}

		agg.MissionsCount++
		switch m.Severity {
		case SeverityRed:
			agg.RedCount++
		case SeverityYellow:
			agg.YellowCount++
		default:
			agg.GreenCount++
		}

		if a, ok := analysisByMission[m.ID]; ok {
			agg.TrashKg += a.WasteDivertedKg
			agg.CO2Kg += a.CO2SavedKg
		}
	}

	out := make([]UserAggregation, 0, len(byUser))
	for userID, agg := range byUser {
		agg.EcoPoints = pointsByUser[userID]

		if p, ok := profileByUser[userID]; ok {
			agg.Username = p.Username
			agg.AvatarURL = p.AvatarURL
		} else {
			// A user with activity but no profile still appears ranked.
			agg.Username = "Unknown"
		}

		if s, ok := statsByUser[userID]; ok {
			agg.StreakDays = s.StreakDays
			agg.Level = s.Level
		} else {
			agg.StreakDays = 0
			agg.Level = 1
		}

		// Rounded once at aggregate-build time, not per mission.
		agg.TrashKg = round2(agg.TrashKg)
		agg.CO2Kg = round2(agg.CO2Kg)

		out = append(out, *agg)
	}

	return out
}

// SortLeaderboard totally orders aggregates for rank display:
// eco_points DESC, trash_kg DESC, missions_count DESC, user_id ASC.
// The userID tiebreak makes the order deterministic even when every numeric
// field ties. Returns a sorted copy; the input is left untouched.
func SortLeaderboard(entries []UserAggregation) []UserAggregation {
	sorted := make([]UserAggregation, len(entries))
	copy(sorted, entries)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.EcoPoints != b.EcoPoints {
			return a.EcoPoints > b.EcoPoints
		}
		if a.TrashKg != b.TrashKg {
			return a.TrashKg > b.TrashKg
		}
		if a.MissionsCount != b.MissionsCount {
			return a.MissionsCount > b.MissionsCount
		}
		return strings.Compare(a.UserID.String(), b.UserID.String()) < 0
	})

	return sorted
}

// AggregateGlobalStats sums the displayed rows into the summary cards.
// Totals always equal the element-wise sums over the given list.
func AggregateGlobalStats(users []UserAggregation) GlobalStats {
	var gs GlobalStats
	var trash, co2 float64
	for _, u := range users {
		gs.TotalMissions += u.MissionsCount
		gs.TotalEcoPoints += u.EcoPoints
		trash += u.TrashKg
		co2 += u.CO2Kg
	}
	gs.TotalTrashKg = round1(trash)
	gs.TotalCO2Kg = round1(co2)
	return gs
}

// round2 rounds half away from zero to 2 decimal places.
func round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// round1 rounds half away from zero to 1 decimal place.
func round1(x float64) float64 {
	return decimal.NewFromFloat(x).Round(1).InexactFloat64()
}
