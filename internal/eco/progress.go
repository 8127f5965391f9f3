package eco

import (
	"math"
	"time"
)

// Difficulty of a cleanup, derived from the number of detected items.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "EASY"
	DifficultyModerate Difficulty = "MODERATE"
	DifficultyHard     Difficulty = "HARD"
)

// DifficultyForItemCount maps a before-photo item count to a difficulty.
// 1-5 items = EASY, 6-12 = MODERATE, 13+ = HARD.
func DifficultyForItemCount(count int) Difficulty {
	switch {
	case count <= 5:
		return DifficultyEasy
	case count <= 12:
		return DifficultyModerate
	default:
		return DifficultyHard
	}
}

// BasePoints per difficulty tier.
func BasePoints(d Difficulty) int {
	switch d {
	case DifficultyHard:
		return 100
	case DifficultyModerate:
		return 50
	default:
		return 25
	}
}

// EarnedPoints applies the improvement bonus on top of the base:
// round(base + base * improvementPct/100).
func EarnedPoints(base int, improvementPct float64) int {
	return int(math.Round(float64(base) + float64(base)*improvementPct/100))
}

// LevelForPoints derives the user level from lifetime points; every level
// costs 500 EP.
func LevelForPoints(totalPoints int) int {
	if totalPoints < 0 {
		return 1
	}
	return totalPoints/500 + 1
}

// NextStreak advances a day streak given the previous action timestamp.
// Same calendar day keeps the streak, the following day extends it,
// anything else resets to 1.
func NextStreak(current int, lastAction *time.Time, now time.Time) int {
	if lastAction == nil {
		return 1
	}

	last := *lastAction
	sameDay := last.Year() == now.Year() && last.YearDay() == now.YearDay()
	if sameDay {
		if current < 1 {
			return 1
		}
		return current
	}

	yesterday := now.AddDate(0, 0, -1)
	wasYesterday := last.Year() == yesterday.Year() && last.YearDay() == yesterday.YearDay()
	if wasYesterday {
		return current + 1
	}
	return 1
}
