package eco

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDifficultyForItemCount(t *testing.T) {
	assert.Equal(t, DifficultyEasy, DifficultyForItemCount(1))
	assert.Equal(t, DifficultyEasy, DifficultyForItemCount(5))
	assert.Equal(t, DifficultyModerate, DifficultyForItemCount(6))
	assert.Equal(t, DifficultyModerate, DifficultyForItemCount(12))
	assert.Equal(t, DifficultyHard, DifficultyForItemCount(13))
}

func TestBasePointsAndBonus(t *testing.T) {
	assert.Equal(t, 25, BasePoints(DifficultyEasy))
	assert.Equal(t, 50, BasePoints(DifficultyModerate))
	assert.Equal(t, 100, BasePoints(DifficultyHard))

	assert.Equal(t, 50, EarnedPoints(25, 100))  // full cleanup doubles
	assert.Equal(t, 25, EarnedPoints(25, 0))    // no improvement, base only
	assert.Equal(t, 75, EarnedPoints(50, 50))
	assert.Equal(t, 63, EarnedPoints(50, 25.5)) // 62.75 rounds up
}

func TestLevelForPoints(t *testing.T) {
	assert.Equal(t, 1, LevelForPoints(0))
	assert.Equal(t, 1, LevelForPoints(499))
	assert.Equal(t, 2, LevelForPoints(500))
	assert.Equal(t, 5, LevelForPoints(2400))
	assert.Equal(t, 1, LevelForPoints(-10))
}

func TestNextStreak(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	lastWeek := now.AddDate(0, 0, -6)

	assert.Equal(t, 1, NextStreak(0, nil, now))
	assert.Equal(t, 4, NextStreak(4, &now, now))        // same day: unchanged
	assert.Equal(t, 5, NextStreak(4, &yesterday, now))  // consecutive day: +1
	assert.Equal(t, 1, NextStreak(9, &lastWeek, now))   // gap: reset
}
