package eco

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	for _, raw := range []string{"daily", "weekly", "monthly", "all"} {
		p, err := ParsePeriod(raw)
		require.NoError(t, err)
		assert.Equal(t, Period(raw), p)
	}

	_, err := ParsePeriod("yearly")
	assert.Error(t, err)
	_, err = ParsePeriod("")
	assert.Error(t, err)
}

func TestRangeDailyStartsAtLocalMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2025, 6, 15, 14, 30, 45, 0, loc)

	r := Range(PeriodDaily, now)

	require.NotNil(t, r.From)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, loc), *r.From)
	assert.Equal(t, now, r.To)
}

func TestRangeWeeklyAndMonthlyOffsets(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	weekly := Range(PeriodWeekly, now)
	require.NotNil(t, weekly.From)
	assert.Equal(t, now.Add(-7*24*time.Hour), *weekly.From)

	monthly := Range(PeriodMonthly, now)
	require.NotNil(t, monthly.From)
	// 30 fixed days, not a calendar month.
	assert.Equal(t, now.Add(-30*24*time.Hour), *monthly.From)
}

func TestRangeAllIsUnbounded(t *testing.T) {
	now := time.Now()
	r := Range(PeriodAll, now)
	assert.Nil(t, r.From)
	assert.Equal(t, now, r.To)
}
