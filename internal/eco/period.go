package eco

import (
	"fmt"
	"time"
)

// Period is the time window over which the leaderboard is computed.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAll     Period = "all"
)

// PeriodRange bounds a leaderboard window. From is nil for the unbounded
// "all" period.
type PeriodRange struct {
	From *time.Time
	To   time.Time
}

// ParsePeriod validates a period selector coming from the presentation layer.
func ParsePeriod(raw string) (Period, error) {
	switch Period(raw) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAll:
		return Period(raw), nil
	default:
		return "", fmt.Errorf("invalid period %q", raw)
	}
}

// Range resolves a period to its window relative to now.
// - daily: start of the current calendar day (local midnight) -> now
// - weekly: now - 7*24h -> now
// - monthly: now - 30*24h -> now
// - all: unbounded -> now
// The function is total over the four-value enum; unknown values behave
// like "all" but never reach here through ParsePeriod.
func Range(p Period, now time.Time) PeriodRange {
	switch p {
	case PeriodDaily:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return PeriodRange{From: &start, To: now}
	case PeriodWeekly:
		start := now.Add(-7 * 24 * time.Hour)
		return PeriodRange{From: &start, To: now}
	case PeriodMonthly:
		start := now.Add(-30 * 24 * time.Hour)
		return PeriodRange{From: &start, To: now}
	default:
		return PeriodRange{From: nil, To: now}
	}
}
