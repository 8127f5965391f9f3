package eco

import "strings"

// Severity is the environmental-impact tier of a mission or zone.
type Severity string

const (
	SeverityGreen  Severity = "GREEN"
	SeverityYellow Severity = "YELLOW"
	SeverityRed    Severity = "RED"
)

// ParseSeverity normalizes raw severity strings at the data-model boundary.
// Matching is case-insensitive; anything unrecognized (including empty and
// nil from optional columns) counts as GREEN.
func ParseSeverity(raw *string) Severity {
	if raw == nil {
		return SeverityGreen
	}
	switch strings.ToUpper(strings.TrimSpace(*raw)) {
	case string(SeverityRed):
		return SeverityRed
	case string(SeverityYellow):
		return SeverityYellow
	default:
		return SeverityGreen
	}
}

// SeverityForItemCount maps a detected item count to a severity tier.
// 1-3 items = GREEN, 4-10 = YELLOW, 11+ = RED.
func SeverityForItemCount(count int) Severity {
	switch {
	case count <= 3:
		return SeverityGreen
	case count <= 10:
		return SeverityYellow
	default:
		return SeverityRed
	}
}
