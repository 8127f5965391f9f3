package service

import (
	"context"
	"testing"

	"github.com/ecohuntapp/ecohunt-server/internal/eco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockAnalyzerBefore(t *testing.T) {
	svc := NewMockAnalyzer(42)

	before, err := svc.AnalyzeBefore(context.Background(), "")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, before.TotalItems, 8)
	assert.LessOrEqual(t, before.TotalItems, 20)
	assert.Equal(t, eco.SeverityForItemCount(before.TotalItems), before.Severity)
	assert.Equal(t, eco.DifficultyForItemCount(before.TotalItems), before.Difficulty)
	assert.Positive(t, before.TotalPoints)
	assert.Positive(t, before.WasteWeightKg)
	assert.Positive(t, before.CO2ImpactKg)
	assert.Len(t, before.CleanupTips, 3)

	sum := 0
	for _, it := range before.Items {
		assert.Positive(t, it.Count)
		assert.Positive(t, it.PointsPerItem)
		sum += it.Count
	}
	assert.Equal(t, before.TotalItems, sum)
}

func TestMockAnalyzerAfterComparesAgainstBefore(t *testing.T) {
	svc := NewMockAnalyzer(7)

	before := &BeforeAnalysis{
		Items: []WasteItem{
			{Label: "Plastic Bottle", Count: 10, PointsPerItem: 5},
			{Label: "Glass", Count: 4, PointsPerItem: 10},
		},
		TotalItems: 14,
	}

	after, err := svc.AnalyzeAfter(context.Background(), "", before)
	require.NoError(t, err)

	assert.Equal(t, 14, after.ItemsBefore)
	assert.LessOrEqual(t, after.ItemsAfter, 3)
	assert.Equal(t, eco.DifficultyHard, after.Difficulty) // 14 items before
	assert.InDelta(t, float64(14-after.ItemsAfter)/14*100, after.ImprovementPct, 0.001)

	// Earned points follow base + improvement bonus.
	want := eco.EarnedPoints(eco.BasePoints(eco.DifficultyHard), after.ImprovementPct)
	assert.Equal(t, want, after.TotalPointsEarned)
	assert.NotEmpty(t, after.Status)
	assert.Positive(t, after.WasteDivertedKg)
}

func TestMockAnalyzerHelpDescriptionDefaults(t *testing.T) {
	svc := NewMockAnalyzer(1)

	hd, err := svc.DescribeHelpRequest(context.Background(), HelpContext{
		Category:      "plastic",
		SeverityColor: "RED",
		TotalItems:    25,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, hd.Description)
	assert.Equal(t, 10, hd.VolunteersNeeded)
	assert.Equal(t, "3-5 hours", hd.TimeEstimate)
	assert.Contains(t, hd.ToolsNeeded, "Shovels")
}
