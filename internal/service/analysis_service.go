package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/eco"
	"github.com/ecohuntapp/ecohunt-server/pkg/apperror"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// WasteItem is one detected waste type in a before photo.
type WasteItem struct {
	Label         string `json:"label"`
	Count         int    `json:"count"`
	PointsPerItem int    `json:"points_per_item"`
}

// BeforeAnalysis is the structured result of scanning a polluted-area photo.
type BeforeAnalysis struct {
	Items         []WasteItem    `json:"items"`
	TotalItems    int            `json:"total_items"`
	TotalPoints   int            `json:"total_points"`
	Severity      eco.Severity   `json:"severity"`
	Difficulty    eco.Difficulty `json:"difficulty"`
	CO2ImpactKg   float64        `json:"co2_impact_kg"`
	WasteWeightKg float64        `json:"waste_weight_kg"`
	CleanupTips   []string       `json:"cleanup_tips"`
	Summary       string         `json:"summary"`
}

// RemovedItem is one waste type removed between the before and after photos.
type RemovedItem struct {
	Label        string `json:"label"`
	Count        int    `json:"count"`
	PointsEarned int    `json:"points_earned"`
}

// AfterAnalysis compares an after photo against the stored before analysis.
type AfterAnalysis struct {
	ItemsBefore       int            `json:"items_before"`
	ItemsAfter        int            `json:"items_after"`
	ImprovementPct    float64        `json:"improvement_pct"`
	ItemsRemoved      []RemovedItem  `json:"items_removed"`
	TotalPointsEarned int            `json:"total_points_earned"`
	CO2SavedKg        float64        `json:"co2_saved_kg"`
	WasteDivertedKg   float64        `json:"waste_diverted_kg"`
	Status            string         `json:"status"` // CLEAN, IMPROVED, NEEDS_MORE
	Report            string         `json:"report"`
	Difficulty        eco.Difficulty `json:"difficulty"`
}

// HelpContext carries the mission details the description generator works from.
type HelpContext struct {
	Category        string `json:"category"`
	SeverityColor   string `json:"severity_color"`
	UserDescription string `json:"user_description"`
	TotalItems      int    `json:"total_items"`
	Summary         string `json:"summary"`
}

// HelpDescription is a generated mission description for a help request.
type HelpDescription struct {
	Description      string   `json:"description"`
	VolunteersNeeded int      `json:"volunteers_needed"`
	TimeEstimate     string   `json:"time_estimate"`
	ToolsNeeded      []string `json:"tools_needed"`
}

type AnalysisService interface {
	AnalyzeBefore(ctx context.Context, imageBase64 string) (*BeforeAnalysis, error)
	AnalyzeAfter(ctx context.Context, imageBase64 string, before *BeforeAnalysis) (*AfterAnalysis, error)
	DescribeHelpRequest(ctx context.Context, hc HelpContext) (*HelpDescription, error)
}

// Per-item scoring and impact coefficients, shared by the prompt and the
// mock detector so both produce numbers on the same scale.
type labelCoeff struct {
	Points   int
	CO2Kg    float64
	WeightKg float64
}

var labelCoeffs = map[string]labelCoeff{
	"Plastic Bottle": {Points: 5, CO2Kg: 0.082, WeightKg: 0.025},
	"Can":            {Points: 8, CO2Kg: 0.042, WeightKg: 0.015},
	"Glass":          {Points: 10, CO2Kg: 0.06, WeightKg: 0.35},
	"Plastic Bag":    {Points: 3, CO2Kg: 0.033, WeightKg: 0.008},
	"Cigarette":      {Points: 2, CO2Kg: 0.014, WeightKg: 0.001},
	"Paper":          {Points: 3, CO2Kg: 0.025, WeightKg: 0.01},
}

var defaultCoeff = labelCoeff{Points: 4, CO2Kg: 0.03, WeightKg: 0.01}

func coeffFor(label string) labelCoeff {
	if c, ok := labelCoeffs[label]; ok {
		return c
	}
	return defaultCoeff
}

const analysisSystemPrompt = `You are an environmental waste detection assistant analyzing photos of polluted areas.

SCORING TABLE (EcoPoints per item removed):
- Plastic Bottle: 5, Can: 8, Glass: 10, Plastic Bag: 3, Cigarette: 2, Paper: 3, other waste item: 4.

ENVIRONMENTAL IMPACT (approximate per item, kg CO2 / kg waste):
- Plastic Bottle: 0.082/0.025, Can: 0.042/0.015, Glass: 0.06/0.35, Plastic Bag: 0.033/0.008, Cigarette: 0.014/0.001, Paper: 0.025/0.01.

RULES:
- Always respond with pure JSON matching the requested shape, nothing else.
- Be precise: count each visible item, estimate when items overlap.
- Severity: 1-3 items = GREEN, 4-10 = YELLOW, 11+ = RED.
- Difficulty: 1-5 items = EASY, 6-12 = MODERATE, 13+ = HARD.`

// geminiAnalyzer runs the real vision model. Every call is bounded by the
// configured timeout; a deadline hit surfaces as ErrAnalysisTimeout so the
// handler can answer 504 instead of 500.
type geminiAnalyzer struct {
	client  *genai.Client
	vision  *genai.GenerativeModel
	text    *genai.GenerativeModel
	timeout time.Duration
}

func NewGeminiAnalyzer(ctx context.Context, apiKey string, timeout time.Duration) (AnalysisService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	vision := client.GenerativeModel("gemini-2.5-flash")
	vision.ResponseMIMEType = "application/json"

	// Description generation has no image and a tight output budget, so the
	// lite model is enough.
	text := client.GenerativeModel("gemini-2.5-flash-lite")
	text.ResponseMIMEType = "application/json"
	text.SetMaxOutputTokens(300)

	return &geminiAnalyzer{client: client, vision: vision, text: text, timeout: timeout}, nil
}

func (g *geminiAnalyzer) AnalyzeBefore(ctx context.Context, imageBase64 string) (*BeforeAnalysis, error) {
	prompt := analysisSystemPrompt + `

Analyze this photo of a polluted area. Detect all visible waste items, count them, estimate total EcoPoints for cleaning, calculate environmental impact, and give 2-3 short cleanup tips.
Respond with JSON: {"items":[{"label":string,"count":int,"points_per_item":int}],"total_items":int,"total_points":int,"severity":"GREEN|YELLOW|RED","difficulty":"EASY|MODERATE|HARD","co2_impact_kg":number,"waste_weight_kg":number,"cleanup_tips":[string],"summary":string}`

	var result BeforeAnalysis
	if err := g.generateWithImage(ctx, prompt, imageBase64, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (g *geminiAnalyzer) AnalyzeAfter(ctx context.Context, imageBase64 string, before *BeforeAnalysis) (*AfterAnalysis, error) {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return nil, err
	}

	prompt := analysisSystemPrompt + fmt.Sprintf(`

Analyze this AFTER photo. The BEFORE analysis found: %s. Compare the before and after, determine how many items were removed, calculate earned EcoPoints, improvement percentage, and write a short report.
Respond with JSON: {"items_before":int,"items_after":int,"improvement_pct":number,"items_removed":[{"label":string,"count":int,"points_earned":int}],"total_points_earned":int,"co2_saved_kg":number,"waste_diverted_kg":number,"status":"CLEAN|IMPROVED|NEEDS_MORE","report":string}`, beforeJSON)

	var result AfterAnalysis
	if err := g.generateWithImage(ctx, prompt, imageBase64, &result); err != nil {
		return nil, err
	}
	result.Difficulty = eco.DifficultyForItemCount(result.ItemsBefore)
	return &result, nil
}

func (g *geminiAnalyzer) DescribeHelpRequest(ctx context.Context, hc HelpContext) (*HelpDescription, error) {
	prompt := fmt.Sprintf(`Based on a waste analysis of a polluted area, generate a mission description for publishing on a cleanup map.

Waste category: %s. Severity: %s. User description: %s.
AI analysis: %d items detected, summary: %s.

Write a detailed problem description (2-4 sentences), estimate the number of volunteers, cleanup time and required tools.
Respond with JSON: {"description":string,"volunteers_needed":int,"time_estimate":string,"tools_needed":[string]}`,
		orDefault(hc.Category, "mixed waste"), orDefault(hc.SeverityColor, "YELLOW"),
		orDefault(hc.UserDescription, "none"), hc.TotalItems, orDefault(hc.Summary, "none"))

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var result HelpDescription
	if err := g.generate(ctx, g.text, &result, genai.Text(prompt)); err != nil {
		return nil, err
	}
	fillHelpDefaults(&result, hc)
	return &result, nil
}

func (g *geminiAnalyzer) generateWithImage(ctx context.Context, prompt, imageBase64 string, out interface{}) error {
	format, data, err := decodeImageDataURL(imageBase64)
	if err != nil {
		return apperror.New(400, "invalid image payload", apperror.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	return g.generate(ctx, g.vision, out, genai.Text(prompt), genai.ImageData(format, data))
}

func (g *geminiAnalyzer) generate(ctx context.Context, model *genai.GenerativeModel, out interface{}, parts ...genai.Part) error {
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperror.ErrAnalysisTimeout
		}
		return err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return fmt.Errorf("no response from model")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			if err := json.Unmarshal([]byte(txt), out); err != nil {
				return fmt.Errorf("failed to parse model JSON: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("no text content in response")
}

func (g *geminiAnalyzer) Close() {
	g.client.Close()
}

// decodeImageDataURL splits a data URL ("data:image/jpeg;base64,...") or a
// bare base64 string into an image format and raw bytes.
func decodeImageDataURL(s string) (string, []byte, error) {
	format := "jpeg"
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok {
			return "", nil, fmt.Errorf("malformed data URL")
		}
		if mime, _, ok := strings.Cut(strings.TrimPrefix(header, "data:"), ";"); ok {
			if f, ok := strings.CutPrefix(mime, "image/"); ok {
				format = f
			}
		}
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", nil, err
	}
	return format, data, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func fillHelpDefaults(hd *HelpDescription, hc HelpContext) {
	isRed := strings.EqualFold(hc.SeverityColor, "RED")
	if hd.Description == "" {
		hd.Description = fmt.Sprintf("Pollution of category %q detected, roughly %d pieces of waste. A team cleanup with sorting and waste removal is needed.",
			orDefault(hc.Category, "mixed waste"), hc.TotalItems)
	}
	if hd.VolunteersNeeded == 0 {
		if isRed {
			hd.VolunteersNeeded = 10
		} else {
			hd.VolunteersNeeded = 5
		}
	}
	if hd.TimeEstimate == "" {
		if isRed {
			hd.TimeEstimate = "3-5 hours"
		} else {
			hd.TimeEstimate = "1-2 hours"
		}
	}
	if len(hd.ToolsNeeded) == 0 {
		hd.ToolsNeeded = []string{"Gloves", "Trash bags", "Sorting bags"}
		if isRed {
			hd.ToolsNeeded = []string{"Gloves", "Trash bags", "Shovels", "Transport for removal"}
		}
	}
}

var mockLabels = []string{"Plastic Bottle", "Can", "Plastic Bag", "Glass", "Paper", "Cigarette"}

// mockAnalyzer produces plausible random detections when no model API key is
// configured, keeping the cleanup flow usable in development. The shapes and
// coefficient scales match the real analyzer exactly.
type mockAnalyzer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockAnalyzer(seed int64) AnalysisService {
	return &mockAnalyzer{rng: rand.New(rand.NewSource(seed))}
}

func (m *mockAnalyzer) randInt(min, max int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return min + m.rng.Intn(max-min+1)
}

func (m *mockAnalyzer) detect(min, max int) map[string]int {
	counts := make(map[string]int)
	n := m.randInt(min, max)
	for i := 0; i < n; i++ {
		counts[mockLabels[m.randInt(0, len(mockLabels)-1)]]++
	}
	return counts
}

func (m *mockAnalyzer) AnalyzeBefore(_ context.Context, _ string) (*BeforeAnalysis, error) {
	counts := m.detect(8, 20)

	out := &BeforeAnalysis{
		CleanupTips: []string{
			"Wear gloves and separate recyclables as you collect.",
			"Flatten bottles and cans to save bag space.",
			"Photograph the area again after cleaning to log your impact.",
		},
	}
	for label, count := range counts {
		c := coeffFor(label)
		out.Items = append(out.Items, WasteItem{Label: label, Count: count, PointsPerItem: c.Points})
		out.TotalItems += count
		out.TotalPoints += c.Points * count
		out.CO2ImpactKg += c.CO2Kg * float64(count)
		out.WasteWeightKg += c.WeightKg * float64(count)
	}
	out.Severity = eco.SeverityForItemCount(out.TotalItems)
	out.Difficulty = eco.DifficultyForItemCount(out.TotalItems)
	out.Summary = fmt.Sprintf("Detected %d waste items across %d categories.", out.TotalItems, len(out.Items))
	return out, nil
}

func (m *mockAnalyzer) AnalyzeAfter(_ context.Context, _ string, before *BeforeAnalysis) (*AfterAnalysis, error) {
	afterCounts := m.detect(0, 3)

	beforeCounts := make(map[string]int, len(before.Items))
	itemsBefore := 0
	for _, it := range before.Items {
		beforeCounts[it.Label] += it.Count
		itemsBefore += it.Count
	}
	itemsAfter := 0
	for _, c := range afterCounts {
		itemsAfter += c
	}

	out := &AfterAnalysis{
		ItemsBefore: itemsBefore,
		ItemsAfter:  itemsAfter,
		Difficulty:  eco.DifficultyForItemCount(itemsBefore),
	}
	if itemsBefore > 0 {
		out.ImprovementPct = float64(itemsBefore-itemsAfter) / float64(itemsBefore) * 100
	} else {
		out.ImprovementPct = 100
	}

	for label, count := range beforeCounts {
		removed := count - afterCounts[label]
		if removed <= 0 {
			continue
		}
		c := coeffFor(label)
		out.ItemsRemoved = append(out.ItemsRemoved, RemovedItem{
			Label:        label,
			Count:        removed,
			PointsEarned: c.Points * removed,
		})
		out.CO2SavedKg += c.CO2Kg * float64(removed)
		out.WasteDivertedKg += c.WeightKg * float64(removed)
	}

	base := eco.BasePoints(out.Difficulty)
	out.TotalPointsEarned = eco.EarnedPoints(base, out.ImprovementPct)

	switch {
	case itemsAfter == 0:
		out.Status = "CLEAN"
	case itemsAfter < itemsBefore:
		out.Status = "IMPROVED"
	default:
		out.Status = "NEEDS_MORE"
	}
	out.Report = fmt.Sprintf("Removed %d of %d items (%.0f%% improvement).",
		itemsBefore-itemsAfter, itemsBefore, out.ImprovementPct)
	return out, nil
}

func (m *mockAnalyzer) DescribeHelpRequest(_ context.Context, hc HelpContext) (*HelpDescription, error) {
	var hd HelpDescription
	fillHelpDefaults(&hd, hc)
	return &hd, nil
}

// NewAnalysisService picks the real vision analyzer when an API key is
// configured and falls back to the mock otherwise.
func NewAnalysisService(ctx context.Context, apiKey string, timeout time.Duration) AnalysisService {
	if apiKey == "" {
		log.Println("⚠️ GEMINI_API_KEY not set, using mock waste analyzer")
		return NewMockAnalyzer(time.Now().UnixNano())
	}
	svc, err := NewGeminiAnalyzer(ctx, apiKey, timeout)
	if err != nil {
		log.Printf("⚠️ Failed to init Gemini analyzer, using mock: %v", err)
		return NewMockAnalyzer(time.Now().UnixNano())
	}
	return svc
}
