// internal/models/analysis.go
package models

import "time"

// Candidate is a scraped item waiting to be scored. Nutrition is nil when
// the detail page was not fetched or had no data.
type Candidate struct {
	MenuItem
	Nutrition *NutrientRecord
}

// EnrichedMenu is a DailyMenu after nutrition enrichment.
type EnrichedMenu map[string][]Candidate

// Enrich wraps every item of menu as a Candidate without nutrition.
func Enrich(menu DailyMenu) EnrichedMenu {
	out := make(EnrichedMenu, len(menu))
	for meal, items := range menu {
		cands := make([]Candidate, len(items))
		for i, it := range items {
			cands[i] = Candidate{MenuItem: it}
		}
		out[meal] = cands
	}
	return out
}

// ScoredItem is a menu item with its health score.
type ScoredItem struct {
	Name      string          `json:"food_name"`
	Score     int             `json:"score"`
	Reasoning string          `json:"reasoning"`
	URL       string          `json:"url"`
	Nutrition *NutrientRecord `json:"nutrition,omitempty"`
}

// ScoredMenu holds scored items per meal.
type ScoredMenu map[string][]ScoredItem

const (
	SourceLive     = "live"
	SourceFallback = "fallback"

	ScorerLocal = "local"
	ScorerLLM   = "llm"
)

// AnalysisResult is the outcome of one run: ranked recommendations per meal.
type AnalysisResult struct {
	RunID       string      `json:"run_id"`
	Campus      string      `json:"campus"`
	Date        string      `json:"date"`
	Source      string      `json:"source"`
	Scorer      string      `json:"scorer"`
	Warnings    []string    `json:"warnings,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
	Preferences Preferences `json:"preferences"`
	Meals       ScoredMenu  `json:"recommendations"`
}
