// internal/workers/scoring/llm-score/models.go
package llmscore

import "menu-advisor/internal/models"

type Input struct {
	Menu        models.EnrichedMenu `json:"menu"`
	Preferences models.Preferences  `json:"preferences"`
}

type Output struct {
	Scored models.ScoredMenu `json:"scored"`
	// Scorer is models.ScorerLLM, or models.ScorerLocal after a fallback.
	Scorer   string   `json:"scorer"`
	Warnings []string `json:"warnings,omitempty"`
}

// scoredEntry is one element of the model's per-meal list.
type scoredEntry struct {
	FoodName  string  `json:"food_name"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}
