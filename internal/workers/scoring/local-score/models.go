// internal/workers/scoring/local-score/models.go
package localscore

import "menu-advisor/internal/models"

type Input struct {
	Menu        models.EnrichedMenu `json:"menu"`
	Preferences models.Preferences  `json:"preferences"`
}

type Output struct {
	Scored models.ScoredMenu `json:"scored"`
	// KeywordScored counts items scored without nutrition data.
	KeywordScored int `json:"keywordScored"`
}
