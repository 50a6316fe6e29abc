// internal/workers/analysis/run-analysis/models.go
package runanalysis

import "menu-advisor/internal/models"

type Input struct {
	Preferences models.Preferences `json:"preferences"`
	// SkipCache forces a fresh scrape; the result is still stored.
	SkipCache bool `json:"skipCache,omitempty"`
}

type Output struct {
	Result *models.AnalysisResult `json:"result"`
	Cached bool                   `json:"cached"`
}
