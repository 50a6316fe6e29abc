// internal/workers/ranking/preference-rank/models.go
package preferencerank

import "menu-advisor/internal/models"

type Input struct {
	Scored      models.ScoredMenu  `json:"scored"`
	Preferences models.Preferences `json:"preferences"`
}

type Output struct {
	Recommendations models.ScoredMenu `json:"recommendations"`
	Excluded        int               `json:"excluded"`
}
