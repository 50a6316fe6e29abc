// internal/workers/analysis/run-analysis/cachekey.go
package runanalysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"menu-advisor/internal/models"
)

// CacheKey identifies an analysis by campus, preferences and menu date.
func CacheKey(campus string, prefs models.Preferences, menuDate string) string {
	payload, _ := json.Marshal(struct {
		Campus            string `json:"campus"`
		Date              string `json:"date"`
		Vegetarian        bool   `json:"vegetarian"`
		Vegan             bool   `json:"vegan"`
		ExcludeBeef       bool   `json:"exclude_beef"`
		ExcludePork       bool   `json:"exclude_pork"`
		PrioritizeProtein bool   `json:"prioritize_protein"`
	}{
		Campus:            campus,
		Date:              menuDate,
		Vegetarian:        prefs.Vegetarian,
		Vegan:             prefs.Vegan,
		ExcludeBeef:       prefs.ExcludeBeef,
		ExcludePork:       prefs.ExcludePork,
		PrioritizeProtein: prefs.PrioritizeProtein,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
