// internal/workers/ranking/preference-rank/filter.go
package preferencerank

import (
	"sort"
	"strings"

	"menu-advisor/internal/models"
)

// Exclusion terms are plain substrings, so "ham" also drops "Hamburger".
var (
	BeefTerms       = []string{"beef"}
	PorkTerms       = []string{"pork", "bacon", "sausage", "ham"}
	VegetarianTerms = []string{"beef", "pork", "chicken", "turkey", "fish", "salmon", "tuna", "bacon", "sausage", "ham"}
	VeganTerms      = append(append([]string{}, VegetarianTerms...), "egg", "eggs", "dairy", "milk", "cheese", "butter", "yogurt")
)

var cyoMarkers = []string{"cyo", "create your own"}

// Excluded reports whether a hard dietary filter removes name.
func Excluded(name string, prefs models.Preferences) bool {
	lower := strings.ToLower(name)
	return (prefs.ExcludeBeef && containsAny(lower, BeefTerms)) ||
		(prefs.ExcludePork && containsAny(lower, PorkTerms)) ||
		(prefs.Vegetarian && containsAny(lower, VegetarianTerms)) ||
		(prefs.Vegan && containsAny(lower, VeganTerms))
}

// Filter drops excluded items and keeps the order of the rest.
func Filter(items []models.ScoredItem, prefs models.Preferences) []models.ScoredItem {
	if !prefs.HasDietaryFilter() {
		return items
	}
	kept := make([]models.ScoredItem, 0, len(items))
	for _, it := range items {
		if !Excluded(it.Name, prefs) {
			kept = append(kept, it)
		}
	}
	return kept
}

// Rank sorts by score, highest first, and keeps the top n. Equal scores keep
// their input order. Each CYO item in the top n adds one more item.
func Rank(items []models.ScoredItem, n int) []models.ScoredItem {
	ranked := make([]models.ScoredItem, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) <= n {
		return ranked
	}
	limit := n
	for _, it := range ranked[:n] {
		if IsCreateYourOwn(it.Name) {
			limit++
		}
	}
	if limit > len(ranked) {
		limit = len(ranked)
	}
	return ranked[:limit]
}

func IsCreateYourOwn(name string) bool {
	return containsAny(strings.ToLower(name), cyoMarkers)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
