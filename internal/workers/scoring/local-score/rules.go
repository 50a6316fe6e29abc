// internal/workers/scoring/local-score/rules.go
package localscore

import (
	"strings"

	"menu-advisor/internal/models"
)

const (
	baseScore = 50

	FallbackNutrientReasoning = "Standard nutrition profile"
	FallbackKeywordReasoning  = "Standard option"
)

// ScoreNutrients scores an item from its nutrition label. rec must have
// calories; callers use ScoreKeywords otherwise.
func ScoreNutrients(rec models.NutrientRecord, prioritizeProtein bool) (int, string) {
	score := baseScore
	var tags []string
	add := func(points int, tag string) {
		score += points
		tags = append(tags, tag)
	}

	calories := float64(rec.Calories)

	density := 0.0
	if calories > 0 {
		density = rec.Protein * 4 / calories
	}
	switch {
	case density >= 0.25:
		add(30, "Excellent protein density")
	case density >= 0.20:
		add(20, "High protein density")
	case density >= 0.15:
		add(10, "Good protein density")
	default:
		add(-10, "Low protein density")
	}
	if prioritizeProtein && density >= 0.20 {
		add(10, "Protein priority bonus")
	}

	if rec.TotalFat > 0 {
		ratio := rec.SaturatedFat / rec.TotalFat
		switch {
		case ratio <= 0.3:
			add(20, "Healthy fat profile")
		case ratio <= 0.5:
			add(10, "Moderate saturated fat")
		default:
			add(-10, "High saturated fat")
		}
	}

	switch {
	case rec.Fiber >= 5:
		add(15, "Excellent fiber")
	case rec.Fiber >= 3:
		add(10, "Good fiber")
	case rec.Fiber >= 1:
		add(5, "Some fiber")
	default:
		add(-5, "Low fiber")
	}

	if calories > 0 {
		sodium := rec.Sodium / calories
		switch {
		case sodium <= 1.0:
			add(15, "Low sodium")
		case sodium <= 2.0:
			add(10, "Moderate sodium")
		case sodium <= 3.0:
			add(5, "Acceptable sodium")
		default:
			add(-10, "High sodium")
		}
	}

	if rec.AddedSugars > 0 && calories > 0 {
		sugar := rec.AddedSugars * 4 / calories
		switch {
		case sugar >= 0.25:
			add(-15, "Very high added sugar")
		case sugar >= 0.15:
			add(-10, "High added sugar")
		case sugar >= 0.10:
			add(-5, "Moderate added sugar")
		default:
			add(5, "Low added sugar")
		}
	}

	switch {
	case rec.Calories <= 200:
		add(10, "Low calorie")
	case rec.Calories <= 400:
		add(5, "Moderate calorie")
	case rec.Calories >= 800:
		add(-10, "High calorie")
	}

	return clamp(score), reasoning(tags, FallbackNutrientReasoning)
}

type keywordTier struct {
	level    string
	keywords []string
}

var (
	proteinTiers = []keywordTier{
		{"excellent", []string{"chicken", "salmon", "tuna", "turkey"}},
		{"good", []string{"beef", "eggs", "tofu", "beans"}},
		{"moderate", []string{"cheese", "yogurt"}},
	}
	prepTiers = []keywordTier{
		{"excellent", []string{"grilled", "baked", "steamed"}},
		{"good", []string{"sautéed", "sauteed"}},
		{"poor", []string{"fried", "creamy", "battered"}},
	}

	proteinWeights = map[bool]map[string]int{
		true:  {"excellent": 40, "good": 30, "moderate": 15},
		false: {"excellent": 30, "good": 20, "moderate": 10},
	}
	prepWeights = map[bool]map[string]int{
		true:  {"excellent": 10, "good": 5, "poor": -15},
		false: {"excellent": 20, "good": 10, "poor": -25},
	}
)

// ScoreKeywords is the degraded mode used when an item has no nutrition
// data. Only the first matching tier of each category counts.
func ScoreKeywords(name string, prioritizeProtein bool) (int, string) {
	lower := strings.ToLower(name)
	score := baseScore
	var tags []string

	if level, ok := firstTier(lower, proteinTiers); ok {
		score += proteinWeights[prioritizeProtein][level]
		tags = append(tags, "High protein ("+level+")")
	}
	if level, ok := firstTier(lower, prepTiers); ok {
		score += prepWeights[prioritizeProtein][level]
		tags = append(tags, "Prep style ("+level+")")
	}

	return clamp(score), reasoning(tags, FallbackKeywordReasoning)
}

// Score picks nutrient mode when rec has calories and keyword mode otherwise.
func Score(name string, rec *models.NutrientRecord, prioritizeProtein bool) (int, string) {
	if rec.HasData() {
		return ScoreNutrients(*rec, prioritizeProtein)
	}
	return ScoreKeywords(name, prioritizeProtein)
}

func firstTier(lower string, tiers []keywordTier) (string, bool) {
	for _, tier := range tiers {
		for _, kw := range tier.keywords {
			if strings.Contains(lower, kw) {
				return tier.level, true
			}
		}
	}
	return "", false
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func reasoning(tags []string, fallback string) string {
	if len(tags) == 0 {
		return fallback
	}
	return strings.Join(tags, ", ")
}
