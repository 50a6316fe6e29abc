// internal/workers/scoring/llm-score/prompt.go
package llmscore

import (
	"encoding/json"
	"fmt"
	"strings"

	"menu-advisor/internal/models"
)

type promptNutrition struct {
	Calories     int     `json:"calories"`
	Protein      float64 `json:"protein_g"`
	TotalFat     float64 `json:"total_fat_g"`
	SaturatedFat float64 `json:"saturated_fat_g"`
	Fiber        float64 `json:"dietary_fiber_g"`
	Sodium       float64 `json:"sodium_mg"`
	AddedSugars  float64 `json:"added_sugars_g"`
}

// RestrictionsText renders the hard filters the way the prompt states them.
func RestrictionsText(p models.Preferences) string {
	var parts []string
	if p.ExcludeBeef {
		parts = append(parts, "No beef.")
	}
	if p.ExcludePork {
		parts = append(parts, "No pork.")
	}
	if p.Vegetarian {
		parts = append(parts, "Only vegetarian items (includes eggs).")
	}
	if p.Vegan {
		parts = append(parts, "Only vegan items (no animal products including eggs and dairy).")
	}
	if len(parts) == 0 {
		return "None."
	}
	return strings.Join(parts, " ")
}

func priorityText(p models.Preferences) string {
	if p.PrioritizeProtein {
		return "prioritize PROTEIN content"
	}
	return "prioritize a BALANCE of high protein and healthy preparation"
}

// BuildPrompt renders the scoring request for menu. Items with nutrition
// data are listed again with their label values.
func BuildPrompt(menu models.EnrichedMenu, prefs models.Preferences, topN int) (string, error) {
	names := make(map[string][]string, len(menu))
	facts := make(map[string]promptNutrition)
	for meal, candidates := range menu {
		list := make([]string, 0, len(candidates))
		for _, c := range candidates {
			list = append(list, c.Name)
			if c.Nutrition.HasData() {
				n := c.Nutrition
				facts[c.Name] = promptNutrition{
					Calories:     n.Calories,
					Protein:      n.Protein,
					TotalFat:     n.TotalFat,
					SaturatedFat: n.SaturatedFat,
					Fiber:        n.Fiber,
					Sodium:       n.Sodium,
					AddedSugars:  n.AddedSugars,
				}
			}
		}
		names[meal] = list
	}

	menuJSON, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode menu: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the menu below. Your goal is to %s. My restrictions are: %s\n", priorityText(prefs), RestrictionsText(prefs))
	fmt.Fprintf(&sb, "For EACH meal, identify the top %d options.\n", topN)
	sb.WriteString(`Return your response as a single, valid JSON object with keys "Breakfast", "Lunch", "Dinner". `)
	sb.WriteString(`Each value should be a list of objects, each with "food_name", "score" (0-100), and "reasoning". `)
	sb.WriteString("Use the food names exactly as written in the menu.\n")
	fmt.Fprintf(&sb, "Menu: %s\n", menuJSON)

	if len(facts) > 0 {
		factsJSON, err := json.MarshalIndent(facts, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode nutrition: %w", err)
		}
		fmt.Fprintf(&sb, "Nutrition facts per serving: %s\n", factsJSON)
	}
	return sb.String(), nil
}
