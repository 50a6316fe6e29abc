// internal/models/nutrition.go
package models

// NutrientRecord holds nutrition facts for one menu item. Every numeric field
// is zero when it could not be parsed, so zero also means "unknown".
type NutrientRecord struct {
	Calories     int     `json:"calories"`
	TotalFat     float64 `json:"total_fat_g"`
	SaturatedFat float64 `json:"saturated_fat_g"`
	TransFat     float64 `json:"trans_fat_g"`
	Cholesterol  float64 `json:"cholesterol_mg"`
	Sodium       float64 `json:"sodium_mg"`
	TotalCarbs   float64 `json:"total_carb_g"`
	Fiber        float64 `json:"dietary_fiber_g"`
	Sugars       float64 `json:"sugars_g"`
	AddedSugars  float64 `json:"added_sugars_g"`
	Protein      float64 `json:"protein_g"`
	VitaminD     float64 `json:"vitamin_d_mcg"`
	Calcium      float64 `json:"calcium_mg"`
	Iron         float64 `json:"iron_mg"`
	Potassium    float64 `json:"potassium_mg"`

	ServingSize string `json:"serving_size,omitempty"`
	Ingredients string `json:"ingredients,omitempty"`

	// DailyValues holds "% daily value" per nutrient key, e.g. "sodium_mg" -> 35.
	DailyValues map[string]float64 `json:"daily_values,omitempty"`
}

// HasData reports whether the record is usable for nutrient scoring.
func (n *NutrientRecord) HasData() bool {
	return n != nil && n.Calories > 0
}
