// internal/workers/scrape/nutrition-extract/models.go
package nutritionextract

import "menu-advisor/internal/models"

type Input struct {
	Item models.MenuItem `json:"item"`
}

type Output struct {
	Nutrition models.NutrientRecord `json:"nutrition"`
	// Found is false when nothing could be extracted; Nutrition is then all zero.
	Found bool `json:"found"`
}
