// internal/workers/analysis/run-analysis/fallback.go
package runanalysis

import "menu-advisor/internal/models"

// FallbackMenu is the sample menu served when the live site cannot be scraped.
func FallbackMenu() models.DailyMenu {
	item := func(name string) models.MenuItem {
		return models.MenuItem{Name: name, DetailURL: models.NoDetailURL}
	}
	return models.DailyMenu{
		models.MealBreakfast: {item("Scrambled Eggs"), item("Turkey Sausage"), item("Oatmeal")},
		models.MealLunch:     {item("Grilled Chicken Salad"), item("Turkey Club Sandwich"), item("Quinoa Bowl")},
		models.MealDinner:    {item("Baked Salmon"), item("Beef Stir-Fry"), item("Grilled Chicken Breast")},
	}
}
