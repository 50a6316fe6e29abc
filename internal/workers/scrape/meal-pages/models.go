// internal/workers/scrape/meal-pages/models.go
package mealpages

import "menu-advisor/internal/models"

type Input struct {
	CampusValue string            `json:"campusValue"`
	DateValue   string            `json:"dateValue"`
	MealValues  map[string]string `json:"mealValues"`
	// Fields overrides the configured form field names, keyed "campus",
	// "meal" and "date" as reported by form discovery.
	Fields map[string]string `json:"fields,omitempty"`
}

type Output struct {
	Menu        models.DailyMenu `json:"menu"`
	FailedMeals []string         `json:"failedMeals,omitempty"`
}
