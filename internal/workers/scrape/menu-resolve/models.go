// internal/workers/scrape/menu-resolve/models.go
package menuresolve

import "menu-advisor/internal/models"

type Input struct {
	Options   models.FormOptions `json:"options"`
	CampusKey string             `json:"campusKey"`
}

type Output struct {
	CampusValue string `json:"campusValue"`
	CampusLabel string `json:"campusLabel"`
	DateValue   string `json:"dateValue"`
	DateLabel   string `json:"dateLabel"`
	// MealValues holds the selector value per meal name. Meals the form does
	// not offer are absent.
	MealValues map[string]string `json:"mealValues"`
	Warnings   []string          `json:"warnings,omitempty"`
}
