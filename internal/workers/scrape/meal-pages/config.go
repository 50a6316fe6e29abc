// internal/workers/scrape/meal-pages/config.go
package mealpages

import (
	"time"

	commonhttp "menu-advisor/internal/common/http"
)

type Config struct {
	MenuURL     string
	CampusField string
	MealField   string
	DateField   string
	// MealDelay is the pause between consecutive meal requests.
	MealDelay time.Duration
	Retry     commonhttp.RetryPolicy
	Filter    FoodFilter
}

func LoadConfig(menuURL string, mealDelay time.Duration, maxRetries int, retryDelay time.Duration) *Config {
	return &Config{
		MenuURL:     menuURL,
		CampusField: "selCampus",
		MealField:   "selMeal",
		DateField:   "selMenuDate",
		MealDelay:   mealDelay,
		Retry: commonhttp.RetryPolicy{
			MaxAttempts:  maxRetries,
			InitialDelay: retryDelay,
			Retryable:    commonhttp.IsTransient,
		},
		Filter: DefaultFoodFilter(),
	}
}
