// internal/workers/scrape/form-discovery/config.go
package formdiscovery

import (
	"time"

	commonhttp "menu-advisor/internal/common/http"
)

type Config struct {
	MenuURL string
	// Field names tried in order for each selector. The first present wins.
	CampusFields []string
	MealFields   []string
	DateFields   []string
	Retry        commonhttp.RetryPolicy
}

func LoadConfig(menuURL string, maxRetries int, retryDelay time.Duration) *Config {
	return &Config{
		MenuURL:      menuURL,
		CampusFields: []string{"selCampus", "campus"},
		MealFields:   []string{"selMeal", "meal"},
		DateFields:   []string{"selMenuDate", "menuDate", "date"},
		Retry: commonhttp.RetryPolicy{
			MaxAttempts:  maxRetries,
			InitialDelay: retryDelay,
			Retryable:    commonhttp.IsTransient,
		},
	}
}
