// internal/workers/scrape/nutrition-extract/config.go
package nutritionextract

import (
	"time"

	commonhttp "menu-advisor/internal/common/http"
)

type Config struct {
	Timeout        time.Duration
	MaxIngredients int
	Retry          commonhttp.RetryPolicy
}

func LoadConfig(timeout time.Duration) *Config {
	return &Config{
		Timeout:        timeout,
		MaxIngredients: 1000,
		Retry: commonhttp.RetryPolicy{
			MaxAttempts:  2,
			InitialDelay: 200 * time.Millisecond,
			Retryable:    commonhttp.IsTransient,
		},
	}
}
