// internal/workers/scoring/llm-score/config.go
package llmscore

import (
	"fmt"
	"strings"
	"time"

	"menu-advisor/internal/common/config"
	commonhttp "menu-advisor/internal/common/http"
)

type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
	// Required turns fallback off: transient failures are retried and the
	// last error is returned instead of local scores.
	Required bool
	// TopN is how many options per meal the model is asked for, so hard
	// filters can still leave enough to rank.
	TopN  int
	Retry commonhttp.RetryPolicy
}

func LoadConfig(cfg config.LLMConfig) *Config {
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	return &Config{
		BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		Timeout:  config.GetDuration(cfg.Timeout),
		Required: cfg.Required,
		TopN:     15,
		Retry: commonhttp.RetryPolicy{
			MaxAttempts:  attempts,
			InitialDelay: time.Second,
			Retryable:    IsTransient,
		},
	}
}

// Endpoint is the generateContent URL for the configured model.
func (c *Config) Endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", c.BaseURL, c.Model)
}
