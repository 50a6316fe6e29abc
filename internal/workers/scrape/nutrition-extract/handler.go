// internal/workers/scrape/nutrition-extract/handler.go
package nutritionextract

import (
	"context"

	commonhttp "menu-advisor/internal/common/http"
	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/common/metrics"
	"menu-advisor/internal/models"
)

const (
	TaskType = "nutrition-extract"
)

type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Handler struct {
	config  *Config
	fetcher Fetcher
	logger  logger.Logger
}

func NewHandler(config *Config, fetcher Fetcher, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		fetcher: fetcher,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// execute never fails: any fetch or parse problem yields an empty record.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	item := input.Item
	if !item.HasDetail() {
		metrics.NutritionFetches.WithLabelValues("skipped").Inc()
		return &Output{}, nil
	}

	fetchCtx := ctx
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	var body []byte
	err := commonhttp.RetryWithBackoff(fetchCtx, h.config.Retry, h.logger, "nutrition fetch", func(ctx context.Context) error {
		var getErr error
		body, getErr = h.fetcher.Get(ctx, item.DetailURL)
		return getErr
	})
	if err != nil {
		metrics.NutritionFetches.WithLabelValues("error").Inc()
		h.logger.Warn("nutrition fetch failed", map[string]interface{}{
			"item":  item.Name,
			"url":   item.DetailURL,
			"error": err,
		})
		return &Output{}, nil
	}

	rec, found, err := ParsePage(body, h.config.MaxIngredients)
	if err != nil {
		metrics.NutritionFetches.WithLabelValues("error").Inc()
		h.logger.Warn("nutrition page unreadable", map[string]interface{}{
			"item":  item.Name,
			"error": err,
		})
		return &Output{}, nil
	}
	if !found {
		metrics.NutritionFetches.WithLabelValues("empty").Inc()
		h.logger.Debug("no nutrition data on page", map[string]interface{}{"item": item.Name})
		return &Output{Nutrition: rec}, nil
	}

	metrics.NutritionFetches.WithLabelValues("ok").Inc()
	return &Output{Nutrition: rec, Found: true}, nil
}

// Extract is the record-only form used by the orchestrator's fan-out.
func (h *Handler) Extract(ctx context.Context, item models.MenuItem) models.NutrientRecord {
	out, _ := h.execute(ctx, &Input{Item: item})
	return out.Nutrition
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
