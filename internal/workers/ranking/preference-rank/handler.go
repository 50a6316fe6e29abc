// internal/workers/ranking/preference-rank/handler.go
package preferencerank

import (
	"context"

	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/models"
)

const (
	TaskType = "preference-rank"
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	out := &Output{Recommendations: make(models.ScoredMenu, len(input.Scored))}
	for meal, items := range input.Scored {
		kept := Filter(items, input.Preferences)
		out.Excluded += len(items) - len(kept)
		out.Recommendations[meal] = Rank(kept, h.config.TopN)
	}

	h.logger.Debug("recommendations ranked", map[string]interface{}{
		"excluded": out.Excluded,
	})
	return out, nil
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
