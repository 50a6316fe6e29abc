// internal/workers/scoring/local-score/handler.go
package localscore

import (
	"context"

	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/models"
)

const (
	TaskType = "local-score"
)

type Handler struct {
	logger logger.Logger
}

func NewHandler(log logger.Logger) *Handler {
	return &Handler{
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// execute scores every candidate in menu order. Ordering and filtering are
// left to the ranker.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	out := &Output{Scored: make(models.ScoredMenu, len(input.Menu))}
	prioritize := input.Preferences.PrioritizeProtein

	for meal, candidates := range input.Menu {
		scored := make([]models.ScoredItem, 0, len(candidates))
		for _, c := range candidates {
			score, reason := Score(c.Name, c.Nutrition, prioritize)
			item := models.ScoredItem{
				Name:      c.Name,
				Score:     score,
				Reasoning: reason,
				URL:       c.DetailURL,
			}
			if c.Nutrition.HasData() {
				item.Nutrition = c.Nutrition
			} else {
				out.KeywordScored++
			}
			scored = append(scored, item)
		}
		out.Scored[meal] = scored
	}

	h.logger.Debug("menu scored locally", map[string]interface{}{
		"meals":         len(out.Scored),
		"keywordScored": out.KeywordScored,
	})
	return out, nil
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
