// internal/workers/scrape/menu-resolve/handler.go
package menuresolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "menu-advisor/internal/common/errors"
	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/models"
)

const (
	TaskType = "menu-resolve"
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
	terms := h.config.Campuses.Terms(input.CampusKey)
	campus, ok := ResolveCampus(input.Options.Campus, terms)
	if !ok {
		h.logger.Warn("campus not found in form", map[string]interface{}{
			"campusKey": input.CampusKey,
			"terms":     terms,
		})
		return nil, apperrors.NewCampusNotFoundError(input.CampusKey)
	}

	out := &Output{
		CampusValue: campus.Value,
		CampusLabel: campus.Label,
		MealValues:  make(map[string]string, len(models.Meals)),
	}

	date, exact, err := ResolveDate(input.Options.Date, h.config.Now())
	if err != nil {
		h.logger.Warn("no menu dates offered", map[string]interface{}{"campusKey": input.CampusKey})
		return nil, err
	}
	out.DateValue = date.Value
	out.DateLabel = date.Label
	if !exact {
		msg := fmt.Sprintf("today's menu (%s) not found, using first available date: %s", TodayLabel(h.config.Now()), date.Label)
		out.Warnings = append(out.Warnings, msg)
		h.logger.Warn("today's menu not found, using first available date", map[string]interface{}{
			"today":    TodayLabel(h.config.Now()),
			"fallback": date.Label,
		})
	}

	for _, meal := range models.Meals {
		if v, ok := input.Options.Meal.Get(meal); ok {
			out.MealValues[meal] = v
			continue
		}
		out.Warnings = append(out.Warnings, fmt.Sprintf("meal %s not offered by the form", meal))
		h.logger.Warn("meal not offered by the form, skipping", map[string]interface{}{"meal": meal})
	}

	h.logger.Info("menu selection resolved", map[string]interface{}{
		"campus": campus.Label,
		"date":   date.Label,
		"meals":  len(out.MealValues),
	})
	return out, nil
}

// ResolveCampus returns the first option whose label contains all terms,
// falling back to the first containing any term. Options are scanned in
// document order.
func ResolveCampus(options models.OptionSet, terms []string) (models.Option, bool) {
	if len(terms) == 0 {
		return models.Option{}, false
	}
	opts := options.Options()
	for _, o := range opts {
		if containsAll(o.Label, terms) {
			return o, true
		}
	}
	for _, o := range opts {
		if containsAny(o.Label, terms) {
			return o, true
		}
	}
	return models.Option{}, false
}

// TodayLabel formats now the way the menu site labels dates, e.g. "sunday, october 18".
func TodayLabel(now time.Time) string {
	return strings.ToLower(now.Format("Monday, January 02"))
}

// ResolveDate picks today's option. When today is not offered the first
// option is returned with exact=false. An empty set is a DATE_NOT_FOUND error.
func ResolveDate(options models.OptionSet, now time.Time) (opt models.Option, exact bool, err error) {
	candidates := []string{
		TodayLabel(now),
		strings.ToLower(now.Format("Monday, January 2")),
	}
	for _, c := range candidates {
		if v, ok := options.Get(c); ok {
			return models.Option{Label: c, Value: v}, true, nil
		}
	}

	first, ok := options.First()
	if !ok {
		return models.Option{}, false, apperrors.NewDateNotFoundError(candidates[0])
	}
	return first, false, nil
}

func containsAll(label string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(label, t) {
			return false
		}
	}
	return true
}

func containsAny(label string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(label, t) {
			return true
		}
	}
	return false
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
