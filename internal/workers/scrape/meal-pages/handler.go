// internal/workers/scrape/meal-pages/handler.go
package mealpages

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "menu-advisor/internal/common/errors"
	commonhttp "menu-advisor/internal/common/http"
	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/common/metrics"
	"menu-advisor/internal/models"

	"github.com/PuerkitoBio/goquery"
)

const (
	TaskType = "meal-pages"
)

// Poster is the part of the session client this worker needs.
type Poster interface {
	PostForm(ctx context.Context, url string, form url.Values) ([]byte, error)
}

type Handler struct {
	config *Config
	poster Poster
	logger logger.Logger
}

func NewHandler(config *Config, poster Poster, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		poster: poster,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// execute fetches the meals one after another. A failed meal is recorded as
// empty and never aborts the others.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	base, err := url.Parse(h.config.MenuURL)
	if err != nil {
		return nil, fmt.Errorf("parse menu url: %w", err)
	}

	out := &Output{Menu: make(models.DailyMenu, len(models.Meals))}
	requested := 0
	for _, meal := range models.Meals {
		out.Menu[meal] = []models.MenuItem{}

		mealValue, ok := input.MealValues[meal]
		if !ok || mealValue == "" {
			continue
		}

		if requested > 0 && h.config.MealDelay > 0 {
			if err := sleep(ctx, h.config.MealDelay); err != nil {
				return nil, err
			}
		}
		requested++

		items, err := h.fetchMeal(ctx, base, input, meal, mealValue)
		if err != nil {
			metrics.ScrapeFailures.WithLabelValues("meal").Inc()
			out.FailedMeals = append(out.FailedMeals, meal)
			h.logger.Warn("meal fetch failed, continuing with empty list", map[string]interface{}{
				"meal":  meal,
				"error": err,
			})
			continue
		}
		out.Menu[meal] = items
		h.logger.Debug("meal scraped", map[string]interface{}{"meal": meal, "items": len(items)})
	}

	h.logger.Info("meal pages scraped", map[string]interface{}{
		"items":       out.Menu.ItemCount(),
		"failedMeals": out.FailedMeals,
	})
	return out, nil
}

func (h *Handler) fetchMeal(ctx context.Context, base *url.URL, input *Input, meal, mealValue string) ([]models.MenuItem, error) {
	form := url.Values{
		fieldName(input.Fields, "campus", h.config.CampusField): {input.CampusValue},
		fieldName(input.Fields, "meal", h.config.MealField):     {mealValue},
		fieldName(input.Fields, "date", h.config.DateField):     {input.DateValue},
	}

	var body []byte
	err := commonhttp.RetryWithBackoff(ctx, h.config.Retry, h.logger, "meal fetch "+meal, func(ctx context.Context) error {
		var postErr error
		body, postErr = h.poster.PostForm(ctx, h.config.MenuURL, form)
		return postErr
	})
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("meal", err)
	}
	return ExtractItems(body, base, h.config.Filter)
}

func fieldName(fields map[string]string, kind, fallback string) string {
	if name := fields[kind]; name != "" {
		return name
	}
	return fallback
}

// ExtractItems returns the food links on a meal page in document order.
// Duplicate names keep their first position and the last URL seen.
func ExtractItems(body []byte, base *url.URL, filter FoodFilter) ([]models.MenuItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse meal page: %w", err)
	}

	var items []models.MenuItem
	index := make(map[string]int)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		name := strings.Join(strings.Fields(a.Text()), " ")
		if !filter.IsFoodItem(name) {
			return
		}
		href, _ := a.Attr("href")
		detail := resolveHref(base, href)

		if i, ok := index[name]; ok {
			items[i].DetailURL = detail
			return
		}
		index[name] = len(items)
		items = append(items, models.MenuItem{Name: name, DetailURL: detail})
	})

	if items == nil {
		items = []models.MenuItem{}
	}
	return items, nil
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return models.NoDetailURL
	}
	ref, err := url.Parse(href)
	if err != nil {
		return models.NoDetailURL
	}
	return base.ResolveReference(ref).String()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
