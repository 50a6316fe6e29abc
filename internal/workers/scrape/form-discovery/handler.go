// internal/workers/scrape/form-discovery/handler.go
package formdiscovery

import (
	"bytes"
	"context"
	"fmt"

	apperrors "menu-advisor/internal/common/errors"
	commonhttp "menu-advisor/internal/common/http"
	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/common/metrics"
	"menu-advisor/internal/models"

	"github.com/PuerkitoBio/goquery"
)

const (
	TaskType = "form-discovery"
)

// Fetcher is the part of the session client this worker needs.
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	menuURL := h.config.MenuURL
	if input != nil && input.MenuURL != "" {
		menuURL = input.MenuURL
	}

	var body []byte
	err := commonhttp.RetryWithBackoff(ctx, h.config.Retry, h.logger, "menu form fetch", func(ctx context.Context) error {
		var fetchErr error
		body, fetchErr = h.fetcher.Get(ctx, menuURL)
		return fetchErr
	})
	if err != nil {
		metrics.ScrapeFailures.WithLabelValues("form").Inc()
		return nil, apperrors.NewUpstreamUnavailableError("form", err)
	}

	out, err := h.parse(body)
	if err != nil {
		metrics.ScrapeFailures.WithLabelValues("form").Inc()
		return nil, apperrors.NewUpstreamUnavailableError("form", err)
	}

	h.logger.Info("menu form discovered", map[string]interface{}{
		"campusOptions": out.Options.Campus.Len(),
		"mealOptions":   out.Options.Meal.Len(),
		"dateOptions":   out.Options.Date.Len(),
	})
	return out, nil
}

func (h *Handler) parse(body []byte) (*Output, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse menu form: %w", err)
	}

	out := &Output{Fields: make(map[string]string)}
	out.Options.Campus = h.readSelect(doc, "campus", h.config.CampusFields, out.Fields)
	out.Options.Meal = h.readSelect(doc, "meal", h.config.MealFields, out.Fields)
	out.Options.Date = h.readSelect(doc, "date", h.config.DateFields, out.Fields)
	return out, nil
}

// readSelect collects label->value pairs from the first selector matching one
// of names. An absent field yields an empty set.
func (h *Handler) readSelect(doc *goquery.Document, kind string, names []string, matched map[string]string) models.OptionSet {
	var set models.OptionSet
	for _, name := range names {
		sel := doc.Find(fmt.Sprintf(`select[name=%q], select#%s`, name, name)).First()
		if sel.Length() == 0 {
			continue
		}
		matched[kind] = name
		sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
			value, _ := opt.Attr("value")
			set.Add(opt.Text(), value)
		})
		return set
	}

	h.logger.Warn("form field not found", map[string]interface{}{
		"field":      kind,
		"candidates": names,
	})
	return set
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
