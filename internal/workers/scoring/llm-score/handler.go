// internal/workers/scoring/llm-score/handler.go
package llmscore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"

	apperrors "menu-advisor/internal/common/errors"
	commonhttp "menu-advisor/internal/common/http"
	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/common/metrics"
	"menu-advisor/internal/common/validation"
	"menu-advisor/internal/models"
	localscore "menu-advisor/internal/workers/scoring/local-score"
)

const (
	TaskType = "llm-score"
)

var (
	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

	// ErrMalformed marks model output that could not be used. It is never retried.
	ErrMalformed = errors.New("malformed model output")
)

// Poster is the part of the HTTP client this worker needs.
type Poster interface {
	PostJSON(ctx context.Context, url string, payload []byte, headers map[string]string) ([]byte, error)
}

// LocalScorer scores a menu without the LLM.
type LocalScorer interface {
	Execute(ctx context.Context, input *localscore.Input) (*localscore.Output, error)
}

type Handler struct {
	config *Config
	poster Poster
	local  LocalScorer
	logger logger.Logger
}

func NewHandler(config *Config, poster Poster, local LocalScorer, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		poster: poster,
		local:  local,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
			"model":    config.Model,
		}),
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if h.config.APIKey == "" {
		return h.fallback(ctx, input, "disabled", nil)
	}

	policy := h.config.Retry
	if !h.config.Required {
		policy.MaxAttempts = 1
	}

	var scored models.ScoredMenu
	err := commonhttp.RetryWithBackoff(ctx, policy, h.logger, "llm scoring", func(ctx context.Context) error {
		var callErr error
		scored, callErr = h.score(ctx, input)
		return callErr
	})
	if err == nil {
		out := &Output{Scored: scored, Scorer: models.ScorerLLM}
		h.fillMissingMeals(ctx, input, out)
		return out, nil
	}

	stdErr := apperrors.NewLLMUnavailableError(err)
	if errors.Is(err, ErrMalformed) {
		stdErr = apperrors.NewLLMMalformedError(err)
	}
	if h.config.Required {
		return nil, stdErr
	}
	return h.fallback(ctx, input, fallbackReason(err), stdErr)
}

// score makes one generateContent call and maps the answer back onto the menu.
func (h *Handler) score(ctx context.Context, input *Input) (models.ScoredMenu, error) {
	prompt, err := BuildPrompt(input.Menu, input.Preferences, h.config.TopN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	payload, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{Temperature: 0},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	callCtx := ctx
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	body, err := h.poster.PostJSON(callCtx, h.config.Endpoint(), payload, map[string]string{
		"x-goog-api-key": h.config.APIKey,
	})
	if err != nil {
		return nil, err
	}

	entries, err := ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Reconcile(entries, input.Menu), nil
}

// ParseResponse extracts the per-meal score lists from a generateContent
// response. The model's text may wrap the JSON object in prose or fences.
func ParseResponse(body []byte) (map[string][]scoredEntry, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("response has no candidates")
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	raw := jsonObjectRe.FindString(text.String())
	if raw == "" {
		return nil, errors.New("no JSON object in model output")
	}

	result, err := validation.LLMScoresSchema.ValidateBytes([]byte(raw))
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, fmt.Errorf("model output failed validation: %s", strings.Join(result.GetErrorMessages(), "; "))
	}

	var entries map[string][]scoredEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	return entries, nil
}

// Reconcile keeps only entries naming an item on the menu, clamps scores to
// [0,100] and takes URL and nutrition from the scraped item.
func Reconcile(entries map[string][]scoredEntry, menu models.EnrichedMenu) models.ScoredMenu {
	out := make(models.ScoredMenu, len(menu))
	for meal, candidates := range menu {
		exact := make(map[string]models.Candidate, len(candidates))
		folded := make(map[string]models.Candidate, len(candidates))
		for _, c := range candidates {
			exact[c.Name] = c
			folded[strings.ToLower(strings.TrimSpace(c.Name))] = c
		}

		seen := make(map[string]bool)
		scored := []models.ScoredItem{}
		for _, e := range entries[meal] {
			c, ok := exact[e.FoodName]
			if !ok {
				c, ok = folded[strings.ToLower(strings.TrimSpace(e.FoodName))]
			}
			if !ok || seen[c.Name] {
				continue
			}
			seen[c.Name] = true

			item := models.ScoredItem{
				Name:      c.Name,
				Score:     clampScore(e.Score),
				Reasoning: strings.TrimSpace(e.Reasoning),
				URL:       c.DetailURL,
			}
			if item.URL == "" {
				item.URL = models.NoDetailURL
			}
			if c.Nutrition.HasData() {
				item.Nutrition = c.Nutrition
			}
			scored = append(scored, item)
		}
		out[meal] = scored
	}
	return out
}

// fillMissingMeals scores locally any meal that has items but got no usable
// entries from the model. Items left out of a meal the model did score stay
// out: the prompt only asks for the top picks.
func (h *Handler) fillMissingMeals(ctx context.Context, input *Input, out *Output) {
	missing := make(models.EnrichedMenu)
	for meal, candidates := range input.Menu {
		if len(candidates) > 0 && len(out.Scored[meal]) == 0 {
			missing[meal] = candidates
		}
	}
	if len(missing) == 0 {
		return
	}

	local, err := h.local.Execute(ctx, &localscore.Input{Menu: missing, Preferences: input.Preferences})
	if err != nil {
		h.logger.Warn("local scoring of unanswered meals failed", map[string]interface{}{
			"meals": len(missing),
			"error": err,
		})
		return
	}
	for meal, items := range local.Scored {
		out.Scored[meal] = items
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s scored locally: model returned no matching items", meal))
	}
	metrics.LLMFallbacks.WithLabelValues("partial").Inc()
}

func (h *Handler) fallback(ctx context.Context, input *Input, reason string, cause error) (*Output, error) {
	if cause != nil {
		metrics.LLMFallbacks.WithLabelValues(reason).Inc()
		h.logger.Warn("llm scoring failed, falling back to local scoring", map[string]interface{}{
			"reason": reason,
			"error":  cause,
		})
	}

	local, err := h.local.Execute(ctx, &localscore.Input{Menu: input.Menu, Preferences: input.Preferences})
	if err != nil {
		return nil, err
	}
	out := &Output{Scored: local.Scored, Scorer: models.ScorerLocal}
	if cause != nil {
		out.Warnings = []string{"LLM scoring unavailable, used local scoring"}
	}
	return out, nil
}

// IsTransient matches failures worth another LLM attempt: network errors,
// 5xx, 429 and the overload phrases the API puts in error bodies.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformed) {
		return false
	}
	var statusErr *commonhttp.StatusError
	if !errors.As(err, &statusErr) {
		return true
	}
	if statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	body := strings.ToLower(statusErr.Body)
	for _, sig := range []string{"overloaded", "rate limit", "quota", "unavailable"} {
		if strings.Contains(body, sig) {
			return true
		}
	}
	return false
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unavailable"
	}
}

func clampScore(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
