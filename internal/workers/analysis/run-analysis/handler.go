// internal/workers/analysis/run-analysis/handler.go
package runanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"menu-advisor/internal/common/cache"
	apperrors "menu-advisor/internal/common/errors"
	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/common/metrics"
	"menu-advisor/internal/common/observability"
	"menu-advisor/internal/models"
	preferencerank "menu-advisor/internal/workers/ranking/preference-rank"
	formdiscovery "menu-advisor/internal/workers/scrape/form-discovery"
	mealpages "menu-advisor/internal/workers/scrape/meal-pages"
	menuresolve "menu-advisor/internal/workers/scrape/menu-resolve"
	llmscore "menu-advisor/internal/workers/scoring/llm-score"
	localscore "menu-advisor/internal/workers/scoring/local-score"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "run-analysis"
)

type FormDiscoverer interface {
	Execute(ctx context.Context, input *formdiscovery.Input) (*formdiscovery.Output, error)
}

type MenuResolver interface {
	Execute(ctx context.Context, input *menuresolve.Input) (*menuresolve.Output, error)
}

type MealScraper interface {
	Execute(ctx context.Context, input *mealpages.Input) (*mealpages.Output, error)
}

type NutritionExtractor interface {
	Extract(ctx context.Context, item models.MenuItem) models.NutrientRecord
}

type LocalScorer interface {
	Execute(ctx context.Context, input *localscore.Input) (*localscore.Output, error)
}

type LLMScorer interface {
	Execute(ctx context.Context, input *llmscore.Input) (*llmscore.Output, error)
}

type Ranker interface {
	Execute(ctx context.Context, input *preferencerank.Input) (*preferencerank.Output, error)
}

// ScrapeStages are the workers that talk to the menu site within one
// upstream session. Nutrition is optional.
type ScrapeStages struct {
	Forms     FormDiscoverer
	Meals     MealScraper
	Nutrition NutritionExtractor
}

// Dependencies are the pipeline stages. NewSession, when set, builds fresh
// scrape stages for every run; otherwise Forms, Meals and Nutrition are used
// as they are. LLM is optional and Cache defaults to cache.NopCache.
type Dependencies struct {
	NewSession func() ScrapeStages
	Forms      FormDiscoverer
	Resolver   MenuResolver
	Meals      MealScraper
	Nutrition  NutritionExtractor
	Local      LocalScorer
	LLM        LLMScorer
	Ranker     Ranker
	Cache      cache.Cache
	Telemetry  *observability.Observability
	Now        func() time.Time
	NewID      func() string
}

type Handler struct {
	config *Config
	deps   Dependencies
	logger logger.Logger
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) *Handler {
	if deps.Cache == nil {
		deps.Cache = cache.NopCache{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.New().String() }
	}
	return &Handler{
		config: config,
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// scrapeResult is the live menu plus what the resolver picked.
type scrapeResult struct {
	menu     models.DailyMenu
	date     string
	warnings []string
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := h.deps.Now()
	prefs := input.Preferences
	if err := prefs.Validate(); err != nil {
		metrics.AnalysisFailures.WithLabelValues(string(apperrors.ErrCodeInvalidPreferences)).Inc()
		return nil, err
	}
	if prefs.Campus == "" {
		prefs.Campus = h.config.DefaultCampus
	}

	metrics.ActiveAnalyses.Inc()
	defer metrics.ActiveAnalyses.Dec()

	ctx, finish := h.stage(ctx, "analysis.run", attribute.String("campus", prefs.Campus))
	status := "error"
	defer func() { finish(status) }()

	key := CacheKey(prefs.Campus, prefs, start.Format("2006-01-02"))
	if !input.SkipCache {
		if cached, ok := h.lookup(ctx, key); ok {
			status = "cached"
			return &Output{Result: cached, Cached: true}, nil
		}
	}

	result := &models.AnalysisResult{
		RunID:       h.deps.NewID(),
		Campus:      prefs.Campus,
		Source:      models.SourceLive,
		Scorer:      models.ScorerLocal,
		GeneratedAt: start.UTC(),
		Preferences: prefs,
	}

	stages := h.session()
	scraped, err := h.scrape(ctx, stages, prefs.Campus)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	menu := scraped.menu
	if err != nil || menu.ItemCount() == 0 {
		reason := "no menu items found on the menu site"
		if err != nil {
			reason = apperrors.Normalize(err).Message
		}
		h.logger.Warn("using fallback menu", map[string]interface{}{
			"campus": prefs.Campus,
			"reason": reason,
			"error":  err,
		})
		result.Source = models.SourceFallback
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s; showing sample menu", reason))
		menu = FallbackMenu()
	} else {
		result.Date = scraped.date
		result.Warnings = append(result.Warnings, scraped.warnings...)
	}

	enriched := models.Enrich(menu)
	if result.Source == models.SourceLive && stages.Nutrition != nil {
		h.enrich(ctx, stages.Nutrition, enriched)
	}

	scored, err := h.score(ctx, enriched, prefs, result)
	if err != nil {
		metrics.AnalysisFailures.WithLabelValues(string(apperrors.Normalize(err).Code)).Inc()
		return nil, err
	}

	ranked, err := h.deps.Ranker.Execute(ctx, &preferencerank.Input{Scored: scored, Preferences: prefs})
	if err != nil {
		metrics.AnalysisFailures.WithLabelValues(string(apperrors.ErrCodeInternal)).Inc()
		return nil, apperrors.NewInternalError(err)
	}
	result.Meals = ranked.Recommendations
	for _, meal := range models.Meals {
		if result.Meals[meal] == nil {
			result.Meals[meal] = []models.ScoredItem{}
		}
	}

	if result.Source == models.SourceLive || h.config.CacheFallback {
		h.store(ctx, key, result)
	}

	duration := h.deps.Now().Sub(start)
	metrics.AnalysisRuns.WithLabelValues(result.Source, result.Scorer).Inc()
	metrics.AnalysisDuration.WithLabelValues(result.Source).Observe(duration.Seconds())
	h.logger.Info("analysis completed", map[string]interface{}{
		"runId":    result.RunID,
		"campus":   result.Campus,
		"source":   result.Source,
		"scorer":   result.Scorer,
		"excluded": ranked.Excluded,
		"duration": duration.String(),
	})
	status = result.Source
	return &Output{Result: result}, nil
}

// session returns the scrape stages for one run.
func (h *Handler) session() ScrapeStages {
	if h.deps.NewSession != nil {
		return h.deps.NewSession()
	}
	return ScrapeStages{Forms: h.deps.Forms, Meals: h.deps.Meals, Nutrition: h.deps.Nutrition}
}

// scrape runs form discovery, resolution and the meal pages.
func (h *Handler) scrape(ctx context.Context, stages ScrapeStages, campusKey string) (scrapeResult, error) {
	var res scrapeResult

	stageCtx, done := h.stage(ctx, "scrape.form")
	form, err := stages.Forms.Execute(stageCtx, &formdiscovery.Input{})
	done(statusOf(err))
	if err != nil {
		return res, err
	}

	sel, err := h.deps.Resolver.Execute(ctx, &menuresolve.Input{Options: form.Options, CampusKey: campusKey})
	if err != nil {
		return res, err
	}
	res.date = sel.DateLabel
	res.warnings = append(res.warnings, sel.Warnings...)

	stageCtx, done = h.stage(ctx, "scrape.meals", attribute.String("campus", sel.CampusLabel))
	meals, err := stages.Meals.Execute(stageCtx, &mealpages.Input{
		CampusValue: sel.CampusValue,
		DateValue:   sel.DateValue,
		MealValues:  sel.MealValues,
		Fields:      form.Fields,
	})
	done(statusOf(err))
	if err != nil {
		return res, err
	}
	for _, meal := range meals.FailedMeals {
		res.warnings = append(res.warnings, fmt.Sprintf("%s menu could not be loaded", meal))
	}
	res.menu = meals.Menu
	return res, nil
}

// enrich fetches nutrition for every linked item through a bounded pool.
func (h *Handler) enrich(ctx context.Context, extractor NutritionExtractor, menu models.EnrichedMenu) {
	ctx, done := h.stage(ctx, "scrape.nutrition")
	var fetched, found atomic.Int32

	p := pool.New().WithMaxGoroutines(h.config.NutritionWorkers)
	for _, candidates := range menu {
		for i := range candidates {
			c := &candidates[i]
			if !c.HasDetail() {
				continue
			}
			fetched.Add(1)
			p.Go(func() {
				rec := extractor.Extract(ctx, c.MenuItem)
				if rec.HasData() {
					c.Nutrition = &rec
					found.Add(1)
				}
			})
		}
	}
	p.Wait()
	done("ok")

	h.logger.Info("nutrition enrichment finished", map[string]interface{}{
		"fetched": fetched.Load(),
		"found":   found.Load(),
	})
}

// score uses the LLM scorer when configured, local rules otherwise. The
// fallback menu is always scored locally.
func (h *Handler) score(ctx context.Context, menu models.EnrichedMenu, prefs models.Preferences, result *models.AnalysisResult) (models.ScoredMenu, error) {
	ctx, done := h.stage(ctx, "score")

	if h.deps.LLM != nil && result.Source == models.SourceLive {
		out, err := h.deps.LLM.Execute(ctx, &llmscore.Input{Menu: menu, Preferences: prefs})
		done(statusOf(err))
		if err != nil {
			return nil, err
		}
		result.Scorer = out.Scorer
		result.Warnings = append(result.Warnings, out.Warnings...)
		return out.Scored, nil
	}

	out, err := h.deps.Local.Execute(ctx, &localscore.Input{Menu: menu, Preferences: prefs})
	done(statusOf(err))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	result.Scorer = models.ScorerLocal
	return out.Scored, nil
}

func (h *Handler) lookup(ctx context.Context, key string) (*models.AnalysisResult, bool) {
	raw, ok := h.deps.Cache.Get(ctx, key)
	if !ok {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}
	var res models.AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		metrics.CacheRequests.WithLabelValues("corrupt").Inc()
		h.logger.Warn("ignoring unreadable cache entry", map[string]interface{}{"error": err})
		return nil, false
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	h.logger.Debug("analysis served from cache", map[string]interface{}{"runId": res.RunID})
	return &res, true
}

func (h *Handler) store(ctx context.Context, key string, result *models.AnalysisResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		h.logger.Warn("could not encode analysis for cache", map[string]interface{}{"error": err})
		return
	}
	if err := h.deps.Cache.Put(ctx, key, raw); err != nil {
		h.logger.Warn("could not write analysis cache", map[string]interface{}{"error": err})
	}
}

// stage opens a span and returns a func that ends it and records the stage.
func (h *Handler) stage(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(status string)) {
	tel := h.deps.Telemetry
	if tel == nil {
		return ctx, func(string) {}
	}
	started := time.Now()
	ctx, span := tel.StartSpan(ctx, name, attrs...)
	return ctx, func(status string) {
		span.SetAttributes(attribute.String("status", status))
		span.End()
		tel.RecordStage(ctx, name, time.Since(started), status)
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
