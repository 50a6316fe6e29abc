// internal/workers/analysis/run-analysis/wire.go
package runanalysis

import (
	"menu-advisor/internal/common/cache"
	"menu-advisor/internal/common/config"
	commonhttp "menu-advisor/internal/common/http"
	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/common/observability"
	preferencerank "menu-advisor/internal/workers/ranking/preference-rank"
	formdiscovery "menu-advisor/internal/workers/scrape/form-discovery"
	mealpages "menu-advisor/internal/workers/scrape/meal-pages"
	menuresolve "menu-advisor/internal/workers/scrape/menu-resolve"
	nutritionextract "menu-advisor/internal/workers/scrape/nutrition-extract"
	llmscore "menu-advisor/internal/workers/scoring/llm-score"
	localscore "menu-advisor/internal/workers/scoring/local-score"
	"menu-advisor/pkg/registry"
)

// Build wires the full pipeline from configuration. sessions creates the
// menu site client for one run; the LLM gets its own client with the LLM
// timeout.
func Build(cfg *config.Config, sessions func() *commonhttp.Client, campuses *registry.Registry, store cache.Cache, telemetry *observability.Observability, log logger.Logger) *Handler {
	up := cfg.Upstream
	retryDelay := config.GetDuration(up.RetryDelay)
	local := localscore.NewHandler(log)

	formsCfg := formdiscovery.LoadConfig(up.MenuURL, up.MaxRetries, retryDelay)
	mealsCfg := mealpages.LoadConfig(up.MenuURL, config.GetDuration(up.MealDelay), up.MaxRetries, retryDelay)
	nutritionCfg := nutritionextract.LoadConfig(config.GetDuration(up.RequestTimeout))

	deps := Dependencies{
		NewSession: func() ScrapeStages {
			client := sessions()
			stages := ScrapeStages{
				Forms: formdiscovery.NewHandler(formsCfg, client, log),
				Meals: mealpages.NewHandler(mealsCfg, client, log),
			}
			if up.ExtractNutrition {
				stages.Nutrition = nutritionextract.NewHandler(nutritionCfg, client, log)
			}
			return stages
		},
		Resolver:  menuresolve.NewHandler(menuresolve.LoadConfig(campuses), log),
		Local:     local,
		Ranker:    preferencerank.NewHandler(preferencerank.LoadConfig(), log),
		Cache:     store,
		Telemetry: telemetry,
	}
	if cfg.LLM.Enabled() {
		llmClient := commonhttp.NewClient(config.GetDuration(cfg.LLM.Timeout))
		deps.LLM = llmscore.NewHandler(llmscore.LoadConfig(cfg.LLM), llmClient, local, log)
	}

	return NewHandler(LoadConfig(cfg), deps, log)
}
