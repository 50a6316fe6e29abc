// internal/workers/analysis/run-analysis/config.go
package runanalysis

import "menu-advisor/internal/common/config"

type Config struct {
	DefaultCampus    string
	NutritionWorkers int
	CacheFallback    bool
}

func LoadConfig(cfg *config.Config) *Config {
	workers := cfg.Upstream.NutritionWorkers
	if workers < 1 {
		workers = 1
	}
	return &Config{
		DefaultCampus:    cfg.Campuses.DefaultKey,
		NutritionWorkers: workers,
		CacheFallback:    cfg.Cache.CacheFallback,
	}
}
