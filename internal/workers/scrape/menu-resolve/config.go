// internal/workers/scrape/menu-resolve/config.go
package menuresolve

import (
	"time"

	"menu-advisor/pkg/registry"
)

type Config struct {
	Campuses *registry.Registry
	// Now is the clock used to pick today's menu.
	Now func() time.Time
}

func LoadConfig(campuses *registry.Registry) *Config {
	if campuses == nil {
		campuses = registry.Default()
	}
	return &Config{
		Campuses: campuses,
		Now:      time.Now,
	}
}
