// internal/workers/scrape/form-discovery/models.go
package formdiscovery

import "menu-advisor/internal/models"

type Input struct {
	// MenuURL overrides the configured menu page when set.
	MenuURL string `json:"menuUrl,omitempty"`
}

type Output struct {
	Options models.FormOptions `json:"options"`
	// Fields records which form field name matched each selector.
	Fields map[string]string `json:"fields"`
}
