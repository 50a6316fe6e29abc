// internal/models/preferences.go
package models

import (
	apperrors "menu-advisor/internal/common/errors"
)

// Preferences are the caller's dietary settings for one analysis.
type Preferences struct {
	Campus            string `json:"campus"`
	Vegetarian        bool   `json:"vegetarian"`
	Vegan             bool   `json:"vegan"`
	ExcludeBeef       bool   `json:"exclude_beef"`
	ExcludePork       bool   `json:"exclude_pork"`
	PrioritizeProtein bool   `json:"prioritize_protein"`
}

// Validate rejects contradictory settings.
func (p Preferences) Validate() error {
	if p.Vegan && p.Vegetarian {
		return apperrors.NewInvalidPreferencesError("Cannot be both vegan and vegetarian")
	}
	return nil
}

// HasDietaryFilter reports whether any hard exclusion applies.
func (p Preferences) HasDietaryFilter() bool {
	return p.Vegetarian || p.Vegan || p.ExcludeBeef || p.ExcludePork
}
