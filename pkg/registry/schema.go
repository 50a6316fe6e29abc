// pkg/registry/schema.go
package registry

// CampusRegistry is the on-disk shape of a campus profile file.
type CampusRegistry struct {
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Campuses    []CampusProfile `json:"campuses"`
}

// CampusProfile maps a logical campus key to the terms that identify it in
// the menu form's campus selector.
type CampusProfile struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"displayName"`
	SearchTerms []string `json:"searchTerms"`
}
