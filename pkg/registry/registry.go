// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

var builtin = []CampusProfile{
	{Key: "altoona-port-sky", DisplayName: "Altoona - Port Sky Cafe", SearchTerms: []string{"altoona", "port sky"}},
	{Key: "behrend-brunos", DisplayName: "Behrend - Bruno's", SearchTerms: []string{"behrend", "bruno"}},
	{Key: "behrend-dobbins", DisplayName: "Behrend - Dobbins", SearchTerms: []string{"behrend", "dobbins"}},
	{Key: "berks-tully", DisplayName: "Berks - Tully's", SearchTerms: []string{"berks", "tully"}},
	{Key: "harrisburg-stacks", DisplayName: "Harrisburg - Stacks", SearchTerms: []string{"harrisburg", "stacks"}},
	{Key: "hazleton-highacres", DisplayName: "Hazleton - HighAcres Cafe", SearchTerms: []string{"hazleton"}},
	{Key: "up-east", DisplayName: "University Park - East Food District @ Findlay", SearchTerms: []string{"east", "findlay"}},
	{Key: "up-north", DisplayName: "University Park - North Food District @ Warnock", SearchTerms: []string{"north", "warnock"}},
	{Key: "up-pollock", DisplayName: "University Park - Pollock Dining Commons", SearchTerms: []string{"pollock"}},
	{Key: "up-south", DisplayName: "University Park - South Food District @ Redifer", SearchTerms: []string{"south", "redifer"}},
	{Key: "up-west", DisplayName: "University Park - West Food District @ Waring", SearchTerms: []string{"west", "waring"}},
}

// Registry is an immutable lookup of campus profiles.
type Registry struct {
	profiles map[string]CampusProfile
}

// Default returns the built-in campus table.
func Default() *Registry {
	return newRegistry(builtin)
}

// LoadRegistry reads a JSON profile file and layers it over the built-in
// table. Entries with the same key replace the built-in ones.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg CampusRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse campus registry %s: %w", path, err)
	}
	for _, p := range reg.Campuses {
		if strings.TrimSpace(p.Key) == "" || len(p.SearchTerms) == 0 {
			return nil, fmt.Errorf("campus registry %s: profile needs a key and search terms", path)
		}
	}
	all := append(append([]CampusProfile{}, builtin...), reg.Campuses...)
	return newRegistry(all), nil
}

func newRegistry(profiles []CampusProfile) *Registry {
	r := &Registry{profiles: make(map[string]CampusProfile, len(profiles))}
	for _, p := range profiles {
		terms := make([]string, 0, len(p.SearchTerms))
		for _, t := range p.SearchTerms {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				terms = append(terms, t)
			}
		}
		p.Key = strings.ToLower(strings.TrimSpace(p.Key))
		p.SearchTerms = terms
		r.profiles[p.Key] = p
	}
	return r
}

// Terms returns the lower-cased search terms for key. An unknown key is its
// own single search term.
func (r *Registry) Terms(key string) []string {
	key = strings.ToLower(strings.TrimSpace(key))
	if p, ok := r.profiles[key]; ok {
		out := make([]string, len(p.SearchTerms))
		copy(out, p.SearchTerms)
		return out
	}
	return []string{key}
}

func (r *Registry) Get(key string) (CampusProfile, bool) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(key))]
	return p, ok
}

// Keys lists the known campus keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.profiles))
	for k := range r.profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
