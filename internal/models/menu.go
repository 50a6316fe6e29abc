// internal/models/menu.go
package models

import (
	"encoding/json"
	"strings"
)

// Meal names in serving order.
const (
	MealBreakfast = "Breakfast"
	MealLunch     = "Lunch"
	MealDinner    = "Dinner"
)

var Meals = []string{MealBreakfast, MealLunch, MealDinner}

// NoDetailURL marks a menu item without a nutrition page.
const NoDetailURL = "#"

// Option is one <option> of a form selector. Label is lower-cased and trimmed.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// OptionSet is an ordered label->value mapping. Iteration follows document
// order; a repeated label keeps its first position and takes the last value.
// The zero value is ready to use.
type OptionSet struct {
	options []Option
	index   map[string]int
}

func NewOptionSet(opts ...Option) OptionSet {
	var s OptionSet
	for _, o := range opts {
		s.Add(o.Label, o.Value)
	}
	return s
}

// Add normalizes label and stores the pair. Empty labels or values are ignored.
func (s *OptionSet) Add(label, value string) {
	label = strings.ToLower(strings.TrimSpace(label))
	value = strings.TrimSpace(value)
	if label == "" || value == "" {
		return
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[label]; ok {
		s.options[i].Value = value
		return
	}
	s.index[label] = len(s.options)
	s.options = append(s.options, Option{Label: label, Value: value})
}

func (s OptionSet) Get(label string) (string, bool) {
	i, ok := s.index[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return "", false
	}
	return s.options[i].Value, true
}

func (s OptionSet) Len() int { return len(s.options) }

// Options returns a copy in document order.
func (s OptionSet) Options() []Option {
	out := make([]Option, len(s.options))
	copy(out, s.options)
	return out
}

func (s OptionSet) First() (Option, bool) {
	if len(s.options) == 0 {
		return Option{}, false
	}
	return s.options[0], true
}

func (s OptionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Options())
}

func (s *OptionSet) UnmarshalJSON(data []byte) error {
	var opts []Option
	if err := json.Unmarshal(data, &opts); err != nil {
		return err
	}
	*s = NewOptionSet(opts...)
	return nil
}

// FormOptions is the selector state discovered on the menu page. Values are
// session tokens and only valid within the scrape that produced them.
type FormOptions struct {
	Campus OptionSet `json:"campus"`
	Meal   OptionSet `json:"meal"`
	Date   OptionSet `json:"date"`
}

// MenuItem is a food entry found on a meal page.
type MenuItem struct {
	Name      string `json:"name"`
	DetailURL string `json:"url"`
}

// HasDetail reports whether the item links to a nutrition page.
func (m MenuItem) HasDetail() bool {
	return m.DetailURL != "" && m.DetailURL != NoDetailURL
}

// DailyMenu maps meal name to the items served.
type DailyMenu map[string][]MenuItem

// ItemCount is the total number of items across meals.
func (d DailyMenu) ItemCount() int {
	n := 0
	for _, items := range d {
		n += len(items)
	}
	return n
}
