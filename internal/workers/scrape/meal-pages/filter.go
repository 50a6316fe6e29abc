// internal/workers/scrape/meal-pages/filter.go
package mealpages

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FoodFilter separates food item links from navigation and UI links.
type FoodFilter struct {
	minLen     int
	maxLen     int
	substrings []string
	wordRe     *regexp.Regexp
}

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

var (
	defaultSubstrings = []string{
		"select", "menu", "date", "campus", "print", "view", "nutrition",
		"allergen", "dietary filter", "feedback", "contact", "hours",
		"location", "penn state", "altoona", "port sky", "cafe", "station",
		"made to order", "action", "login", "logout", "back to",
		"click here", "privacy", "accessibility", "copyright",
	}
	// Matched as whole words so "Grilled" and "Mayo" survive.
	defaultWords = []string{
		"grill", "deli", "market", "kitchen",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"january", "february", "march", "april", "may", "june", "july", "august",
		"september", "october", "november", "december",
	}
)

// NewFoodFilter builds a filter. substrings reject on containment, words on
// a whole-word match. Both are compared lower-cased.
func NewFoodFilter(minLen, maxLen int, substrings, words []string) FoodFilter {
	f := FoodFilter{minLen: minLen, maxLen: maxLen}
	for _, s := range substrings {
		f.substrings = append(f.substrings, strings.ToLower(s))
	}
	if len(words) > 0 {
		quoted := make([]string, len(words))
		for i, w := range words {
			quoted[i] = regexp.QuoteMeta(strings.ToLower(w))
		}
		f.wordRe = regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	}
	return f
}

func DefaultFoodFilter() FoodFilter {
	return NewFoodFilter(3, 70, defaultSubstrings, defaultWords)
}

// IsFoodItem applies the length, denylist and alphabetic checks.
func (f FoodFilter) IsFoodItem(text string) bool {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < f.minLen || n > f.maxLen {
		return false
	}

	lower := strings.ToLower(text)
	for _, s := range f.substrings {
		if strings.Contains(lower, s) {
			return false
		}
	}
	if f.wordRe != nil && f.wordRe.MatchString(lower) {
		return false
	}
	if yearRe.MatchString(lower) {
		return false
	}

	return strings.IndexFunc(text, unicode.IsLetter) >= 0
}
