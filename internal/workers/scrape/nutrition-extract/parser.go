// internal/workers/scrape/nutrition-extract/parser.go
package nutritionextract

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"menu-advisor/internal/models"

	"github.com/PuerkitoBio/goquery"
)

type field struct {
	key  string
	re   *regexp.Regexp
	unit string
	set  func(*models.NutrientRecord, float64)
}

// amountPattern matches "<label> <amount><unit> <dv>%". Groups: amount, a
// "%" directly after the amount (the value is a daily value only), unit, dv.
func amountPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + label + `)\s*:?\s*(\d+(?:\.\d+)?)\s*(?:(%)|(mcg|mg|g)\b)?(?:\s*(\d+(?:\.\d+)?)\s*%)?`)
}

// includesPattern matches "Includes <amount><unit> <label> <dv>%". Groups:
// amount, unit, dv.
func includesPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\bincl(?:udes|\.)?\s+(\d+(?:\.\d+)?)\s*(mcg|mg|g)\s+(?:` + label + `)\b(?:\s*(\d+(?:\.\d+)?)\s*%)?`)
}

// Order matters: added sugars are matched and masked before sugars.
var fields = []field{
	{"total_fat_g", amountPattern(`total\s+fat`), "g", func(n *models.NutrientRecord, v float64) { n.TotalFat = v }},
	{"saturated_fat_g", amountPattern(`sat(?:urated)?\.?\s+fat`), "g", func(n *models.NutrientRecord, v float64) { n.SaturatedFat = v }},
	{"trans_fat_g", amountPattern(`trans\s+fat`), "g", func(n *models.NutrientRecord, v float64) { n.TransFat = v }},
	{"cholesterol_mg", amountPattern(`cholesterol`), "mg", func(n *models.NutrientRecord, v float64) { n.Cholesterol = v }},
	{"sodium_mg", amountPattern(`sodium`), "mg", func(n *models.NutrientRecord, v float64) { n.Sodium = v }},
	{"total_carb_g", amountPattern(`total\s+carb(?:ohydrate)?s?\.?`), "g", func(n *models.NutrientRecord, v float64) { n.TotalCarbs = v }},
	{"dietary_fiber_g", amountPattern(`(?:dietary\s+)?fib(?:er|re)`), "g", func(n *models.NutrientRecord, v float64) { n.Fiber = v }},
	{"added_sugars_g", amountPattern(`(?:incl\.?\s+)?added\s+sugars?`), "g", func(n *models.NutrientRecord, v float64) { n.AddedSugars = v }},
	{"sugars_g", amountPattern(`(?:total\s+)?sugars?`), "g", func(n *models.NutrientRecord, v float64) { n.Sugars = v }},
	{"protein_g", amountPattern(`protein`), "g", func(n *models.NutrientRecord, v float64) { n.Protein = v }},
	{"vitamin_d_mcg", amountPattern(`vitamin\s+d`), "mcg", func(n *models.NutrientRecord, v float64) { n.VitaminD = v }},
	{"calcium_mg", amountPattern(`calcium`), "mg", func(n *models.NutrientRecord, v float64) { n.Calcium = v }},
	{"iron_mg", amountPattern(`iron`), "mg", func(n *models.NutrientRecord, v float64) { n.Iron = v }},
	{"potassium_mg", amountPattern(`potassium`), "mg", func(n *models.NutrientRecord, v float64) { n.Potassium = v }},
}

// amountFirst holds labels that may be printed after the amount, keyed by field.
var amountFirst = map[string]*regexp.Regexp{
	"added_sugars_g": includesPattern(`added\s+sugars?`),
}

var (
	caloriesRe    = regexp.MustCompile(`(?i)\bcalories\s*:?\s*(\d+(?:\.\d+)?)`)
	servingSizeRe = regexp.MustCompile(`(?i)serving\s+size\s*:?\s*([^\n\r]+)`)
	ingredientsRe = regexp.MustCompile(`(?is)ingredients\s*:\s*(.+?)(?:allergens\s*:|$)`)
	headingTags   = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true}
	breakingTags  = map[string]bool{
		"br": true, "p": true, "div": true, "li": true, "dt": true, "dd": true,
		"table": true, "tr": true, "td": true, "th": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	}
)

// ParsePage extracts a nutrient record from a label page. found is false
// when neither a nutrition table nor any recognizable nutrient text exists.
func ParsePage(body []byte, maxIngredients int) (rec models.NutrientRecord, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.NutrientRecord{}, false, fmt.Errorf("parse nutrition page: %w", err)
	}

	scope := findNutritionTable(doc)
	if scope == nil {
		scope = doc.Find("body")
	}
	text := blockText(scope)
	found = parseNutrientText(normalizeSpace(text), &rec)

	rec.Ingredients = truncateRunes(extractIngredients(doc), maxIngredients)
	return rec, found, nil
}

func findNutritionTable(doc *goquery.Document) *goquery.Selection {
	if t := doc.Find(`table[class*="nutrition"], table[id*="nutrition"], .nutrition-facts table`).First(); t.Length() > 0 {
		return t
	}
	var match *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		lower := strings.ToLower(t.Text())
		if strings.Contains(lower, "calories") && (strings.Contains(lower, "protein") || strings.Contains(lower, "total fat")) {
			match = t
			return false
		}
		return true
	})
	return match
}

func parseNutrientText(text string, rec *models.NutrientRecord) bool {
	found := false

	if m := caloriesRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			rec.Calories = int(v + 0.5)
			found = true
		}
	}
	if m := servingSizeRe.FindStringSubmatch(text); m != nil {
		size := m[1]
		if i := strings.Index(strings.ToLower(size), "calories"); i >= 0 {
			size = size[:i]
		}
		rec.ServingSize = strings.TrimSpace(size)
	}

	for _, f := range fields {
		r, ok := f.read(text)
		if !ok {
			continue
		}
		// Blank the match so "Added Sugar 0g" is not read again as sugars.
		text = text[:r.start] + strings.Repeat(" ", r.end-r.start) + text[r.end:]

		amount, err := strconv.ParseFloat(r.amount, 64)
		if err != nil {
			continue
		}
		found = true
		if r.percentOnly {
			setDailyValue(rec, f.key, amount)
			continue
		}
		f.set(rec, convertUnit(amount, strings.ToLower(r.unit), f.unit))
		if dv, err := strconv.ParseFloat(r.dv, 64); err == nil {
			setDailyValue(rec, f.key, dv)
		}
	}
	return found
}

type reading struct {
	amount, unit, dv string
	percentOnly      bool
	start, end       int
}

// read finds the first occurrence of f in text, preferring the amount-first
// form when the field has one.
func (f field) read(text string) (reading, bool) {
	if re, ok := amountFirst[f.key]; ok {
		if loc := re.FindStringSubmatchIndex(text); loc != nil {
			return reading{
				amount: group(text, loc, 1),
				unit:   group(text, loc, 2),
				dv:     group(text, loc, 3),
				start:  loc[0],
				end:    loc[1],
			}, true
		}
	}
	loc := f.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return reading{}, false
	}
	return reading{
		amount:      group(text, loc, 1),
		percentOnly: loc[4] >= 0,
		unit:        group(text, loc, 3),
		dv:          group(text, loc, 4),
		start:       loc[0],
		end:         loc[1],
	}, true
}

func group(text string, loc []int, n int) string {
	if loc[2*n] < 0 {
		return ""
	}
	return text[loc[2*n]:loc[2*n+1]]
}

func setDailyValue(rec *models.NutrientRecord, key string, dv float64) {
	if rec.DailyValues == nil {
		rec.DailyValues = make(map[string]float64)
	}
	rec.DailyValues[key] = dv
}

// convertUnit converts amount from unit to want. A missing unit is taken as want.
func convertUnit(amount float64, unit, want string) float64 {
	scale := map[string]float64{"g": 1, "mg": 1e-3, "mcg": 1e-6}
	from, ok := scale[unit]
	if !ok {
		return amount
	}
	return amount * from / scale[want]
}

// extractIngredients reads the text after an "Ingredients:" label up to the
// next heading or "Allergens:" label.
func extractIngredients(doc *goquery.Document) string {
	var out string
	doc.Find("b, strong, span, dt, label, h3, h4, h5").EachWithBreak(func(_ int, label *goquery.Selection) bool {
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(label.Text())), "ingredients") {
			return true
		}
		var sb strings.Builder
		started := false
		label.Parent().Contents().EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if !started {
				started = node.Get(0) == label.Get(0)
				return true
			}
			name := goquery.NodeName(node)
			nodeText := strings.TrimSpace(node.Text())
			if headingTags[name] || strings.HasPrefix(strings.ToLower(nodeText), "allergens") {
				return false
			}
			sb.WriteString(node.Text())
			return true
		})
		out = normalizeSpace(sb.String())
		return out == ""
	})
	if out != "" {
		return out
	}

	if m := ingredientsRe.FindStringSubmatch(blockText(doc.Find("body"))); m != nil {
		return normalizeSpace(m[1])
	}
	return ""
}

// blockText is Selection.Text with a line break around block and table
// elements, so adjacent cells never run together.
func blockText(sel *goquery.Selection) string {
	var sb strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			name := goquery.NodeName(c)
			switch {
			case name == "#text":
				sb.WriteString(c.Text())
			case name == "script" || name == "style":
			case breakingTags[name]:
				sb.WriteByte('\n')
				walk(c)
				sb.WriteByte('\n')
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return sb.String()
}

func normalizeSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
