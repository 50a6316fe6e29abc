// Package export writes analysis results out of the service: CSV files and
// an optional search index.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"menu-advisor/internal/models"
)

// Columns is the CSV header row.
var Columns = []string{
	"meal", "rank", "food_name", "score", "reasoning", "url",
	"calories", "protein_g", "total_fat_g", "saturated_fat_g",
	"dietary_fiber_g", "sodium_mg", "added_sugars_g",
}

// WriteCSV writes one row per recommendation, meals in Breakfast, Lunch,
// Dinner order. Nutrition columns stay empty for keyword-scored items.
func WriteCSV(w io.Writer, result *models.AnalysisResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, meal := range models.Meals {
		for i, item := range result.Meals[meal] {
			if err := cw.Write(row(meal, i+1, item)); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func row(meal string, rank int, item models.ScoredItem) []string {
	r := []string{
		meal,
		strconv.Itoa(rank),
		item.Name,
		strconv.Itoa(item.Score),
		item.Reasoning,
		item.URL,
	}
	n := item.Nutrition
	if n == nil {
		return append(r, make([]string, len(Columns)-len(r))...)
	}
	return append(r,
		strconv.Itoa(n.Calories),
		formatFloat(n.Protein),
		formatFloat(n.TotalFat),
		formatFloat(n.SaturatedFat),
		formatFloat(n.Fiber),
		formatFloat(n.Sodium),
		formatFloat(n.AddedSugars),
	)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// FileName names an export after its campus and generation time.
func FileName(result *models.AnalysisResult) string {
	campus := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(result.Campus), "-"), "-")
	if campus == "" {
		campus = "menu"
	}
	return fmt.Sprintf("menu_recommendations_%s_%s.csv", campus, result.GeneratedAt.UTC().Format("20060102_150405"))
}

// WriteFile writes the CSV into dir, creating it if needed, and returns the path.
func WriteFile(dir string, result *models.AnalysisResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(result))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(f, result); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
