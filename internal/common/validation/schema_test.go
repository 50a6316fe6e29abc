package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeRequestSchema(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantValid bool
		field     string
	}{
		{"empty object", `{}`, true, ""},
		{"full preferences", `{"campus":"altoona-port-sky","vegan":true,"exclude_beef":false,"prioritize_protein":true}`, true, ""},
		{"non boolean flag", `{"vegan":"yes"}`, false, "vegan"},
		{"unknown field", `{"gluten_free":true}`, false, "(root)"},
		{"campus with markup", `{"campus":"<script>"}`, false, "campus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := AnalyzeRequestSchema.ValidateBytes([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid, res.GetErrorMessages())
			if tt.field != "" {
				assert.True(t, res.HasErrors(tt.field), res.GetErrorMessages())
			}
		})
	}
}

func TestAnalyzeRequestSchema_NotJSON(t *testing.T) {
	_, err := AnalyzeRequestSchema.ValidateBytes([]byte(`{not json`))
	assert.Error(t, err)
}

func TestLLMScoresSchema(t *testing.T) {
	valid := map[string]interface{}{
		"Breakfast": []interface{}{
			map[string]interface{}{"food_name": "Oatmeal", "score": 82, "reasoning": "fiber"},
		},
		"Lunch": []interface{}{},
	}
	res, err := LLMScoresSchema.ValidateValue(valid)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	missingScore := map[string]interface{}{
		"Dinner": []interface{}{map[string]interface{}{"food_name": "Salmon"}},
	}
	res, err = LLMScoresSchema.ValidateValue(missingScore)
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile("broken", `{"type": 12}`)
	assert.Error(t, err)
}
