package validation

// AnalyzeRequestSchema describes the body of POST /api/analyze.
var AnalyzeRequestSchema = MustCompile("analyze-request", `{
	"type": "object",
	"properties": {
		"campus":             {"type": "string", "maxLength": 64, "pattern": "^[A-Za-z0-9 _'-]*$"},
		"vegetarian":         {"type": "boolean"},
		"vegan":              {"type": "boolean"},
		"exclude_beef":       {"type": "boolean"},
		"exclude_pork":       {"type": "boolean"},
		"prioritize_protein": {"type": "boolean"}
	},
	"additionalProperties": false
}`)

// ClearCacheSchema describes the body of POST /api/clear-cache.
var ClearCacheSchema = MustCompile("clear-cache-request", `{
	"type": "object",
	"properties": {
		"password": {"type": "string"}
	},
	"required": ["password"]
}`)

// LLMScoresSchema describes the JSON object the LLM scorer must return.
var LLMScoresSchema = MustCompile("llm-scores", `{
	"type": "object",
	"patternProperties": {
		"^(Breakfast|Lunch|Dinner)$": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"food_name": {"type": "string", "minLength": 1},
					"score":     {"type": "number"},
					"reasoning": {"type": "string"}
				},
				"required": ["food_name", "score"]
			}
		}
	}
}`)
