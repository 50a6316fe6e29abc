package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"menu-advisor/internal/common/config"
	apperrors "menu-advisor/internal/common/errors"
	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/models"
	runanalysis "menu-advisor/internal/workers/analysis/run-analysis"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAnalyzer struct {
	mu     sync.Mutex
	inputs []runanalysis.Input
	cached bool
	err    error
}

func (s *stubAnalyzer) Execute(_ context.Context, input *runanalysis.Input) (*runanalysis.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, *input)
	if s.err != nil {
		return nil, s.err
	}
	return &runanalysis.Output{Result: sampleResult(input.Preferences), Cached: s.cached}, nil
}

func (s *stubAnalyzer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

func sampleResult(prefs models.Preferences) *models.AnalysisResult {
	return &models.AnalysisResult{
		RunID:       "run-1",
		Campus:      "altoona-port-sky",
		Date:        "sunday, october 18",
		Source:      models.SourceLive,
		Scorer:      models.ScorerLocal,
		GeneratedAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		Preferences: prefs,
		Meals: models.ScoredMenu{
			"Breakfast": {{Name: "Scrambled Eggs", Score: 70, Reasoning: "High protein (good)", URL: models.NoDetailURL}},
			"Lunch":     {},
			"Dinner":    {},
		},
	}
}

type stubCache struct {
	mu     sync.Mutex
	clears int
	err    error
}

func (c *stubCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (c *stubCache) Put(context.Context, string, []byte) error  { return nil }
func (c *stubCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
	return c.err
}

type stubSink struct {
	mu      sync.Mutex
	indexed []string
}

func (s *stubSink) Index(_ context.Context, r *models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed = append(s.indexed, r.RunID)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Version: "1.0.0"},
		Server: config.ServerConfig{
			RateLimitPerMinute: 100,
			CORSOrigins:        []string{"*"},
		},
		Admin: config.AdminConfig{ClearCacheSecret: "s3cret"},
	}
}

func newRouter(t *testing.T, cfg *config.Config, deps Dependencies) *gin.Engine {
	return NewServer(cfg, deps, logger.NewTestLogger(t)).Router()
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	r := newRouter(t, testConfig(), Dependencies{Analyzer: &stubAnalyzer{}})

	for _, path := range []string{"/health", "/api/health"} {
		t.Run(path, func(t *testing.T) {
			w := do(r, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "healthy", body["status"])
			assert.Equal(t, "1.0.0", body["version"])
			_, err := time.Parse(time.RFC3339, body["timestamp"])
			assert.NoError(t, err)
		})
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name  string
		ready func(context.Context) error
		want  int
	}{
		{"no check", nil, http.StatusOK},
		{"backend up", func(context.Context) error { return nil }, http.StatusOK},
		{"backend down", func(context.Context) error { return errors.New("redis: connection refused") }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(t, testConfig(), Dependencies{Analyzer: &stubAnalyzer{}, Ready: tt.ready})
			assert.Equal(t, tt.want, do(r, http.MethodGet, "/ready", "").Code)
		})
	}
}

func TestAnalyze_Success(t *testing.T) {
	analyzer := &stubAnalyzer{}
	sink := &stubSink{}
	r := newRouter(t, testConfig(), Dependencies{Analyzer: analyzer, Sink: sink})

	w := do(r, http.MethodPost, "/api/analyze", `{"vegetarian": true, "prioritize_protein": true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	var got models.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Meals["Breakfast"], 1)
	assert.Equal(t, "Scrambled Eggs", got.Meals["Breakfast"][0].Name)

	require.Equal(t, 1, analyzer.calls())
	assert.Equal(t, models.Preferences{Vegetarian: true, PrioritizeProtein: true}, analyzer.inputs[0].Preferences)
	assert.Equal(t, []string{"run-1"}, sink.indexed)
}

func TestAnalyze_CachedResultIsNotReindexed(t *testing.T) {
	sink := &stubSink{}
	r := newRouter(t, testConfig(), Dependencies{Analyzer: &stubAnalyzer{cached: true}, Sink: sink})

	w := do(r, http.MethodPost, "/api/analyze", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Empty(t, sink.indexed)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   apperrors.ErrorCode
		wantCalls  int
	}{
		{"malformed json", `{"vegan": tru`, nil, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, 0},
		{"unknown field", `{"gluten_free": true}`, nil, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, 0},
		{"wrong type", `{"vegan": "yes"}`, nil, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, 0},
		{"bad campus", `{"campus": "<script>"}`, nil, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, 0},
		{"contradictory preferences", `{"vegan": true, "vegetarian": true}`,
			apperrors.NewInvalidPreferencesError("Cannot be both vegan and vegetarian"),
			http.StatusBadRequest, apperrors.ErrCodeInvalidPreferences, 1},
		{"llm required and down", `{}`, apperrors.NewLLMUnavailableError(errors.New("503")),
			http.StatusServiceUnavailable, apperrors.ErrCodeLLMUnavailable, 1},
		{"unexpected", `{}`, errors.New("nil map write"),
			http.StatusInternalServerError, apperrors.ErrCodeInternal, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &stubAnalyzer{err: tt.err}
			r := newRouter(t, testConfig(), Dependencies{Analyzer: analyzer})

			w := do(r, http.MethodPost, "/api/analyze", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
			assert.Equal(t, tt.wantCalls, analyzer.calls())
		})
	}
}

func TestAnalyze_InternalErrorHidesDetails(t *testing.T) {
	r := newRouter(t, testConfig(), Dependencies{Analyzer: &stubAnalyzer{err: errors.New("dial tcp 10.0.0.7:5432")}})

	w := do(r, http.MethodPost, "/api/analyze", `{}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An internal server error occurred.", decodeError(t, w).Error)
	assert.NotContains(t, w.Body.String(), "10.0.0.7")
}

func TestAnalyze_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitPerMinute = 2
	analyzer := &stubAnalyzer{}
	r := newRouter(t, cfg, Dependencies{Analyzer: analyzer})

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/analyze", `{}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/analyze", `{}`).Code)

	w := do(r, http.MethodPost, "/api/analyze", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperrors.ErrCodeRateLimited, decodeError(t, w).Code)
	assert.Equal(t, 2, analyzer.calls())

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code, "health is not limited")
}

func TestIPLimiter_SeparateBuckets(t *testing.T) {
	l := newIPLimiter(1)
	assert.True(t, l.Allow("192.0.2.1"))
	assert.False(t, l.Allow("192.0.2.1"))
	assert.True(t, l.Allow("192.0.2.2"))
}

func TestExport(t *testing.T) {
	cfg := testConfig()
	cfg.Export.CSVDir = filepath.Join(t.TempDir(), "exports")
	analyzer := &stubAnalyzer{}
	r := newRouter(t, cfg, Dependencies{Analyzer: analyzer})

	w := do(r, http.MethodGet, "/api/export?campus=altoona-port-sky&vegetarian=true&exclude_pork=1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "menu_recommendations_altoona-port-sky_20261018_090000.csv")

	rows, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Breakfast", "1", "Scrambled Eggs", "70"}, rows[1][:4])

	require.Equal(t, 1, analyzer.calls())
	assert.Equal(t, models.Preferences{Campus: "altoona-port-sky", Vegetarian: true, ExcludePork: true}, analyzer.inputs[0].Preferences)

	files, err := os.ReadDir(cfg.Export.CSVDir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestExport_BadQuery(t *testing.T) {
	analyzer := &stubAnalyzer{}
	r := newRouter(t, testConfig(), Dependencies{Analyzer: analyzer})

	for _, path := range []string{"/api/export?vegan=maybe", "/api/export?campus=%3Cscript%3E"} {
		w := do(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, apperrors.ErrCodeInvalidRequest, decodeError(t, w).Code)
	}
	assert.Zero(t, analyzer.calls())
}

func TestClearCache(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		body       string
		wantStatus int
		wantClears int
	}{
		{"correct password", "s3cret", `{"password": "s3cret"}`, http.StatusOK, 1},
		{"wrong password", "s3cret", `{"password": "s3cre"}`, http.StatusUnauthorized, 0},
		{"missing password", "s3cret", `{}`, http.StatusBadRequest, 0},
		{"no secret configured", "", `{"password": ""}`, http.StatusUnauthorized, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Admin.ClearCacheSecret = tt.secret
			store := &stubCache{}
			r := newRouter(t, cfg, Dependencies{Analyzer: &stubAnalyzer{}, Cache: store})

			w := do(r, http.MethodPost, "/api/clear-cache", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantClears, store.clears)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Invalid password", decodeError(t, w).Error)
			}
		})
	}
}

func TestClearCache_BackendError(t *testing.T) {
	store := &stubCache{err: errors.New("disk full")}
	r := newRouter(t, testConfig(), Dependencies{Analyzer: &stubAnalyzer{}, Cache: store})

	w := do(r, http.MethodPost, "/api/clear-cache", `{"password": "s3cret"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, store.clears)
}

func TestCORS(t *testing.T) {
	t.Run("wildcard preflight", func(t *testing.T) {
		r := newRouter(t, testConfig(), Dependencies{Analyzer: &stubAnalyzer{}})
		req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allow list", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.CORSOrigins = []string{"https://menu.example.edu"}
		r := newRouter(t, cfg, Dependencies{Analyzer: &stubAnalyzer{}})

		for origin, want := range map[string]string{
			"https://menu.example.edu": "https://menu.example.edu",
			"https://evil.example":     "",
		} {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, want, w.Header().Get("Access-Control-Allow-Origin"), origin)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(t, testConfig(), Dependencies{Analyzer: &stubAnalyzer{}})
	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `menu_http_requests_total{route="/health",status="200"}`)
}

func TestStaticIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Dining Hall Picks</h1>"), 0o644))

	cfg := testConfig()
	cfg.Server.StaticDir = dir
	r := newRouter(t, cfg, Dependencies{Analyzer: &stubAnalyzer{}})

	w := do(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dining Hall Picks")
}
