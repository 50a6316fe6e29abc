package runanalysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"menu-advisor/internal/common/config"
	apperrors "menu-advisor/internal/common/errors"
	commonhttp "menu-advisor/internal/common/http"
	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/common/observability"
	"menu-advisor/internal/models"
	preferencerank "menu-advisor/internal/workers/ranking/preference-rank"
	formdiscovery "menu-advisor/internal/workers/scrape/form-discovery"
	mealpages "menu-advisor/internal/workers/scrape/meal-pages"
	menuresolve "menu-advisor/internal/workers/scrape/menu-resolve"
	llmscore "menu-advisor/internal/workers/scoring/llm-score"
	localscore "menu-advisor/internal/workers/scoring/local-score"
	"menu-advisor/pkg/registry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func testConfig(menuURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Upstream.MenuURL = menuURL
	cfg.Upstream.MaxRetries = 1
	cfg.Upstream.RetryDelay = 1
	cfg.Upstream.RequestTimeout = 5000
	cfg.Upstream.NutritionWorkers = 2
	cfg.Campuses.DefaultKey = "altoona-port-sky"
	return cfg
}

func formPage() string {
	return fmt.Sprintf(`<form>
<select name="selCampus"><option value="24">Altoona - Port Sky Cafe</option><option value="31">Behrend - Bruno's</option></select>
<select name="selMeal"><option value="B">Breakfast</option><option value="L">Lunch</option><option value="D">Dinner</option></select>
<select name="selMenuDate"><option value="today">%s</option></select>
</form>`, menuresolve.TodayLabel(time.Now()))
}

// menuSite serves the form on GET and a meal page per selMeal on POST.
func menuSite(t *testing.T, calls *atomic.Int32, meals map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, formPage())
			return
		}
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "24", r.PostForm.Get("selCampus"))
		_, _ = io.WriteString(w, meals[r.PostForm.Get("selMeal")])
	}))
}

func buildHandler(t *testing.T, cfg *config.Config, store *memoryCache) *Handler {
	t.Helper()
	return Build(cfg, commonhttp.NewSessionFactory(5*time.Second), registry.Default(), cacheOrNil(store), nil, logger.NewTestLogger(t))
}

func TestExecute_RejectsInvalidPreferencesBeforeAnyFetch(t *testing.T) {
	var calls atomic.Int32
	srv := menuSite(t, &calls, nil)
	defer srv.Close()

	h := buildHandler(t, testConfig(srv.URL), nil)
	_, err := h.Execute(context.Background(), &Input{Preferences: models.Preferences{Vegan: true, Vegetarian: true}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidPreferences))
	assert.Equal(t, int32(0), calls.Load())
}

func TestExecute_LiveSiteEndToEnd(t *testing.T) {
	var calls atomic.Int32
	srv := menuSite(t, &calls, map[string]string{
		"B": `<a href="#">Scrambled Eggs</a><a href="#">Bacon</a><a href="/print">Print Menu</a>`,
		"L": `<p>No items today</p>`,
		"D": `<a href="javascript:void(0)">Grilled Chicken Breast</a>`,
	})
	defer srv.Close()

	h := buildHandler(t, testConfig(srv.URL), nil)
	out, err := h.Execute(context.Background(), &Input{Preferences: models.Preferences{Vegetarian: true}})
	require.NoError(t, err)

	res := out.Result
	assert.False(t, out.Cached)
	assert.Equal(t, models.SourceLive, res.Source)
	assert.Equal(t, models.ScorerLocal, res.Scorer)
	assert.Equal(t, "altoona-port-sky", res.Campus)
	assert.Equal(t, menuresolve.TodayLabel(time.Now()), res.Date)
	assert.NotEmpty(t, res.RunID)

	assert.Equal(t, []models.ScoredItem{
		{Name: "Scrambled Eggs", Score: 70, Reasoning: "High protein (good)", URL: models.NoDetailURL},
	}, res.Meals[models.MealBreakfast])
	assert.Empty(t, res.Meals[models.MealLunch])
	assert.NotNil(t, res.Meals[models.MealLunch])
	assert.Empty(t, res.Meals[models.MealDinner], "chicken is not vegetarian")
	assert.Equal(t, int32(4), calls.Load(), "one form fetch and three meal posts")
}

func TestExecute_FallsBackWhenFormUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store := newMemoryCache()
	h := buildHandler(t, testConfig(srv.URL), store)
	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)

	res := out.Result
	assert.Equal(t, models.SourceFallback, res.Source)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "Menu website unavailable")

	var breakfast []string
	for _, it := range res.Meals[models.MealBreakfast] {
		breakfast = append(breakfast, it.Name)
		assert.Equal(t, models.NoDetailURL, it.URL)
	}
	assert.Equal(t, []string{"Turkey Sausage", "Scrambled Eggs", "Oatmeal"}, breakfast)
	assert.Len(t, res.Meals[models.MealDinner], 3)
	assert.Zero(t, store.puts.Load(), "fallback results are not cached")
}

func TestExecute_CachesFallbackWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Cache.CacheFallback = true
	store := newMemoryCache()
	h := buildHandler(t, cfg, store)

	first, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, first.Result.Source)
	assert.Equal(t, int32(1), store.puts.Load())

	second, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result.RunID, second.Result.RunID)
}

// sessionSite issues a new CFID cookie on every form fetch and embeds it in
// the date token. Meal posts are refused unless the token belongs to the
// cookie they arrive with.
func sessionSite(t *testing.T) *httptest.Server {
	var issued atomic.Int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			id := fmt.Sprint(issued.Add(1))
			http.SetCookie(w, &http.Cookie{Name: "CFID", Value: id, Path: "/"})
			_, _ = io.WriteString(w, strings.Replace(formPage(), `value="today"`, `value="today-`+id+`"`, 1))
			return
		}
		assert.NoError(t, r.ParseForm())
		cookie, err := r.Cookie("CFID")
		if err != nil || r.PostForm.Get("selMenuDate") != "today-"+cookie.Value {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, `<a href="#">Oatmeal</a>`)
	}))
}

func TestBuild_InterleavedRunsKeepTheirOwnSession(t *testing.T) {
	srv := sessionSite(t)
	defer srv.Close()

	h := buildHandler(t, testConfig(srv.URL), nil)
	require.NotNil(t, h.deps.NewSession)
	ctx := context.Background()

	runA, runB := h.deps.NewSession(), h.deps.NewSession()
	formA, err := runA.Forms.Execute(ctx, &formdiscovery.Input{})
	require.NoError(t, err)
	_, err = runB.Forms.Execute(ctx, &formdiscovery.Input{})
	require.NoError(t, err)

	sel, err := h.deps.Resolver.Execute(ctx, &menuresolve.Input{Options: formA.Options, CampusKey: "altoona-port-sky"})
	require.NoError(t, err)
	meals, err := runA.Meals.Execute(ctx, &mealpages.Input{
		CampusValue: sel.CampusValue,
		DateValue:   sel.DateValue,
		MealValues:  sel.MealValues,
		Fields:      formA.Fields,
	})
	require.NoError(t, err)
	assert.Empty(t, meals.FailedMeals)
	require.Len(t, meals.Menu[models.MealBreakfast], 1)
	assert.Equal(t, "Oatmeal", meals.Menu[models.MealBreakfast][0].Name)
}

func TestExecute_ConcurrentRunsStayLive(t *testing.T) {
	srv := sessionSite(t)
	defer srv.Close()

	h := buildHandler(t, testConfig(srv.URL), nil)

	var wg sync.WaitGroup
	results := make([]*Output, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.Execute(context.Background(), &Input{SkipCache: true})
		}(i)
	}
	wg.Wait()

	for i, out := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, models.SourceLive, out.Result.Source)
		assert.Empty(t, out.Result.Warnings)
		require.Len(t, out.Result.Meals[models.MealBreakfast], 1)
	}
}

func TestExecute_FallsBackWhenCampusMissing(t *testing.T) {
	var calls atomic.Int32
	srv := menuSite(t, &calls, nil)
	defer srv.Close()

	h := buildHandler(t, testConfig(srv.URL), nil)
	out, err := h.Execute(context.Background(), &Input{Preferences: models.Preferences{Campus: "up-pollock", ExcludeBeef: true}})
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, out.Result.Source)
	for _, it := range out.Result.Meals[models.MealDinner] {
		assert.NotContains(t, it.Name, "Beef")
	}
	assert.Equal(t, int32(1), calls.Load(), "no meal pages are requested")
}

func TestExecute_ServesSecondRunFromCache(t *testing.T) {
	var calls atomic.Int32
	srv := menuSite(t, &calls, map[string]string{"B": `<a href="#">Oatmeal</a>`})
	defer srv.Close()

	store := newMemoryCache()
	h := buildHandler(t, testConfig(srv.URL), store)
	prefs := models.Preferences{PrioritizeProtein: true}

	first, err := h.Execute(context.Background(), &Input{Preferences: prefs})
	require.NoError(t, err)
	require.False(t, first.Cached)
	callsAfterFirst := calls.Load()

	second, err := h.Execute(context.Background(), &Input{Preferences: prefs})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result.RunID, second.Result.RunID)
	assert.Equal(t, first.Result.Meals, second.Result.Meals)
	assert.Equal(t, callsAfterFirst, calls.Load())

	third, err := h.Execute(context.Background(), &Input{Preferences: prefs, SkipCache: true})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Greater(t, calls.Load(), callsAfterFirst)
}

func TestCacheKey(t *testing.T) {
	base := CacheKey("altoona-port-sky", models.Preferences{Vegan: true}, "2026-10-18")
	assert.Len(t, base, 64)
	assert.Equal(t, base, CacheKey("altoona-port-sky", models.Preferences{Vegan: true}, "2026-10-18"))
	assert.NotEqual(t, base, CacheKey("altoona-port-sky", models.Preferences{Vegan: true}, "2026-10-19"))
	assert.NotEqual(t, base, CacheKey("up-east", models.Preferences{Vegan: true}, "2026-10-18"))
	assert.NotEqual(t, base, CacheKey("altoona-port-sky", models.Preferences{Vegetarian: true}, "2026-10-18"))
}

// --- stubbed stages ---

type stubForms struct{ err error }

func (s stubForms) Execute(context.Context, *formdiscovery.Input) (*formdiscovery.Output, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out formdiscovery.Output
	out.Options.Campus = models.NewOptionSet(models.Option{Label: "Altoona - Port Sky Cafe", Value: "24"})
	out.Options.Meal = models.NewOptionSet(models.Option{Label: "Breakfast", Value: "B"})
	out.Options.Date = models.NewOptionSet(models.Option{Label: "Sunday, October 18", Value: "10/18/2026"})
	return &out, nil
}

type stubMeals struct{ menu models.DailyMenu }

func (s stubMeals) Execute(context.Context, *mealpages.Input) (*mealpages.Output, error) {
	return &mealpages.Output{Menu: s.menu}, nil
}

type countingExtractor struct {
	mu       sync.Mutex
	active   int
	peak     int
	requests []string
}

func (e *countingExtractor) Extract(_ context.Context, item models.MenuItem) models.NutrientRecord {
	e.mu.Lock()
	e.active++
	if e.active > e.peak {
		e.peak = e.active
	}
	e.requests = append(e.requests, item.DetailURL)
	e.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	e.mu.Lock()
	e.active--
	e.mu.Unlock()
	if item.Name == "Baked Salmon" {
		return models.NutrientRecord{Calories: 300, Protein: 35, Sodium: 200}
	}
	return models.NutrientRecord{}
}

type stubLLM struct {
	calls atomic.Int32
	err   error
}

func (s *stubLLM) Execute(_ context.Context, input *llmscore.Input) (*llmscore.Output, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	scored := models.ScoredMenu{}
	for meal, cands := range input.Menu {
		for i, c := range cands {
			scored[meal] = append(scored[meal], models.ScoredItem{Name: c.Name, Score: 90 - i, Reasoning: "model", URL: c.DetailURL})
		}
	}
	return &llmscore.Output{Scored: scored, Scorer: models.ScorerLLM}, nil
}

func stubbedHandler(t *testing.T, deps Dependencies, workers int) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	if deps.Forms == nil {
		deps.Forms = stubForms{}
	}
	resolveCfg := menuresolve.LoadConfig(nil)
	resolveCfg.Now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	deps.Resolver = menuresolve.NewHandler(resolveCfg, log)
	deps.Local = localscore.NewHandler(log)
	deps.Ranker = preferencerank.NewHandler(preferencerank.LoadConfig(), log)
	cfg := &Config{DefaultCampus: "altoona-port-sky", NutritionWorkers: workers}
	return NewHandler(cfg, deps, log)
}

func TestExecute_StubbedMenuExcludesBacon(t *testing.T) {
	h := stubbedHandler(t, Dependencies{Meals: stubMeals{menu: models.DailyMenu{
		models.MealBreakfast: {{Name: "Scrambled Eggs", DetailURL: "#"}, {Name: "Bacon", DetailURL: "#"}},
	}}}, 1)

	out, err := h.Execute(context.Background(), &Input{Preferences: models.Preferences{Vegetarian: true}})
	require.NoError(t, err)
	breakfast := out.Result.Meals[models.MealBreakfast]
	require.Len(t, breakfast, 1)
	assert.Equal(t, "Scrambled Eggs", breakfast[0].Name)
	assert.Equal(t, "#", breakfast[0].URL)
	assert.NotEmpty(t, breakfast[0].Reasoning)
	assert.Equal(t, "sunday, october 18", out.Result.Date)
}

func TestExecute_EnrichesThroughBoundedPool(t *testing.T) {
	menu := models.DailyMenu{models.MealDinner: {{Name: "Baked Salmon", DetailURL: "https://x/label?id=1"}, {Name: "Rolls", DetailURL: "#"}}}
	for i := 0; i < 10; i++ {
		menu[models.MealLunch] = append(menu[models.MealLunch], models.MenuItem{Name: fmt.Sprintf("Soup %d", i), DetailURL: fmt.Sprintf("https://x/label?id=%d", 100+i)})
	}
	extractor := &countingExtractor{}
	h := stubbedHandler(t, Dependencies{Meals: stubMeals{menu: menu}, Nutrition: extractor}, 3)

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)

	assert.Len(t, extractor.requests, 11, "items without a detail link are not fetched")
	assert.LessOrEqual(t, extractor.peak, 3)

	dinner := out.Result.Meals[models.MealDinner]
	require.NotEmpty(t, dinner)
	assert.Equal(t, "Baked Salmon", dinner[0].Name)
	require.NotNil(t, dinner[0].Nutrition)
	assert.Equal(t, 300, dinner[0].Nutrition.Calories)
	assert.Contains(t, dinner[0].Reasoning, "protein density")
}

func TestExecute_UsesLLMForLiveMenusOnly(t *testing.T) {
	llm := &stubLLM{}
	live := stubbedHandler(t, Dependencies{
		Meals: stubMeals{menu: models.DailyMenu{models.MealBreakfast: {{Name: "Oatmeal", DetailURL: "#"}}}},
		LLM:   llm,
	}, 1)
	out, err := live.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, models.ScorerLLM, out.Result.Scorer)
	assert.Equal(t, 90, out.Result.Meals[models.MealBreakfast][0].Score)
	assert.Equal(t, int32(1), llm.calls.Load())

	fallback := stubbedHandler(t, Dependencies{Forms: stubForms{err: apperrors.NewUpstreamUnavailableError("form", nil)}, LLM: llm}, 1)
	out, err = fallback.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, out.Result.Source)
	assert.Equal(t, models.ScorerLocal, out.Result.Scorer)
	assert.Equal(t, int32(1), llm.calls.Load())
}

func TestExecute_RequiredLLMFailureIsSurfaced(t *testing.T) {
	llm := &stubLLM{err: apperrors.NewLLMUnavailableError(errors.New("overloaded"))}
	h := stubbedHandler(t, Dependencies{
		Meals: stubMeals{menu: models.DailyMenu{models.MealBreakfast: {{Name: "Oatmeal", DetailURL: "#"}}}},
		LLM:   llm,
	}, 1)
	_, err := h.Execute(context.Background(), &Input{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrLLMUnavailable))
}

func TestExecute_RecordsStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tel := observability.New("menu-test", observability.WithRegisterer(prometheus.NewRegistry()), observability.WithSpanProcessor(recorder))
	defer tel.Shutdown()

	h := stubbedHandler(t, Dependencies{
		Meals:     stubMeals{menu: models.DailyMenu{models.MealBreakfast: {{Name: "Oatmeal", DetailURL: "#"}}}},
		Telemetry: tel,
	}, 1)
	_, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"scrape.form", "scrape.meals", "score", "analysis.run"}, names)
}

func TestExecute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := stubbedHandler(t, Dependencies{Forms: stubForms{err: context.Canceled}}, 1)
	_, err := h.Execute(ctx, &Input{})
	assert.ErrorIs(t, err, context.Canceled)
}
