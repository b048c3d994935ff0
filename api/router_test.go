package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pagecrawl/api"
	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/jobs"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/sites"
)

type fakeParser struct {
	mu    sync.Mutex
	calls []models.ParseRequest
	fail  bool
}

func (p *fakeParser) GetPageData(_ context.Context, req models.ParseRequest) *models.ParseResult {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()
	if p.fail {
		return models.NewParseResult(time.Now(), 10, "", nil,
			models.NewScrapeError(models.ErrCodeNavigation, "navigation to target URL failed", nil))
	}
	return models.NewParseResult(time.Now(), 1024, "Generic",
		[]models.Element{{Text: "Hello", TagName: "h1"}}, nil)
}

func (p *fakeParser) ParseHTML(_ context.Context, _, html string) *models.ParseResult {
	return models.NewParseResult(time.Now(), int64(len(html)), "Generic",
		[]models.Element{{Text: "From html", TagName: "p"}}, nil)
}

func (p *fakeParser) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type readyBrowser bool

func (b readyBrowser) Ready() bool { return bool(b) }

type env struct {
	router   http.Handler
	parser   *fakeParser
	registry *jobs.Registry
	sessions *cache.Sessions
}

func newEnv(t *testing.T, mutate func(*config.Config)) *env {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Mode = "test"
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := &fakeParser{}
	registry := jobs.NewRegistry(cfg.Jobs.Capacity, cfg.Jobs.TTL, logger)
	sessions := cache.NewSessions(cfg.Cache.SessionCapacity, cfg.Cache.SessionTTL)

	r := api.NewRouter(cfg, api.Deps{
		Parser:    parser,
		Jobs:      registry,
		Responses: cache.NewResponses(cfg.Cache.ResponseCapacity, cfg.Cache.ResponseTTL),
		Sessions:  sessions,
		Table:     sites.DefaultTable,
		JobCount:  registry,
		Browser:   readyBrowser(false),
		StartTime: time.Now(),
	})
	return &env{router: r, parser: parser, registry: registry, sessions: sessions}
}

func (e *env) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestStatusAndHealth(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = e.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	h := decode[models.HealthResponse](t, w)
	assert.Equal(t, "healthy", h.Status)
	assert.False(t, h.BrowserReady)
	assert.Zero(t, h.Jobs)
}

func TestHealth_DegradedWhenQueueFull(t *testing.T) {
	e := newEnv(t, func(c *config.Config) { c.Jobs.MaxJobsQueue = 1 })

	e.registry.Create("https://a.example")
	e.registry.Create("https://b.example")

	h := decode[models.HealthResponse](t, e.do(t, http.MethodGet, "/health", ""))
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, 2, h.Jobs)
}

func TestParse_Validation(t *testing.T) {
	e := newEnv(t, nil)

	tests := []struct {
		target string
		want   string
	}{
		{"/parse", "Url is missing"},
		{"/parse?url=", "Url is missing"},
		{"/parse?url=example.com", "Wrong url"},
	}
	for _, tt := range tests {
		w := e.do(t, http.MethodGet, tt.target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.target)
		resp := decode[models.ErrorResponse](t, w)
		assert.False(t, resp.Success)
		assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
		assert.Equal(t, tt.want, resp.Error.Message)
	}
	assert.Zero(t, e.parser.callCount())
}

func TestParse_ResultAndCache(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(t, http.MethodGet, "/parse?url=https://example.com/a", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[models.ParseResult](t, w)
	assert.Empty(t, res.ErrorMessage)
	assert.Equal(t, 1, res.ElementsCount)
	assert.Equal(t, int64(1024), res.NetworkTraffic)

	e.do(t, http.MethodGet, "/parse?url=https://example.com/a", "")
	assert.Equal(t, 1, e.parser.callCount(), "second call served from cache")

	e.do(t, http.MethodGet, "/parse?url=https://example.com/a&username=bob&password=pw", "")
	assert.Equal(t, 2, e.parser.callCount(), "password bypasses cache")
	assert.Equal(t, "bob", e.parser.calls[1].Username)
	assert.Equal(t, "pw", e.parser.calls[1].Password)
}

func TestParse_FailureStillOK(t *testing.T) {
	e := newEnv(t, nil)
	e.parser.fail = true

	for range 2 {
		w := e.do(t, http.MethodGet, "/parse?url=https://down.example", "")
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[models.ParseResult](t, w)
		assert.Contains(t, res.ErrorMessage, models.ErrCodeNavigation)
		assert.NotNil(t, res.Elements)
		assert.JSONEq(t, `[]`, mustField(t, w, "elements"))
	}
	assert.Equal(t, 2, e.parser.callCount(), "errors are not cached")
}

func mustField(t *testing.T, w *httptest.ResponseRecorder, name string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return string(m[name])
}

func TestParseHTML(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(t, http.MethodPost, "/parse/html", `{"url":"https://example.com","html":"<p>From html</p>"}`)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[models.ParseResult](t, w)
	assert.Equal(t, "Generic", res.PageType)
	assert.Equal(t, int64(len("<p>From html</p>")), res.NetworkTraffic)

	w = e.do(t, http.MethodPost, "/parse/html", `{"url":"https://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/parse/html", `{"url":"example.com","html":"<p>x</p>"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Wrong url", decode[models.ErrorResponse](t, w).Error.Message)
}

func TestJobs(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(t, http.MethodPost, "/jobs", `{"url":"https://example.com/post"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	job := decode[models.ParseJob](t, w)
	assert.Len(t, job.ID, 10)
	assert.Equal(t, models.JobCreated, job.Status)
	assert.JSONEq(t, `null`, mustField(t, w, "result"))
	assert.JSONEq(t, `null`, mustField(t, w, "startedAt"))

	w = e.do(t, http.MethodGet, "/jobs/"+job.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, job, decode[models.ParseJob](t, w))

	w = e.do(t, http.MethodGet, "/jobs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.ParseJob{job}, decode[[]models.ParseJob](t, w))

	w = e.do(t, http.MethodGet, "/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrCodeNotFound, decode[models.ErrorResponse](t, w).Error.Code)

	w = e.do(t, http.MethodPost, "/jobs", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessions(t *testing.T) {
	e := newEnv(t, nil)
	e.sessions.Set(string(sites.Twitter), []models.Cookie{{Name: "auth_token", Value: "secret"}})

	w := e.do(t, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	infos := decode[[]models.SessionInfo](t, w)
	require.Len(t, infos, 1)
	assert.Equal(t, "Twitter", infos[0].SiteType)
	assert.Equal(t, 1, infos[0].Cookies)

	w = e.do(t, http.MethodDelete, "/sessions/Substack", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "type without sign-in")
	w = e.do(t, http.MethodDelete, "/sessions/Nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodDelete, "/sessions/Twitter", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, ok := e.sessions.Get(string(sites.Twitter))
	assert.False(t, ok)

	w = e.do(t, http.MethodGet, "/sessions", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestPurgeResponses(t *testing.T) {
	e := newEnv(t, nil)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/parse?url=https://example.com/a", "").Code)
	require.Equal(t, 1, e.parser.callCount())

	w := e.do(t, http.MethodDelete, "/cache/responses", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"purged":1}`, w.Body.String())

	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/parse?url=https://example.com/a", "").Code)
	assert.Equal(t, 2, e.parser.callCount(), "purged result is fetched again")
}

func TestAuthAndRateLimit(t *testing.T) {
	e := newEnv(t, func(c *config.Config) {
		c.Auth.Enabled = true
		c.Auth.APIKeys = []string{"secret"}
		c.RateLimit.Enabled = true
		c.RateLimit.RequestsPerSecond = 0.001
		c.RateLimit.Burst = 1
	})

	w := e.do(t, http.MethodGet, "/jobs", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/jobs", "", "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/jobs", "", "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/jobs", "", "X-API-Key", "secret")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, models.ErrCodeRateLimited, decode[models.ErrorResponse](t, w).Error.Code)

	w = e.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code, "health stays open")
}
