package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/stockdesk/config"
	"github.com/dyike/stockdesk/consts"
	"github.com/dyike/stockdesk/internal/cache"
	"github.com/dyike/stockdesk/internal/extract"
	"github.com/dyike/stockdesk/internal/metrics"
	"github.com/dyike/stockdesk/internal/raworc"
	"github.com/dyike/stockdesk/internal/report"
	"github.com/dyike/stockdesk/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	mu     sync.Mutex
	opts   []report.RunOptions
	events []report.Event
	result *models.ReportResult
	err    error
	fetch  *models.ResponseRecord
	agent  string
}

func (f *fakeRunner) Run(_ context.Context, _ string, opts report.RunOptions, emit report.Emitter) (*models.ReportResult, error) {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	stream := report.NewStream(emit)
	for _, e := range f.events {
		stream.Send(e.Name, e.Data)
	}
	if f.err != nil {
		stream.Fail(f.err)
	}
	return f.result, f.err
}

func (f *fakeRunner) Fetch(_ context.Context, agent, _ string) (*models.ResponseRecord, error) {
	f.agent = agent
	if f.fetch == nil {
		return nil, &raworc.APIError{StatusCode: http.StatusNotFound, Body: "no such response"}
	}
	return f.fetch, nil
}

type fakeAgents struct {
	limit int
	err   error
}

func (f *fakeAgents) ListAgents(_ context.Context, limit int) ([]*models.Agent, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Agent{{Name: "stockapi-agent-tsla"}}, nil
}

func (f *fakeAgents) ListResponses(_ context.Context, _ string, limit int) ([]*models.ResponseRecord, error) {
	f.limit = limit
	return []*models.ResponseRecord{}, f.err
}

type fakeQuotes struct {
	symbols []string
}

func (f *fakeQuotes) Snapshot(_ context.Context, symbols ...string) (*models.MarketSnapshot, error) {
	f.symbols = symbols
	return &models.MarketSnapshot{Success: true, Data: []*models.Quote{{Symbol: "AAPL"}}}, nil
}

func testConfig() config.Config {
	cfg := *config.Defaults()
	cfg.PollInterval = time.Millisecond
	cfg.StreamPollInterval = time.Millisecond
	return cfg
}

func newTestServer(runner *fakeRunner, agents *fakeAgents, quotes *fakeQuotes) *Server {
	return New(testConfig(), Deps{Reports: runner, Agents: agents, Quotes: quotes, Metrics: metrics.New()})
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	s.Handler().ServeHTTP(rec, req)
	return rec
}

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var out []sseEvent
	var cur sseEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			cur.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			cur.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && cur.name != "":
			out = append(out, cur)
			cur = sseEvent{}
		}
	}
	return out
}

func TestRunReportBlocking(t *testing.T) {
	runner := &fakeRunner{result: &models.ReportResult{Success: true, Symbol: "TSLA"}}
	s := newTestServer(runner, nil, nil)

	rec := do(t, s, http.MethodPost, "/report/tsla")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"symbol":"TSLA"`)
	require.Len(t, runner.opts, 1)
	assert.Equal(t, "blocking", runner.opts[0].Mode)
	assert.False(t, runner.opts[0].Poll.Bounded())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRunReportBusyIs409(t *testing.T) {
	runner := &fakeRunner{err: &report.Error{Kind: report.KindAgentBusy, Message: "Agent is currently busy", Retryable: true}}
	s := newTestServer(runner, nil, nil)

	rec := do(t, s, http.MethodPost, "/report/tsla")
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Agent is currently busy", body["error"])
	assert.Equal(t, true, body["retryable"])
}

func TestGetResponseRequiresID(t *testing.T) {
	s := newTestServer(&fakeRunner{}, nil, nil)
	rec := do(t, s, http.MethodGet, "/report/tsla?agent=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetResponseDefaultsAgentAndMirrorsUpstream(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(runner, nil, nil)

	rec := do(t, s, http.MethodGet, "/report/TSLA/progress?responseId=r1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "stockapi-agent-tsla", runner.agent)
	assert.Contains(t, rec.Body.String(), "no such response")

	runner.fetch = &models.ResponseRecord{ID: "r1", Status: "running"}
	rec = do(t, s, http.MethodGet, "/report/TSLA?agent=custom&responseId=r1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "custom", runner.agent)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestStreamReportEmitsEvents(t *testing.T) {
	runner := &fakeRunner{
		events: []report.Event{
			{Name: consts.EventStatus, Data: report.StatusEvent{Message: "Initializing", Step: consts.StepInit}},
			{Name: consts.EventSegment, Data: report.SegmentEvent{Segment: models.Segment{Type: "commentary", Text: "hi"}}},
			{Name: consts.EventComplete, Data: report.CompleteEvent{}},
			{Name: consts.EventStatus, Data: report.StatusEvent{Message: "late"}},
		},
	}
	s := newTestServer(runner, nil, nil)

	rec := do(t, s, http.MethodGet, "/report/tsla/stream")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, consts.EventStatus, events[0].name)
	assert.JSONEq(t, `{"message":"Initializing","step":"init"}`, events[0].data)
	assert.Equal(t, consts.EventComplete, events[2].name)

	require.Len(t, runner.opts, 1)
	assert.Equal(t, "stream", runner.opts[0].Mode)
	assert.Equal(t, 150, runner.opts[0].Poll.MaxTicks)
}

func TestStreamReportErrorEvent(t *testing.T) {
	runner := &fakeRunner{err: &report.Error{Kind: report.KindTimedOut, Message: "Timeout", Detail: "Report generation took too long"}}
	s := newTestServer(runner, nil, nil)

	events := parseSSE(t, do(t, s, http.MethodGet, "/report/tsla/stream").Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, consts.EventError, events[0].name)
	assert.Contains(t, events[0].data, "Report generation took too long")
}

func TestPollSettingsHotSwap(t *testing.T) {
	runner := &fakeRunner{result: &models.ReportResult{}}
	s := newTestServer(runner, nil, nil)

	cfg := testConfig()
	cfg.MaxTicks = 7
	s.SetPollSettings(PollSettingsFrom(cfg))
	do(t, s, http.MethodPost, "/report/tsla")
	assert.Equal(t, 7, runner.opts[0].Poll.MaxTicks)
}

func TestQuotes(t *testing.T) {
	quotes := &fakeQuotes{}
	s := newTestServer(nil, nil, quotes)

	rec := do(t, s, http.MethodGet, "/quotes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, quotes.symbols)
	assert.Contains(t, rec.Body.String(), `"isMockData":false`)

	do(t, s, http.MethodGet, "/quotes?symbols=aapl,%20msft,,")
	assert.Equal(t, []string{"aapl", "msft"}, quotes.symbols)
}

func TestAgentsRoutes(t *testing.T) {
	agents := &fakeAgents{}
	s := newTestServer(nil, agents, nil)

	rec := do(t, s, http.MethodGet, "/agents?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, agents.limit)
	assert.Contains(t, rec.Body.String(), "stockapi-agent-tsla")

	rec = do(t, s, http.MethodGet, "/agents/stockapi-agent-tsla/responses?limit=bogus")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, agents.limit)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	agents.err = &raworc.APIError{StatusCode: http.StatusUnauthorized, Body: "bad key"}
	rec = do(t, s, http.MethodGet, "/agents")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	agents.err = errors.New("dial tcp: refused")
	rec = do(t, s, http.MethodGet, "/agents")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(nil, nil, nil)
	rec := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "quote_cache")

	rec = do(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

type cachingQuotes struct {
	fakeQuotes
}

func (c *cachingQuotes) CacheStats() cache.Stats {
	return cache.Stats{Enabled: true, Size: 3, TTL: "30s", Hits: 7, Misses: 3}
}

func TestHealthReportsQuoteCache(t *testing.T) {
	s := New(testConfig(), Deps{Quotes: &cachingQuotes{}})

	rec := do(t, s, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status     string      `json:"status"`
		QuoteCache cache.Stats `json:"quote_cache"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, int64(7), body.QuoteCache.Hits)
	assert.Equal(t, 3, body.QuoteCache.Size)
}

// TestBlockingReportEndToEnd wires the real client, workflow and extractor
// against a fake agent service.
func TestBlockingReportEndToEnd(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/agents/stockapi-agent-amd":
			_, _ = io.WriteString(w, `{"name":"stockapi-agent-amd","state":"idle"}`)
		case r.URL.Path == "/agents/stockapi-agent-amd/wake":
			_, _ = io.WriteString(w, `{}`)
		case r.Method == http.MethodGet && r.URL.Path == "/agents/stockapi-agent-amd/responses":
			_, _ = io.WriteString(w, `{"responses":[]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/agents/stockapi-agent-amd/responses":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"r9","status":"pending"}`)
		case r.URL.Path == "/agents/stockapi-agent-amd/responses/r9":
			mu.Lock()
			polls++
			n := polls
			mu.Unlock()
			if n < 2 {
				_, _ = io.WriteString(w, `{"id":"r9","status":"running","segments":[]}`)
				return
			}
			_, _ = io.WriteString(w, `{"id":"r9","status":"completed",
				"output_content":[{"type":"text","content":"<html><title>AMD</title></html>"}],
				"segments":[{"type":"tool_call","tool":"create_file","args":{"filename":"content/amd_report.html"}}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	client := raworc.NewClient(raworc.Options{BaseURL: upstream.URL, APIKey: "k"})
	wf := report.NewWorkflow(client, report.WorkflowOptions{
		Template:  "Core",
		Freshness: time.Minute,
		Extractor: extract.New("https://host/content"),
	})
	s := New(testConfig(), Deps{Reports: wf, Agents: client})

	rec := do(t, s, http.MethodPost, "/report/AMD")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ReportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "AMD", result.Symbol)
	assert.Equal(t, "completed", result.Response.Status)
	require.NotNil(t, result.Report)
	assert.Equal(t, "AMD", result.Report.Title)
	assert.Equal(t, "https://host/content/stockapi-agent-amd/amd_report.html", result.Report.URL)
}
