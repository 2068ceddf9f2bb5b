// internal/api/server_test.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/metrics"
	"github.com/newthinker/sigfuse/internal/pipeline"
	"github.com/newthinker/sigfuse/internal/sink"
)

type fixture struct {
	srv     *Server
	signals *sink.Memory
	watcher *pipeline.Watcher
}

func newFixture(t *testing.T, apiKey string) fixture {
	t.Helper()
	signals := sink.NewMemory(100)
	reg := metrics.NewRegistry()
	analyzer := pipeline.NewAnalyzer(pipeline.DefaultConfig(),
		pipeline.WithSinks(signals),
		pipeline.WithObserver(reg),
	)
	watcher := pipeline.NewWatcher(analyzer, pipeline.WatchConfig{}, nil)
	watcher.SetWatchlist([]string{"AAPL"})

	srv, err := NewServer(Config{Addr: ":0", APIKey: apiKey, MetricsPath: "/metrics"}, Dependencies{
		Analyzer: analyzer,
		Watcher:  watcher,
		Signals:  signals,
		Metrics:  reg,
	}, nil)
	require.NoError(t, err)
	return fixture{srv: srv, signals: signals, watcher: watcher}
}

func (f fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)

	var resp map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func seed(t *testing.T, m *sink.Memory, id, symbol string, action core.Action) {
	t.Helper()
	require.NoError(t, m.Publish(context.Background(), sink.Record{Signal: core.FusedSignal{
		ID:          id,
		Symbol:      symbol,
		Action:      action,
		GeneratedAt: time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC),
	}}, time.Minute))
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(Config{}, Dependencies{}, nil)
	assert.Error(t, err)
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t, "secret")
	w, resp := f.do(t, "GET", "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp["data"].(map[string]any)["status"])
	assert.NotEmpty(t, w.Header().Get(metrics.RequestIDHeader))
}

func TestServer_Signals(t *testing.T) {
	f := newFixture(t, "")
	seed(t, f.signals, "a1", "AAPL", core.ActionBuy)
	seed(t, f.signals, "m1", "MSFT", core.ActionSell)
	seed(t, f.signals, "a2", "AAPL", core.ActionHold)

	w, resp := f.do(t, "GET", "/api/v1/signals?symbol=AAPL", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]any)
	assert.Len(t, data["signals"], 2)
	assert.Equal(t, 2.0, data["total"])

	_, resp = f.do(t, "GET", "/api/v1/signals?action=sell", "")
	assert.Len(t, resp["data"].(map[string]any)["signals"], 1)

	w, _ = f.do(t, "GET", "/api/v1/signals?action=moon", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = f.do(t, "GET", "/api/v1/signals?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, resp = f.do(t, "GET", "/api/v1/signals/latest", "")
	latest := resp["data"].(map[string]any)
	assert.Equal(t, "a2", latest["AAPL"].(map[string]any)["id"])

	w, resp = f.do(t, "GET", "/api/v1/signals/m1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MSFT", resp["data"].(map[string]any)["symbol"])

	w, resp = f.do(t, "GET", "/api/v1/signals/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp["error"].(map[string]any)["code"])
}

func TestServer_Analyze(t *testing.T) {
	f := newFixture(t, "")

	w, resp := f.do(t, "POST", "/api/v1/analyze/tsla", "")
	require.Equal(t, http.StatusOK, w.Code)
	sig := resp["data"].(map[string]any)["signal"].(map[string]any)
	assert.Equal(t, "TSLA", sig["symbol"])
	assert.Equal(t, "HOLD", sig["action"])
	assert.Equal(t, 1, f.signals.Count(sink.ListFilter{Symbol: "TSLA"}))

	w, _ = f.do(t, "POST", "/api/v1/analyze/NOT%20OK", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// no history provider configured
	w, _ = f.do(t, "POST", "/api/v1/train/TSLA", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Watchlist(t *testing.T) {
	f := newFixture(t, "")

	w, _ := f.do(t, "POST", "/api/v1/watchlist", `{"symbol":"msft"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"AAPL", "MSFT"}, f.watcher.Watchlist())

	w, _ = f.do(t, "POST", "/api/v1/watchlist", `{"symbol":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = f.do(t, "POST", "/api/v1/watchlist", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, resp := f.do(t, "GET", "/api/v1/watchlist", "")
	assert.Equal(t, 2.0, resp["data"].(map[string]any)["count"])

	w, _ = f.do(t, "DELETE", "/api/v1/watchlist/AAPL", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = f.do(t, "DELETE", "/api/v1/watchlist/AAPL", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = f.do(t, "GET", "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, resp["data"].(map[string]any)["watchlist"])
}

func TestServer_Auth(t *testing.T) {
	f := newFixture(t, "secret")

	w, resp := f.do(t, "GET", "/api/v1/watchlist", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", resp["error"].(map[string]any)["code"])

	req := httptest.NewRequest("GET", "/api/v1/watchlist", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t, "secret")
	f.do(t, "GET", "/health", "")

	w, _ := f.do(t, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

