package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestHTTPMiddleware(t *testing.T) {
	reg := NewRegistry()

	var inFlight float64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlight = testutil.ToFloat64(reg.httpRequestsInFlight)
		w.WriteHeader(http.StatusNotFound)
	})

	wrapped := HTTPMiddleware(reg)(handler)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/signals/NOPE", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1.0, inFlight)
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.httpRequestsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/signals/NOPE", "4xx")))
	assert.True(t, findFamily(t, reg, "http_request_duration_seconds"))
}

func captureLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.InfoLevel)), &buf
}

func serveLogged(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	logger, buf := captureLogger()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	w := httptest.NewRecorder()
	LoggingMiddleware(logger)(handler).ServeHTTP(w, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log: %s", buf.String())
	return w, entry
}

func TestLoggingMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/signals", nil)
	req.RemoteAddr = "10.0.0.1:54321"

	w, entry := serveLogged(t, req)

	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/signals", entry["path"])
	assert.Equal(t, 202.0, entry["status"])
	assert.Equal(t, "10.0.0.1:54321", entry["client_ip"])
	assert.Contains(t, entry, "duration_ms")

	id := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, entry["request_id"])
}

func TestLoggingMiddleware_Headers(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 10.0.0.2")
	req.Header.Set(RequestIDHeader, "req-123")

	w, entry := serveLogged(t, req)

	assert.Equal(t, "203.0.113.50", entry["client_ip"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}
