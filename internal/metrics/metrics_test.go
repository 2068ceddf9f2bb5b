package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/sigfuse/internal/classifier"
	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/pipeline"
	"github.com/newthinker/sigfuse/internal/sentiment"
)

func findFamily(t *testing.T, reg *Registry, name string) bool {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return true
		}
	}
	return false
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg)

	var _ prometheus.Gatherer = reg

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs, "go runtime metrics are always present")
}

func TestRegistry_RecordRequest_StatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			reg := NewRegistry()
			reg.RecordRequest("GET", "/signals", tt.status, 0.01)

			got := testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/signals", tt.expected))
			assert.Equal(t, 1.0, got)
		})
	}
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	reg.InFlightDec()

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.httpRequestsInFlight))
}

func TestRegistry_Observer(t *testing.T) {
	reg := NewRegistry()
	var obs pipeline.Observer = reg

	obs.Analyzed(core.FusedSignal{Symbol: "AAPL", Action: core.ActionBuy, Score: 42}, 120*time.Millisecond)
	obs.Analyzed(core.FusedSignal{Symbol: "MSFT", Action: core.ActionBuy, Score: 35}, 80*time.Millisecond)
	obs.Analyzed(core.FusedSignal{Symbol: "TSLA", Action: core.ActionHold}, 10*time.Millisecond)
	obs.Degraded("AAPL", pipeline.StageNews, errors.New("timeout"))
	obs.Degraded("MSFT", pipeline.StageNews, errors.New("timeout"))
	obs.PublishFailed("AAPL", "redis", errors.New("down"))
	obs.Trained("AAPL", classifier.Report{Accuracy: 0.62}, time.Second)
	obs.TrainFailed("TSLA", errors.New("too few rows"))

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.signalsFused.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.signalsFused.WithLabelValues("HOLD")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.degradations.WithLabelValues("news")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.publishFailures.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.modelsTrained.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.modelsTrained.WithLabelValues("failed")))
	assert.Equal(t, 0.62, testutil.ToFloat64(reg.modelAccuracy.WithLabelValues("AAPL")))
	assert.True(t, findFamily(t, reg, "sigfuse_analysis_duration_seconds"))
	assert.True(t, findFamily(t, reg, "sigfuse_fused_score"))
}

func TestRegistry_RecordCycle(t *testing.T) {
	reg := NewRegistry()

	reg.RecordCycle(pipeline.CycleResult{
		Elapsed: 3 * time.Second,
		Mood:    sentiment.MarketMood{Label: sentiment.LabelBullish, Score: 0.25},
	})
	reg.SetWatchlistSize(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.analysisCycles))
	assert.Equal(t, 0.25, testutil.ToFloat64(reg.marketMood))
	assert.Equal(t, 7.0, testutil.ToFloat64(reg.watchlistSymbols))
	assert.True(t, findFamily(t, reg, "sigfuse_analysis_cycle_duration_seconds"))
}
