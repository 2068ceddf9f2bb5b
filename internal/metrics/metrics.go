package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/newthinker/sigfuse/internal/classifier"
	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/pipeline"
)

const namespace = "sigfuse"

// Registry holds all Prometheus metrics. It implements pipeline.Observer.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Pipeline metrics
	signalsFused     *prometheus.CounterVec
	fusedScore       prometheus.Histogram
	analysisDuration prometheus.Histogram
	degradations     *prometheus.CounterVec
	publishFailures  *prometheus.CounterVec
	modelsTrained    *prometheus.CounterVec
	trainDuration    prometheus.Histogram
	modelAccuracy    *prometheus.GaugeVec
	analysisCycles   prometheus.Counter
	cycleDuration    prometheus.Histogram
	marketMood       prometheus.Gauge
	watchlistSymbols prometheus.Gauge
}

var _ pipeline.Observer = (*Registry)(nil)

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.signalsFused = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_fused_total",
			Help:      "Total number of fused signals by action",
		},
		[]string{"action"},
	)
	r.fusedScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fused_score",
			Help:      "Distribution of combined fusion scores",
			Buckets:   []float64{-60, -30, -10, 10, 30, 60},
		},
	)
	r.analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Per-symbol analysis duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
	r.degradations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degradations_total",
			Help:      "Analyses that fell back to a neutral input, by stage",
		},
		[]string{"stage"},
	)
	r.publishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Failed signal publications by sink",
		},
		[]string{"sink"},
	)
	r.modelsTrained = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "models_trained_total",
			Help:      "Model training attempts by status",
		},
		[]string{"status"},
	)
	r.trainDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "train_duration_seconds",
			Help:      "Model training duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
	)
	r.modelAccuracy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_accuracy",
			Help:      "Held-out accuracy of the latest model per symbol",
		},
		[]string{"symbol"},
	)
	r.analysisCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_cycles_total",
			Help:      "Total number of watchlist cycles completed",
		},
	)
	r.cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_cycle_duration_seconds",
			Help:      "Watchlist cycle duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)
	r.marketMood = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "market_mood_score",
			Help:      "Average sentiment score of the last cycle",
		},
	)
	r.watchlistSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watchlist_symbols",
			Help:      "Number of symbols in watchlist",
		},
	)

	reg.MustRegister(r.signalsFused)
	reg.MustRegister(r.fusedScore)
	reg.MustRegister(r.analysisDuration)
	reg.MustRegister(r.degradations)
	reg.MustRegister(r.publishFailures)
	reg.MustRegister(r.modelsTrained)
	reg.MustRegister(r.trainDuration)
	reg.MustRegister(r.modelAccuracy)
	reg.MustRegister(r.analysisCycles)
	reg.MustRegister(r.cycleDuration)
	reg.MustRegister(r.marketMood)
	reg.MustRegister(r.watchlistSymbols)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

func (r *Registry) Trained(symbol string, report classifier.Report, elapsed time.Duration) {
	r.modelsTrained.WithLabelValues("success").Inc()
	r.trainDuration.Observe(elapsed.Seconds())
	r.modelAccuracy.WithLabelValues(symbol).Set(report.Accuracy)
}

func (r *Registry) TrainFailed(string, error) {
	r.modelsTrained.WithLabelValues("failed").Inc()
}

func (r *Registry) Degraded(_ string, stage pipeline.Stage, _ error) {
	r.degradations.WithLabelValues(string(stage)).Inc()
}

func (r *Registry) Analyzed(sig core.FusedSignal, elapsed time.Duration) {
	r.signalsFused.WithLabelValues(string(sig.Action)).Inc()
	r.fusedScore.Observe(sig.Score)
	r.analysisDuration.Observe(elapsed.Seconds())
}

func (r *Registry) PublishFailed(_ string, sink string, _ error) {
	r.publishFailures.WithLabelValues(sink).Inc()
}

// RecordCycle records a completed watchlist cycle.
func (r *Registry) RecordCycle(res pipeline.CycleResult) {
	r.analysisCycles.Inc()
	r.cycleDuration.Observe(res.Elapsed.Seconds())
	r.marketMood.Set(res.Mood.Score)
}

// SetWatchlistSize sets the watchlist size.
func (r *Registry) SetWatchlistSize(size int) {
	r.watchlistSymbols.Set(float64(size))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
