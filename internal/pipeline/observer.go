package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/sigfuse/internal/classifier"
	"github.com/newthinker/sigfuse/internal/core"
)

// Stage names the step of an analysis that degraded
type Stage string

const (
	StageHistory    Stage = "history"
	StageQuote      Stage = "quote"
	StageNews       Stage = "news"
	StageIndicators Stage = "indicators"
	StageModel      Stage = "model"
	StageStrategies Stage = "strategies"
)

// Observer receives pipeline events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	Trained(symbol string, report classifier.Report, elapsed time.Duration)
	TrainFailed(symbol string, err error)
	Degraded(symbol string, stage Stage, err error)
	Analyzed(sig core.FusedSignal, elapsed time.Duration)
	PublishFailed(symbol, sink string, err error)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) Trained(string, classifier.Report, time.Duration) {}
func (NopObserver) TrainFailed(string, error)                        {}
func (NopObserver) Degraded(string, Stage, error)                    {}
func (NopObserver) Analyzed(core.FusedSignal, time.Duration)         {}
func (NopObserver) PublishFailed(string, string, error)              {}

// Observers fans every event out to each observer in order
type Observers []Observer

func (o Observers) Trained(symbol string, report classifier.Report, elapsed time.Duration) {
	for _, obs := range o {
		obs.Trained(symbol, report, elapsed)
	}
}

func (o Observers) TrainFailed(symbol string, err error) {
	for _, obs := range o {
		obs.TrainFailed(symbol, err)
	}
}

func (o Observers) Degraded(symbol string, stage Stage, err error) {
	for _, obs := range o {
		obs.Degraded(symbol, stage, err)
	}
}

func (o Observers) Analyzed(sig core.FusedSignal, elapsed time.Duration) {
	for _, obs := range o {
		obs.Analyzed(sig, elapsed)
	}
}

func (o Observers) PublishFailed(symbol, sink string, err error) {
	for _, obs := range o {
		obs.PublishFailed(symbol, sink, err)
	}
}

// LogObserver writes events to a zap logger
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates a logging observer
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger}
}

func (l *LogObserver) Trained(symbol string, report classifier.Report, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("symbol", symbol),
		zap.Int("rows", report.Rows),
		zap.Int("train_rows", report.TrainRows),
		zap.Int("test_rows", report.TestRows),
		zap.Float64("accuracy", report.Accuracy),
		zap.Duration("elapsed", elapsed),
	}
	if n := min(3, len(report.Importances)); n > 0 {
		top := make([]string, n)
		for i := range n {
			top[i] = report.Importances[i].Feature
		}
		fields = append(fields, zap.Strings("top_features", top))
	}
	l.logger.Info("model trained", fields...)
}

func (l *LogObserver) TrainFailed(symbol string, err error) {
	l.logger.Warn("model training failed", zap.String("symbol", symbol), zap.Error(err))
}

func (l *LogObserver) Degraded(symbol string, stage Stage, err error) {
	l.logger.Warn("analysis degraded",
		zap.String("symbol", symbol),
		zap.String("stage", string(stage)),
		zap.Error(err),
	)
}

func (l *LogObserver) Analyzed(sig core.FusedSignal, elapsed time.Duration) {
	l.logger.Info("signal fused",
		zap.String("symbol", sig.Symbol),
		zap.String("id", sig.ID),
		zap.String("action", string(sig.Action)),
		zap.Float64("confidence", sig.Confidence),
		zap.Float64("score", sig.Score),
		zap.String("reason", sig.Reason),
		zap.Duration("elapsed", elapsed),
	)
}

func (l *LogObserver) PublishFailed(symbol, sink string, err error) {
	l.logger.Error("publish failed",
		zap.String("symbol", symbol),
		zap.String("sink", sink),
		zap.Error(err),
	)
}
