package strategy

import (
	"time"

	"github.com/newthinker/sigfuse/internal/classifier"
	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/indicator"
)

// Config holds strategy configuration
type Config struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params"`
}

// DataRequirements specifies what data a strategy needs
type DataRequirements struct {
	PriceHistory int  // Bars of history needed
	News         bool // Needs news articles
	NewsHours    int  // Lookback for news
}

// AnalysisContext provides fully materialized inputs to strategies.
// Strategies must treat every field as read-only.
type AnalysisContext struct {
	Symbol string
	Points []core.PricePoint
	Frame  *indicator.Frame
	Model  *classifier.Model
	News   []core.NewsItem
	Terms  []string // Search terms for news relevance
	Quote  *core.Quote
	Now    time.Time
}

// Strategy produces one sub-signal per analysis
type Strategy interface {
	Name() string
	Description() string
	RequiredData() DataRequirements
	Init(cfg Config) error
	Analyze(ctx AnalysisContext) (core.SubSignal, error)
}

// ParamInt reads an integer parameter, accepting the numeric types config
// decoders produce.
func ParamInt(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// ParamFloat reads a float parameter
func ParamFloat(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
