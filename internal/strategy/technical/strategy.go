// Package technical combines an RSI threshold rule with the direction
// classifier into a single technical signal.
package technical

import (
	"fmt"
	"math"

	"github.com/newthinker/sigfuse/internal/classifier"
	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/indicator"
	"github.com/newthinker/sigfuse/internal/strategy"
)

// Name is the strategy name registered with the engine
const Name = "technical"

// RSISource names the rule-based half of the composite.
const RSISource = "rsi"

// Config holds the RSI rule parameters
type Config struct {
	RSIPeriod  int     `mapstructure:"rsi_period"`
	Oversold   float64 `mapstructure:"oversold"`
	Overbought float64 `mapstructure:"overbought"`
}

// DefaultConfig returns the standard 14/30/70 rule
func DefaultConfig() Config {
	return Config{RSIPeriod: 14, Oversold: 30, Overbought: 70}
}

// RSISignal applies the oversold/overbought rule. A missing RSI value is a
// neutral signal, never a directional one.
func RSISignal(rsi float64, ok bool, cfg Config) core.SubSignal {
	if !ok {
		return core.HoldSignal(RSISource, 50, "RSI unavailable (insufficient data)")
	}

	var sig core.SubSignal
	switch {
	case rsi <= cfg.Oversold:
		sig = core.SubSignal{
			Action:     core.ActionBuy,
			Confidence: math.Min(90, (cfg.Oversold-rsi)*2+70),
			Reason:     fmt.Sprintf("RSI (%.1f) oversold", rsi),
		}
	case rsi >= cfg.Overbought:
		sig = core.SubSignal{
			Action:     core.ActionSell,
			Confidence: math.Min(90, (rsi-cfg.Overbought)*2+70),
			Reason:     fmt.Sprintf("RSI (%.1f) overbought", rsi),
		}
	default:
		sig = core.SubSignal{
			Action:     core.ActionHold,
			Confidence: 50,
			Reason:     fmt.Sprintf("RSI (%.1f) neutral", rsi),
		}
	}

	sig.Source = RSISource
	sig.Confidence = core.ClampConfidence(sig.Confidence)
	sig.Metadata = map[string]any{"rsi": rsi}
	return sig
}

// Compose merges the RSI and ML signals. Agreement raises confidence;
// on disagreement the more confident side wins at a discount, and ties go
// to RSI.
func Compose(rsi, ml core.SubSignal) core.SubSignal {
	out := core.SubSignal{Source: Name}

	switch {
	case rsi.Action == ml.Action:
		out.Action = rsi.Action
		out.Confidence = math.Min(95, (rsi.Confidence+ml.Confidence)/2+10)
		out.Reason = fmt.Sprintf("RSI and ML both suggest %s", rsi.Action)
	case rsi.Confidence >= ml.Confidence:
		out.Action = rsi.Action
		out.Confidence = rsi.Confidence * 0.8
		out.Reason = fmt.Sprintf("RSI (%s) overrides ML (%s)", rsi.Action, ml.Action)
	default:
		out.Action = ml.Action
		out.Confidence = ml.Confidence * 0.8
		out.Reason = fmt.Sprintf("ML (%s) overrides RSI (%s)", ml.Action, rsi.Action)
	}

	out.Confidence = core.ClampConfidence(out.Confidence)
	out.Metadata = map[string]any{
		"rsi": rsi,
		"ml":  ml,
	}
	return out
}

// Strategy is the technical signal composer
type Strategy struct {
	cfg Config
}

// New creates the strategy with cfg; zero fields take defaults.
func New(cfg Config) *Strategy {
	s := &Strategy{cfg: DefaultConfig()}
	s.apply(cfg)
	return s
}

func (s *Strategy) apply(cfg Config) {
	if cfg.RSIPeriod > 0 {
		s.cfg.RSIPeriod = cfg.RSIPeriod
	}
	if cfg.Oversold > 0 {
		s.cfg.Oversold = cfg.Oversold
	}
	if cfg.Overbought > 0 {
		s.cfg.Overbought = cfg.Overbought
	}
}

func (s *Strategy) Name() string {
	return Name
}

func (s *Strategy) Description() string {
	return fmt.Sprintf("RSI(%d) %.0f/%.0f with ML direction classifier",
		s.cfg.RSIPeriod, s.cfg.Oversold, s.cfg.Overbought)
}

func (s *Strategy) RequiredData() strategy.DataRequirements {
	// Enough history for the 50-bar features plus the training minimum.
	return strategy.DataRequirements{PriceHistory: 250}
}

func (s *Strategy) Init(cfg strategy.Config) error {
	next := s.cfg
	if v, ok := strategy.ParamInt(cfg.Params, "rsi_period"); ok {
		next.RSIPeriod = v
	}
	if v, ok := strategy.ParamFloat(cfg.Params, "oversold"); ok {
		next.Oversold = v
	}
	if v, ok := strategy.ParamFloat(cfg.Params, "overbought"); ok {
		next.Overbought = v
	}
	if next.RSIPeriod <= 0 || next.Oversold >= next.Overbought {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("technical: need rsi_period > 0 and oversold < overbought, got %d %.1f/%.1f",
				next.RSIPeriod, next.Oversold, next.Overbought))
	}
	s.cfg = next
	return nil
}

// Config returns the effective rule parameters
func (s *Strategy) Config() Config {
	return s.cfg
}

// Analyze composes the latest bar's signal. Missing price data yields HOLD.
func (s *Strategy) Analyze(ctx strategy.AnalysisContext) (core.SubSignal, error) {
	points := ctx.Points
	if len(points) == 0 && ctx.Frame != nil {
		points = ctx.Frame.Points()
	}
	if len(points) == 0 {
		return core.HoldSignal(Name, 50, "No data available"), nil
	}

	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	rsiValue, ok := indicator.RSI(closes, s.cfg.RSIPeriod).Last()
	rsiSig := RSISignal(rsiValue, ok, s.cfg)

	mlSig := classifier.SignalFor(nil, indicator.FeatureVector{})
	if ctx.Model != nil && ctx.Frame != nil {
		if row, ok := ctx.Frame.LatestRow(ctx.Model.Features()...); ok {
			mlSig = classifier.SignalFor(ctx.Model, row)
		} else {
			mlSig = core.HoldSignal(classifier.SignalSource, classifier.NoModelConfidence, "ML features incomplete")
		}
	}

	sig := Compose(rsiSig, mlSig)
	sig.Metadata["price"] = points[len(points)-1].Close
	return sig, nil
}
