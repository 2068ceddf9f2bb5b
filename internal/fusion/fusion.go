// internal/fusion/fusion.go
package fusion

import (
	"math"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
)

// Component names used in a fused signal's breakdown.
const (
	ComponentTechnical = "technical"
	ComponentSentiment = "sentiment"
)

// Config holds the weighting and momentum parameters.
type Config struct {
	TechnicalCap       float64 `mapstructure:"technical_cap"`
	SentimentScale     float64 `mapstructure:"sentiment_scale"`
	SentimentCap       float64 `mapstructure:"sentiment_cap"`
	HighMovePct        float64 `mapstructure:"high_move_pct"`
	ModerateMovePct    float64 `mapstructure:"moderate_move_pct"`
	HighMoveFactor     float64 `mapstructure:"high_move_factor"`
	ModerateMoveFactor float64 `mapstructure:"moderate_move_factor"`
}

// DefaultConfig returns the standard fusion parameters.
func DefaultConfig() Config {
	return Config{
		TechnicalCap:       0.9,
		SentimentScale:     0.8,
		SentimentCap:       0.7,
		HighMovePct:        3,
		ModerateMovePct:    1,
		HighMoveFactor:     1.2,
		ModerateMoveFactor: 1.1,
	}
}

// Input is everything one fusion needs. Quote is optional.
type Input struct {
	Symbol    string
	Technical core.SubSignal
	Sentiment core.SubSignal
	Quote     *core.Quote
	Now       time.Time
}

// Engine fuses sub-signals. It holds only configuration and is safe for
// concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates a fusion engine
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Fuse combines in with the default configuration.
func Fuse(in Input) core.FusedSignal {
	return NewEngine(DefaultConfig()).Fuse(in)
}

// Fuse combines the technical and sentiment signals and the live price move
// into one recommendation. It is a pure function of in; ID is left empty.
func (e *Engine) Fuse(in Input) core.FusedSignal {
	tech := in.Technical
	sent := in.Sentiment
	sent.Action = NormalizeSentiment(sent.Action)

	techConf := core.ClampConfidence(tech.Confidence)
	sentConf := core.ClampConfidence(sent.Confidence)

	wTech := math.Min(techConf/100, e.cfg.TechnicalCap)
	wSent := math.Min(sentConf/100*e.cfg.SentimentScale, e.cfg.SentimentCap)

	market := e.marketSnapshot(in.Quote)

	techScore := actionScore(tech.Action) * wTech
	sentScore := actionScore(sent.Action) * wSent

	var combined float64
	if total := wTech + wSent; total > 0 {
		combined = (techScore + sentScore) / total * market.MomentumFactor
	}

	action, conf := scoreToAction(combined)
	reason := rationale(combined, tech.Action, sent.Action, techConf, sentConf)

	return core.FusedSignal{
		Symbol:     in.Symbol,
		Action:     action,
		Confidence: conf,
		Score:      combined,
		Reason:     reason,
		Components: []core.Component{
			{Name: ComponentTechnical, Signal: tech, Weight: wTech, Score: techScore},
			{Name: ComponentSentiment, Signal: sent, Weight: wSent, Score: sentScore},
		},
		Market:      market,
		GeneratedAt: in.Now,
	}
}

// MomentumFactor amplifies the fused score on large live moves. It never
// changes direction.
func (e *Engine) MomentumFactor(changePct float64) float64 {
	move := math.Abs(changePct)
	switch {
	case move > e.cfg.HighMovePct:
		return e.cfg.HighMoveFactor
	case move > e.cfg.ModerateMovePct:
		return e.cfg.ModerateMoveFactor
	default:
		return 1.0
	}
}

func (e *Engine) marketSnapshot(q *core.Quote) core.MarketSnapshot {
	if q == nil || !q.IsValid() {
		return core.MarketSnapshot{MomentumFactor: 1.0}
	}
	return core.MarketSnapshot{
		Available:      true,
		Price:          q.Price,
		ChangePct:      q.ChangePct,
		MomentumFactor: e.MomentumFactor(q.ChangePct),
	}
}

// NormalizeSentiment collapses sentiment actions and labels onto BUY, SELL
// and HOLD. Technical signals are never normalized.
func NormalizeSentiment(a core.Action) core.Action {
	switch a {
	case core.ActionWeakBuy, "BULLISH":
		return core.ActionBuy
	case core.ActionWeakSell, "BEARISH":
		return core.ActionSell
	case "NEUTRAL":
		return core.ActionHold
	}
	if !a.IsValid() {
		return core.ActionHold
	}
	return a
}

// actionScore maps an action onto [-100,100]; unknown actions score 0.
func actionScore(a core.Action) float64 {
	return core.Clamp(a.Score(), -100, 100)
}

// scoreToAction thresholds the combined score. Confidence floors rise with
// the tier and never exceed 95.
func scoreToAction(score float64) (core.Action, float64) {
	abs := math.Abs(score)
	var action core.Action
	var conf float64

	switch {
	case score > 60:
		action, conf = core.ActionStrongBuy, math.Min(95, abs+20)
	case score > 30:
		action, conf = core.ActionBuy, math.Min(90, abs+15)
	case score > 10:
		action, conf = core.ActionWeakBuy, math.Min(80, abs+50)
	case score < -60:
		action, conf = core.ActionStrongSell, math.Min(95, abs+20)
	case score < -30:
		action, conf = core.ActionSell, math.Min(90, abs+15)
	case score < -10:
		action, conf = core.ActionWeakSell, math.Min(80, abs+50)
	default:
		action, conf = core.ActionHold, math.Min(95, 50+abs)
	}

	return action, core.Clamp(conf, 0, 95)
}
