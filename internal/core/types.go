package core

import "time"

// PricePoint represents one bar of a price series
type PricePoint struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Quote represents a live price snapshot
type Quote struct {
	Symbol    string
	Price     float64
	ChangePct float64 // Percent change vs previous close
	Time      time.Time
	Source    string
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0
}

// NewsItem represents a news article relevant to a symbol
type NewsItem struct {
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Text returns title and body joined for scoring.
func (n NewsItem) Text() string {
	if n.Body == "" {
		return n.Title
	}
	return n.Title + " " + n.Body
}

// Action represents a trading recommendation level
type Action string

const (
	ActionStrongBuy  Action = "STRONG_BUY"
	ActionBuy        Action = "BUY"
	ActionWeakBuy    Action = "WEAK_BUY"
	ActionHold       Action = "HOLD"
	ActionWeakSell   Action = "WEAK_SELL"
	ActionSell       Action = "SELL"
	ActionStrongSell Action = "STRONG_SELL"
)

// Actions lists every recommendation level from most bullish to most bearish.
var Actions = []Action{
	ActionStrongBuy, ActionBuy, ActionWeakBuy, ActionHold,
	ActionWeakSell, ActionSell, ActionStrongSell,
}

// IsValid reports whether a is one of the seven defined levels.
func (a Action) IsValid() bool {
	for _, v := range Actions {
		if a == v {
			return true
		}
	}
	return false
}

// Score maps an action onto the -100..100 fusion scale.
func (a Action) Score() float64 {
	switch a {
	case ActionStrongBuy:
		return 100
	case ActionBuy:
		return 70
	case ActionWeakBuy:
		return 40
	case ActionWeakSell:
		return -40
	case ActionSell:
		return -70
	case ActionStrongSell:
		return -100
	default:
		return 0
	}
}

// SubSignal is one independently computed recommendation feeding fusion
type SubSignal struct {
	Source     string         `json:"source"`
	Action     Action         `json:"action"`
	Confidence float64        `json:"confidence"` // 0-100
	Reason     string         `json:"reason"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// HoldSignal returns the neutral stand-in used whenever a source cannot decide.
func HoldSignal(source string, confidence float64, reason string) SubSignal {
	return SubSignal{
		Source:     source,
		Action:     ActionHold,
		Confidence: ClampConfidence(confidence),
		Reason:     reason,
	}
}

// Component is one weighted input of a fused signal
type Component struct {
	Name   string    `json:"name"`
	Signal SubSignal `json:"signal"`
	Weight float64   `json:"weight"`
	Score  float64   `json:"score"` // Weighted contribution
}

// MarketSnapshot records the live price context used for momentum
type MarketSnapshot struct {
	Available      bool    `json:"available"`
	Price          float64 `json:"price"`
	ChangePct      float64 `json:"change_pct"`
	MomentumFactor float64 `json:"momentum_factor"`
}

// FusedSignal is the final recommendation for one symbol
type FusedSignal struct {
	ID          string         `json:"id,omitempty"`
	Symbol      string         `json:"symbol"`
	Action      Action         `json:"action"`
	Confidence  float64        `json:"confidence"`
	Score       float64        `json:"score"`
	Reason      string         `json:"reason"`
	Components  []Component    `json:"components"`
	Market      MarketSnapshot `json:"market"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Component returns the named component, if present.
func (f FusedSignal) Component(name string) (Component, bool) {
	for _, c := range f.Components {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}

// ClampConfidence bounds a confidence value to [0,100].
func ClampConfidence(v float64) float64 {
	return Clamp(v, 0, 100)
}

// Clamp bounds v to [lo,hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
