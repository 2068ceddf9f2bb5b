package sink

import (
	"time"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/fusion"
)

var testTime = time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)

func testSignal(id, symbol string, action core.Action, conf float64) core.FusedSignal {
	return core.FusedSignal{
		ID:         id,
		Symbol:     symbol,
		Action:     action,
		Confidence: conf,
		Score:      42,
		Reason:     "test",
		Components: []core.Component{
			{Name: fusion.ComponentTechnical, Signal: core.SubSignal{Source: "technical", Action: core.ActionBuy, Confidence: 80}, Weight: 0.8, Score: 56},
			{Name: fusion.ComponentSentiment, Signal: core.SubSignal{Source: "sentiment", Action: core.ActionHold, Confidence: 50}, Weight: 0.4, Score: 0},
		},
		Market:      core.MarketSnapshot{Available: true, Price: 190, ChangePct: 1.2, MomentumFactor: 1.1},
		GeneratedAt: testTime,
	}
}
