// internal/fusion/rationale.go
package fusion

import (
	"fmt"
	"math"

	"github.com/newthinker/sigfuse/internal/core"
)

// DominanceScore is the combined score magnitude above which the more
// confident component is named as dominant.
const DominanceScore = 40.0

// rationale explains a fused result. Rules are tried in order: consensus,
// dominance, mixed, single source, none.
func rationale(score float64, tech, sent core.Action, techConf, sentConf float64) string {
	switch {
	case agree(tech, sent):
		return fmt.Sprintf("RSI/ML and Sentiment both suggest %s - Strong consensus", tech)
	case math.Abs(score) > DominanceScore:
		stronger := sent
		if techConf > sentConf {
			stronger = tech
		}
		return fmt.Sprintf("Strong %s signal dominates (Score: %.1f)", stronger, score)
	case tech != core.ActionHold && sent != core.ActionHold:
		return fmt.Sprintf("Mixed signals: RSI/ML says %s, Sentiment says %s", tech, sent)
	case tech != core.ActionHold:
		return fmt.Sprintf("Based primarily on technical analysis: %s", tech)
	case sent != core.ActionHold:
		return fmt.Sprintf("Based primarily on news sentiment: %s", sent)
	default:
		return "No clear directional signals from any component"
	}
}

// agree reports a directional consensus: identical actions other than HOLD.
func agree(actions ...core.Action) bool {
	if len(actions) == 0 || actions[0] == core.ActionHold {
		return false
	}
	for _, a := range actions[1:] {
		if a != actions[0] {
			return false
		}
	}
	return true
}
