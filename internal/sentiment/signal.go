package sentiment

import (
	"fmt"

	"github.com/newthinker/sigfuse/internal/core"
)

// SignalSource names sub-signals produced from sentiment.
const SignalSource = "sentiment"

// Confidence gates for turning a label into an action.
const (
	StrongConfidence = 70.0
	WeakConfidence   = 60.0
)

// ToSignal maps a result onto the action scale. Only directional labels
// with enough confidence produce anything other than HOLD.
func ToSignal(r Result) core.SubSignal {
	sig := core.SubSignal{
		Source:     SignalSource,
		Action:     core.ActionHold,
		Confidence: core.ClampConfidence(r.Confidence),
		Metadata: map[string]any{
			"label":         string(r.Label),
			"score":         r.Score,
			"article_count": r.ArticleCount,
		},
	}

	switch {
	case r.Label == LabelBullish && r.Confidence > StrongConfidence:
		sig.Action = core.ActionBuy
		sig.Reason = fmt.Sprintf("Strong positive sentiment (%.1f%% confidence)", r.Confidence)
	case r.Label == LabelBearish && r.Confidence > StrongConfidence:
		sig.Action = core.ActionSell
		sig.Reason = fmt.Sprintf("Strong negative sentiment (%.1f%% confidence)", r.Confidence)
	case r.Label == LabelBullish && r.Confidence > WeakConfidence:
		sig.Action = core.ActionWeakBuy
		sig.Reason = fmt.Sprintf("Moderate positive sentiment (%.1f%% confidence)", r.Confidence)
	case r.Label == LabelBearish && r.Confidence > WeakConfidence:
		sig.Action = core.ActionWeakSell
		sig.Reason = fmt.Sprintf("Moderate negative sentiment (%.1f%% confidence)", r.Confidence)
	default:
		sig.Reason = fmt.Sprintf("Neutral sentiment or low confidence (%.1f%%)", r.Confidence)
	}

	return sig
}

// MarketMood summarizes sentiment across several symbols
type MarketMood struct {
	Label         Label   `json:"label"`
	Score         float64 `json:"score"`
	Confidence    float64 `json:"confidence"`
	TotalArticles int     `json:"total_articles"`
	Symbols       int     `json:"symbols"`
}

// Market averages the scores of results that saw at least one article.
// Confidence averages over every result, including empty ones.
func Market(results map[string]Result) MarketMood {
	mood := MarketMood{Label: LabelNeutral, Symbols: len(results)}

	var scoreSum, confSum float64
	withArticles := 0
	for _, r := range results {
		mood.TotalArticles += r.ArticleCount
		confSum += r.Confidence
		if r.ArticleCount > 0 {
			scoreSum += r.Score
			withArticles++
		}
	}
	if withArticles == 0 {
		return mood
	}

	mood.Score = scoreSum / float64(withArticles)
	mood.Confidence = confSum / float64(len(results))
	switch {
	case mood.Score > LabelBand:
		mood.Label = LabelBullish
	case mood.Score < -LabelBand:
		mood.Label = LabelBearish
	}
	return mood
}
