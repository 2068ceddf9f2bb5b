// Package newsflow turns scored news into a strategy signal.
package newsflow

import (
	"fmt"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/sentiment"
	"github.com/newthinker/sigfuse/internal/strategy"
)

// Name is the strategy name registered with the engine
const Name = "sentiment"

// ResultKey holds the full sentiment.Result in the signal metadata
const ResultKey = "result"

// Strategy scores the articles in the analysis context
type Strategy struct {
	scorer    *sentiment.Scorer
	hoursBack int
}

// New creates the strategy. A nil scorer uses the default lexicon and keywords.
func New(scorer *sentiment.Scorer, hoursBack int) *Strategy {
	if scorer == nil {
		scorer = sentiment.NewScorer(sentiment.DefaultConfig(), nil)
	}
	if hoursBack <= 0 {
		hoursBack = 24
	}
	return &Strategy{scorer: scorer, hoursBack: hoursBack}
}

func (s *Strategy) Name() string {
	return Name
}

func (s *Strategy) Description() string {
	return fmt.Sprintf("News sentiment over the last %dh", s.hoursBack)
}

func (s *Strategy) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{News: true, NewsHours: s.hoursBack}
}

func (s *Strategy) Init(cfg strategy.Config) error {
	if v, ok := strategy.ParamInt(cfg.Params, "hours_back"); ok {
		if v <= 0 {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("sentiment: hours_back must be positive, got %d", v))
		}
		s.hoursBack = v
	}
	return nil
}

// Analyze scores ctx.News. No articles yields a HOLD at zero confidence.
func (s *Strategy) Analyze(ctx strategy.AnalysisContext) (core.SubSignal, error) {
	res := s.scorer.Score(ctx.News, ctx.Terms)
	sig := sentiment.ToSignal(res)
	sig.Metadata["positive"] = res.Positive
	sig.Metadata["negative"] = res.Negative
	sig.Metadata["neutral"] = res.Neutral
	sig.Metadata["average"] = res.Average
	sig.Metadata["std_dev"] = res.StdDev
	sig.Metadata[ResultKey] = res
	return sig, nil
}
