package sentiment

import (
	"math"
	"testing"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedPolarizer returns a canned polarity per exact text.
type fixedPolarizer map[string]float64

func (f fixedPolarizer) Polarity(text string) float64 {
	return f[text]
}

func TestScore_Empty(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)

	for _, items := range [][]core.NewsItem{nil, {}} {
		r := s.Score(items, []string{"AAPL"})
		assert.Equal(t, LabelNeutral, r.Label)
		assert.Equal(t, 0.0, r.Confidence)
		assert.Equal(t, 0.0, r.Score)
		assert.Equal(t, 0, r.ArticleCount)
		assert.False(t, math.IsNaN(r.StdDev))
	}
}

func TestScore_CombinesSubScores(t *testing.T) {
	p := fixedPolarizer{
		"Apple rallies Strong growth ahead": 0.5,
		"Apple rallies":                     1.0,
	}
	s := NewScorer(DefaultConfig(), p)

	r := s.Score([]core.NewsItem{{Title: "Apple rallies", Body: "Strong growth ahead"}}, nil)
	require.Len(t, r.Articles, 1)

	a := r.Articles[0]
	assert.Equal(t, 0.5, a.Polarity)
	assert.Equal(t, 1.0, a.Keyword)
	assert.Equal(t, 1.0, a.TitlePolarity)
	assert.Equal(t, 1.0, a.Relevance)
	assert.InDelta(t, 0.8, a.Combined, 1e-12)

	assert.InDelta(t, 0.8, r.Score, 1e-12)
	assert.Equal(t, LabelBullish, r.Label)
	assert.Equal(t, 95.0, r.Confidence)
	assert.Equal(t, 1, r.Positive)
}

func TestScore_RelevanceWeighting(t *testing.T) {
	p := fixedPolarizer{"AAPL falls": -0.5, "AAPL": 0}
	s := NewScorer(DefaultConfig(), p)

	r := s.Score([]core.NewsItem{{Title: "AAPL", Body: "falls"}}, []string{"AAPL"})
	a := r.Articles[0]

	// combined = 0.4*-0.5 = -0.2; relevance = 1*4/10
	assert.InDelta(t, -0.2, a.Combined, 1e-12)
	assert.InDelta(t, 0.4, a.Relevance, 1e-12)
	assert.InDelta(t, -0.08, r.Score, 1e-12)
	assert.Equal(t, LabelNeutral, r.Label, "weighted score inside the band")
	assert.InDelta(t, -0.2, r.Average, 1e-12)
	assert.Equal(t, 1, r.Negative)
}

func TestScore_DistributionAndStdDev(t *testing.T) {
	p := fixedPolarizer{"up": 0.5, "down": -0.5, "flat": 0}
	s := NewScorer(Config{BullishKeywords: []string{"zzz"}, BearishKeywords: []string{"yyy"}}, p)

	r := s.Score([]core.NewsItem{{Title: "up"}, {Title: "down"}, {Title: "flat"}}, nil)

	assert.Equal(t, 3, r.ArticleCount)
	assert.Equal(t, 1, r.Positive)
	assert.Equal(t, 1, r.Negative)
	assert.Equal(t, 1, r.Neutral)
	assert.InDelta(t, 0, r.Average, 1e-12)

	// combined scores are ±0.35 and 0
	assert.InDelta(t, math.Sqrt(2*0.35*0.35/3), r.StdDev, 1e-12)
}

func TestScore_Bounds(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)
	texts := []string{
		"Excellent excellent record high profit growth, best quarter ever",
		"Terrible awful crash, bankruptcy and lawsuit, worst selloff",
		"Company holds annual meeting",
		"not bad, not good",
		"",
	}
	for _, text := range texts {
		r := s.Score([]core.NewsItem{{Title: text, Body: text}}, nil)
		assert.GreaterOrEqual(t, r.Score, -1.0, text)
		assert.LessOrEqual(t, r.Score, 1.0, text)
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 95.0)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score float64
		label Label
		conf  float64
	}{
		{0.1, LabelNeutral, 50},
		{-0.1, LabelNeutral, 50},
		{0.2, LabelBullish, 80},
		{-0.15, LabelBearish, 75},
		{0.6, LabelBullish, 95},
	}
	for _, tt := range tests {
		label, conf := classify(tt.score)
		assert.Equal(t, tt.label, label, "score %v", tt.score)
		assert.InDelta(t, tt.conf, conf, 1e-9, "score %v", tt.score)
	}
}

func TestKeywordScore(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)

	assert.InDelta(t, 0.5, s.KeywordScore("Record High profit and growth despite lawsuit"), 1e-12)
	assert.Equal(t, -1.0, s.KeywordScore("Analyst downgrade after recession fears"))
	assert.Equal(t, 0.0, s.KeywordScore("Company holds annual meeting"))
}

func TestRelevance(t *testing.T) {
	assert.Equal(t, 1.0, Relevance("anything", nil))
	assert.InDelta(t, 0.8, Relevance("aapl rises as AAPL volume spikes", []string{"AAPL"}), 1e-12)
	assert.Equal(t, 1.0, Relevance("Apple and AAPL and AAPL", []string{"AAPL", "Apple"}))
	assert.Equal(t, 0.0, Relevance("Microsoft news", []string{"AAPL", " "}))
}

func TestMentions(t *testing.T) {
	assert.True(t, Mentions("Shares of apple rose", []string{"AAPL", "Apple"}))
	assert.False(t, Mentions("Shares of Microsoft rose", []string{"AAPL", "Apple"}))
	assert.False(t, Mentions("anything", nil))
}
