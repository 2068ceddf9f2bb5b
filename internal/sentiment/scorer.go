// Package sentiment scores news text into a directional sentiment reading.
package sentiment

import (
	"math"
	"strings"

	"github.com/newthinker/sigfuse/internal/core"
)

// Label is the overall direction of a set of articles
type Label string

const (
	LabelBullish Label = "BULLISH"
	LabelBearish Label = "BEARISH"
	LabelNeutral Label = "NEUTRAL"
)

// Score weights and thresholds.
const (
	polarityWeight = 0.4
	keywordWeight  = 0.3
	titleWeight    = 0.3

	// LabelBand is the weighted score magnitude needed for a directional label.
	LabelBand = 0.1
	// DistributionBand separates positive/negative articles from neutral ones.
	DistributionBand = 0.05
)

// DefaultBullishKeywords are financial phrases counted as positive evidence.
var DefaultBullishKeywords = []string{
	"growth", "profit", "earnings beat", "upgrade", "bullish", "positive outlook",
	"strong performance", "record high", "expansion", "breakthrough", "acquisition",
	"merger", "dividend increase", "buyback", "innovation", "partnership",
}

// DefaultBearishKeywords are financial phrases counted as negative evidence.
var DefaultBearishKeywords = []string{
	"loss", "decline", "downgrade", "bearish", "negative outlook", "weak performance",
	"lawsuit", "investigation", "recession", "bankruptcy", "layoffs", "scandal",
	"controversy", "volatility", "crash", "correction", "selloff",
}

// Config holds the keyword lists
type Config struct {
	BullishKeywords []string `mapstructure:"bullish_keywords"`
	BearishKeywords []string `mapstructure:"bearish_keywords"`
}

// DefaultConfig returns the built-in keyword lists
func DefaultConfig() Config {
	return Config{
		BullishKeywords: DefaultBullishKeywords,
		BearishKeywords: DefaultBearishKeywords,
	}
}

// ArticleScore is the breakdown for one article
type ArticleScore struct {
	Title         string  `json:"title"`
	Polarity      float64 `json:"polarity"`
	Keyword       float64 `json:"keyword"`
	TitlePolarity float64 `json:"title_polarity"`
	Combined      float64 `json:"combined"`
	Relevance     float64 `json:"relevance"`
	Weighted      float64 `json:"weighted"`
}

// Result is the aggregate sentiment over a set of articles
type Result struct {
	Label        Label          `json:"label"`
	Confidence   float64        `json:"confidence"`
	Score        float64        `json:"score"`   // Mean relevance-weighted score, [-1,1]
	Average      float64        `json:"average"` // Mean unweighted score
	StdDev       float64        `json:"std_dev"`
	ArticleCount int            `json:"article_count"`
	Positive     int            `json:"positive"`
	Negative     int            `json:"negative"`
	Neutral      int            `json:"neutral"`
	Articles     []ArticleScore `json:"articles,omitempty"`
}

// Empty returns the result for zero articles
func Empty() Result {
	return Result{Label: LabelNeutral}
}

// Scorer computes sentiment. It holds no mutable state.
type Scorer struct {
	polarizer Polarizer
	bullish   []string
	bearish   []string
}

// NewScorer creates a scorer. A nil polarizer selects the built-in lexicon.
func NewScorer(cfg Config, polarizer Polarizer) *Scorer {
	if polarizer == nil {
		polarizer = NewLexiconPolarizer()
	}
	if len(cfg.BullishKeywords) == 0 {
		cfg.BullishKeywords = DefaultBullishKeywords
	}
	if len(cfg.BearishKeywords) == 0 {
		cfg.BearishKeywords = DefaultBearishKeywords
	}
	return &Scorer{
		polarizer: polarizer,
		bullish:   lowerAll(cfg.BullishKeywords),
		bearish:   lowerAll(cfg.BearishKeywords),
	}
}

// Score aggregates items. terms are the symbol's search terms used for
// relevance weighting; with no terms every article has relevance 1.
func (s *Scorer) Score(items []core.NewsItem, terms []string) Result {
	if len(items) == 0 {
		return Empty()
	}

	res := Result{
		ArticleCount: len(items),
		Articles:     make([]ArticleScore, 0, len(items)),
	}

	combined := make([]float64, len(items))
	var weightedSum float64
	for i, item := range items {
		a := s.scoreArticle(item, terms)
		res.Articles = append(res.Articles, a)
		combined[i] = a.Combined
		weightedSum += a.Weighted

		switch {
		case a.Combined > DistributionBand:
			res.Positive++
		case a.Combined < -DistributionBand:
			res.Negative++
		}
	}
	res.Neutral = len(items) - res.Positive - res.Negative

	n := float64(len(items))
	res.Score = clampUnit(weightedSum / n)
	res.Average, res.StdDev = meanStd(combined)
	res.Label, res.Confidence = classify(res.Score)

	return res
}

func (s *Scorer) scoreArticle(item core.NewsItem, terms []string) ArticleScore {
	text := item.Text()

	a := ArticleScore{
		Title:         item.Title,
		Polarity:      s.polarizer.Polarity(text),
		Keyword:       s.KeywordScore(text),
		TitlePolarity: s.polarizer.Polarity(item.Title),
		Relevance:     Relevance(text, terms),
	}
	a.Combined = clampUnit(polarityWeight*a.Polarity + keywordWeight*a.Keyword + titleWeight*a.TitlePolarity)
	a.Weighted = a.Combined * a.Relevance
	return a
}

// KeywordScore is (bullish - bearish) / (bullish + bearish) over keyword
// phrases present in text, or 0 when none are.
func (s *Scorer) KeywordScore(text string) float64 {
	lower := strings.ToLower(text)

	bull, bear := 0, 0
	for _, k := range s.bullish {
		if strings.Contains(lower, k) {
			bull++
		}
	}
	for _, k := range s.bearish {
		if strings.Contains(lower, k) {
			bear++
		}
	}

	total := bull + bear
	if total == 0 {
		return 0
	}
	return float64(bull-bear) / float64(total)
}

// Relevance weights an article by how often, and how specifically, it
// mentions the search terms: sum of count(term)*len(term)/10, capped at 1.
// No terms means full relevance.
func Relevance(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 1
	}

	upper := strings.ToUpper(text)
	var rel float64
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		count := strings.Count(upper, strings.ToUpper(term))
		rel += float64(count) * float64(len(term)) / 10
	}
	return math.Min(rel, 1)
}

// Mentions reports whether text contains any of terms, case-insensitively.
func Mentions(text string, terms []string) bool {
	upper := strings.ToUpper(text)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term != "" && strings.Contains(upper, strings.ToUpper(term)) {
			return true
		}
	}
	return false
}

func classify(score float64) (Label, float64) {
	switch {
	case score > LabelBand:
		return LabelBullish, math.Min(95, math.Abs(score)*100+60)
	case score < -LabelBand:
		return LabelBearish, math.Min(95, math.Abs(score)*100+60)
	default:
		return LabelNeutral, 50
	}
}

// meanStd returns the mean and population standard deviation.
func meanStd(v []float64) (float64, float64) {
	if len(v) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))

	var ss float64
	for _, x := range v {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(v)))
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
