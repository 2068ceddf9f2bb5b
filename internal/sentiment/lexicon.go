package sentiment

import (
	"strings"
	"unicode"
)

// Polarizer scores the general polarity of free text in [-1,1].
type Polarizer interface {
	Polarity(text string) float64
}

// LexiconPolarizer averages word polarities from a fixed lexicon. A negator
// within the two preceding words flips and halves a word's polarity; an
// intensifier immediately before it scales it.
type LexiconPolarizer struct {
	words        map[string]float64
	intensifiers map[string]float64
	negators     map[string]bool
}

// NewLexiconPolarizer returns a polarizer over the built-in lexicon
func NewLexiconPolarizer() *LexiconPolarizer {
	return &LexiconPolarizer{
		words:        defaultLexicon,
		intensifiers: defaultIntensifiers,
		negators:     defaultNegators,
	}
}

// Polarity implements Polarizer. Text with no lexicon words scores 0.
func (p *LexiconPolarizer) Polarity(text string) float64 {
	tokens := tokenize(text)

	var sum float64
	n := 0
	for i, tok := range tokens {
		v, ok := p.words[tok]
		if !ok {
			continue
		}
		if i > 0 {
			if m, ok := p.intensifiers[tokens[i-1]]; ok {
				v *= m
			}
		}
		if p.negated(tokens, i) {
			v *= -0.5
		}
		sum += clampUnit(v)
		n++
	}

	if n == 0 {
		return 0
	}
	return clampUnit(sum / float64(n))
}

func (p *LexiconPolarizer) negated(tokens []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-2; j-- {
		if p.negators[tokens[j]] || strings.HasSuffix(tokens[j], "n't") {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

var defaultNegators = map[string]bool{
	"not": true, "no": true, "never": true, "without": true,
	"neither": true, "nor": true, "hardly": true,
}

var defaultIntensifiers = map[string]float64{
	"very":          1.3,
	"really":        1.3,
	"highly":        1.3,
	"extremely":     1.5,
	"incredibly":    1.5,
	"remarkably":    1.4,
	"sharply":       1.4,
	"significantly": 1.3,
	"slightly":      0.5,
	"somewhat":      0.6,
	"marginally":    0.5,
}

var defaultLexicon = map[string]float64{
	"good": 0.7, "great": 0.8, "excellent": 1.0, "best": 1.0, "better": 0.5,
	"positive": 0.5, "strong": 0.43, "stronger": 0.5, "solid": 0.3,
	"impressive": 1.0, "success": 0.6, "successful": 0.75, "happy": 0.8,
	"optimistic": 0.6, "confident": 0.5, "win": 0.8, "wins": 0.8,
	"gain": 0.4, "gains": 0.4, "rise": 0.3, "rises": 0.3, "rising": 0.3,
	"surge": 0.5, "surges": 0.5, "soar": 0.6, "soars": 0.6, "jump": 0.4, "jumps": 0.4,
	"rally": 0.5, "rallies": 0.5, "beat": 0.4, "beats": 0.4, "record": 0.3,
	"upbeat": 0.6, "boost": 0.4, "boosts": 0.4, "improve": 0.4, "improved": 0.4,
	"robust": 0.5, "healthy": 0.5, "outperform": 0.6, "outperforms": 0.6,
	"bad": -0.7, "worse": -0.4, "worst": -1.0, "poor": -0.4, "weak": -0.38,
	"weaker": -0.45, "negative": -0.3, "terrible": -1.0, "awful": -1.0,
	"disappointing": -0.6, "disappoint": -0.6, "disappoints": -0.6,
	"fail": -0.5, "fails": -0.5, "failed": -0.5, "failure": -0.6,
	"fear": -0.6, "fears": -0.6, "worried": -0.5, "worry": -0.5, "concern": -0.3,
	"concerns": -0.3, "risk": -0.2, "risky": -0.4, "uncertain": -0.3,
	"drop": -0.4, "drops": -0.4, "fall": -0.3, "falls": -0.3, "falling": -0.35,
	"plunge": -0.7, "plunges": -0.7, "slump": -0.6, "slumps": -0.6,
	"tumble": -0.6, "tumbles": -0.6, "sink": -0.5, "sinks": -0.5,
	"miss": -0.4, "misses": -0.4, "cut": -0.3, "cuts": -0.3, "warning": -0.4,
	"underperform": -0.6, "underperforms": -0.6, "pessimistic": -0.6,
	"slowdown": -0.4, "struggle": -0.5, "struggles": -0.5, "trouble": -0.5,
}
