package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexiconPolarizer(t *testing.T) {
	p := NewLexiconPolarizer()

	good := p.Polarity("good")
	assert.InDelta(t, 0.7, good, 1e-12)
	assert.Greater(t, p.Polarity("very good"), good)
	assert.Less(t, p.Polarity("slightly good"), good)
	assert.InDelta(t, -0.35, p.Polarity("not good"), 1e-12)
	assert.Less(t, p.Polarity("isn't really good"), 0.0)
	assert.Less(t, p.Polarity("Shares plunge after terrible quarter"), 0.0)
	assert.Greater(t, p.Polarity("Excellent results, shares surge"), 0.0)

	assert.Equal(t, 0.0, p.Polarity(""))
	assert.Equal(t, 0.0, p.Polarity("The company held its annual meeting"))
}

func TestLexiconPolarizer_Bounded(t *testing.T) {
	p := NewLexiconPolarizer()
	for _, text := range []string{
		"extremely excellent",
		"incredibly terrible awful worst",
		"not not not bad",
	} {
		v := p.Polarity(text)
		assert.GreaterOrEqual(t, v, -1.0, text)
		assert.LessOrEqual(t, v, 1.0, text)
	}
}
