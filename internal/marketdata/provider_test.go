package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/sigfuse/internal/core"
)

func bar(day int, close float64) core.PricePoint {
	return core.PricePoint{Time: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC), Close: close}
}

func TestNormalize(t *testing.T) {
	in := []core.PricePoint{
		bar(3, 3),
		bar(1, 1),
		bar(2, 2),
		bar(2, 2.5), // duplicate, last wins
		bar(4, 0),   // no close
		{Close: 9},  // no time
	}

	out := Normalize(in, 0)
	require.Len(t, out, 3)
	assert.Equal(t, []float64{1, 2.5, 3}, []float64{out[0].Close, out[1].Close, out[2].Close})

	assert.Len(t, Normalize(in, 2), 2)
	assert.Equal(t, 3.0, Normalize(in, 1)[0].Close)
	assert.Empty(t, Normalize(nil, 5))
}

func TestStatic(t *testing.T) {
	s := NewStatic()
	s.SetHistory("AAPL", []core.PricePoint{bar(2, 2), bar(1, 1), bar(3, 3)})
	s.SetQuote(core.Quote{Symbol: "AAPL", Price: 3})
	ctx := context.Background()

	points, err := s.History(ctx, "AAPL", 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, points[0].Close)

	points[0].Close = 99
	again, _ := s.History(ctx, "AAPL", 2)
	assert.Equal(t, 2.0, again[0].Close, "callers get a copy")

	q, err := s.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 3.0, q.Price)

	_, err = s.History(ctx, "MSFT", 1)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	_, err = s.Quote(ctx, "MSFT")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestFallback(t *testing.T) {
	empty := NewStatic()
	full := NewStatic()
	full.SetHistory("AAPL", []core.PricePoint{bar(1, 1)})
	full.SetQuote(core.Quote{Symbol: "AAPL", Price: 1})
	ctx := context.Background()

	f := NewFallback(empty, full)
	assert.Equal(t, "static,static", f.Name())

	points, err := f.History(ctx, "AAPL", 10)
	require.NoError(t, err)
	assert.Len(t, points, 1)

	q, err := f.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1.0, q.Price)

	_, err = f.History(ctx, "MSFT", 10)
	assert.True(t, errors.Is(err, core.ErrProviderFailed))

	_, err = NewFallback().Quote(ctx, "AAPL")
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}
