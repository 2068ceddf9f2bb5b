package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/sentiment"
	"github.com/newthinker/sigfuse/internal/sink"
)

type countingSink struct {
	n atomic.Int64
}

func (c *countingSink) Name() string { return "counting" }
func (c *countingSink) Publish(context.Context, sink.Record, time.Duration) error {
	c.n.Add(1)
	return nil
}

func TestWatcher_Watchlist(t *testing.T) {
	w := NewWatcher(NewAnalyzer(DefaultConfig()), WatchConfig{}, nil)

	w.SetWatchlist([]string{"AAPL", " MSFT ", "AAPL", ""})
	assert.Equal(t, []string{"AAPL", "MSFT"}, w.Watchlist())

	w.Add("TSLA")
	w.Add("MSFT")
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, w.Watchlist())
	assert.True(t, w.Watching("TSLA"))

	assert.True(t, w.Remove("MSFT"))
	assert.False(t, w.Remove("MSFT"))
	assert.Equal(t, []string{"AAPL", "TSLA"}, w.Watchlist())
	assert.False(t, w.Watching("MSFT"))
}

func TestWatcher_RunOnce(t *testing.T) {
	counter := &countingSink{}
	a := NewAnalyzer(DefaultConfig(), WithSinks(counter))
	w := NewWatcher(a, WatchConfig{Parallelism: 2}, nil)
	w.SetWatchlist([]string{"AAPL", "MSFT", "TSLA"})
	var hooked int
	w.OnCycle(func(_ CycleResult, n int) { hooked = n })

	res := w.RunOnce(context.Background())

	require.Len(t, res.Records, 3)
	for i, symbol := range []string{"AAPL", "MSFT", "TSLA"} {
		assert.Equal(t, symbol, res.Records[i].Signal.Symbol)
	}
	assert.Equal(t, int64(3), counter.n.Load())
	assert.Equal(t, sentiment.LabelNeutral, res.Mood.Label)
	assert.Equal(t, 3, res.Mood.Symbols)
	assert.Equal(t, 3, hooked)

	stats := w.Stats()
	assert.Equal(t, 1, stats["cycles"])
	assert.Equal(t, 3, stats["watchlist"])
}

func TestWatcher_RunOnceEmpty(t *testing.T) {
	w := NewWatcher(NewAnalyzer(DefaultConfig()), WatchConfig{}, nil)
	res := w.RunOnce(context.Background())
	assert.Empty(t, res.Records)
	assert.Equal(t, sentiment.LabelNeutral, res.Mood.Label)
}

func TestWatcher_StartStop(t *testing.T) {
	counter := &countingSink{}
	w := NewWatcher(NewAnalyzer(DefaultConfig(), WithSinks(counter)), WatchConfig{Interval: time.Hour}, nil)
	w.SetWatchlist([]string{"AAPL"})

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background(), nil) }()

	require.Eventually(t, func() bool { return counter.n.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Error(t, w.Start(context.Background(), nil), "second start is rejected")

	w.Stop()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, false, w.Stats()["running"])
}

func TestWatcher_Updates(t *testing.T) {
	counter := &countingSink{}
	w := NewWatcher(NewAnalyzer(DefaultConfig(), WithSinks(counter)),
		WatchConfig{Interval: time.Hour, Cooldown: time.Hour}, nil)
	w.SetWatchlist([]string{"AAPL"})

	updates := make(chan core.Quote)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, updates) }()

	// initial cycle
	require.Eventually(t, func() bool { return counter.n.Load() == 1 }, time.Second, 5*time.Millisecond)

	// unwatched symbols and updates inside the cooldown are ignored
	updates <- core.Quote{Symbol: "MSFT", Price: 400}
	updates <- core.Quote{Symbol: "AAPL", Price: 190}
	close(updates)

	cancel()
	<-done
	assert.Equal(t, int64(1), counter.n.Load())
}

func TestWatcher_Claim(t *testing.T) {
	w := NewWatcher(NewAnalyzer(DefaultConfig()), WatchConfig{Cooldown: time.Minute}, nil)
	now := time.Now()

	assert.True(t, w.claim("AAPL", now))
	assert.False(t, w.claim("AAPL", now.Add(30*time.Second)))
	assert.True(t, w.claim("AAPL", now.Add(2*time.Minute)))
	assert.True(t, w.claim("MSFT", now))
}
