package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/sentiment"
	"github.com/newthinker/sigfuse/internal/sink"
)

// WatchConfig controls the periodic analysis loop
type WatchConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Parallelism int           `mapstructure:"parallelism"`
	// Cooldown is the minimum gap between update-triggered analyses of one symbol
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// DefaultWatchConfig returns the standard loop settings
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Interval:    5 * time.Minute,
		Parallelism: 4,
		Cooldown:    time.Minute,
	}
}

// CycleResult summarizes one pass over the watchlist
type CycleResult struct {
	Records []sink.Record
	Mood    sentiment.MarketMood
	Elapsed time.Duration
}

// Watcher analyzes a watchlist on a fixed interval and, optionally, whenever
// a live quote update arrives for a watched symbol.
type Watcher struct {
	analyzer *Analyzer
	cfg      WatchConfig
	logger   *zap.Logger

	mu        sync.RWMutex
	watchlist []string
	watchset  map[string]struct{}
	lastRun   map[string]time.Time
	running   bool
	cancel    context.CancelFunc
	cycles    int
	lastCycle CycleResult
	onCycle   func(CycleResult, int)
}

// NewWatcher creates a watcher over analyzer
func NewWatcher(analyzer *Analyzer, cfg WatchConfig, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultWatchConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = def.Parallelism
	}
	return &Watcher{
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger,
		watchset: make(map[string]struct{}),
		lastRun:  make(map[string]time.Time),
	}
}

// OnCycle registers fn to run after every completed cycle with the result
// and the watchlist size.
func (w *Watcher) OnCycle(fn func(res CycleResult, watchlist int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onCycle = fn
}

// SetWatchlist replaces the symbols to monitor
func (w *Watcher) SetWatchlist(symbols []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchlist = w.watchlist[:0]
	w.watchset = make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		w.addLocked(s)
	}
}

// Add appends a symbol; duplicates are ignored
func (w *Watcher) Add(symbol string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.addLocked(symbol)
}

func (w *Watcher) addLocked(symbol string) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return
	}
	if _, exists := w.watchset[symbol]; exists {
		return
	}
	w.watchset[symbol] = struct{}{}
	w.watchlist = append(w.watchlist, symbol)
}

// Remove drops a symbol and reports whether it was watched
func (w *Watcher) Remove(symbol string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.watchset[symbol]; !exists {
		return false
	}
	delete(w.watchset, symbol)
	for i, s := range w.watchlist {
		if s == symbol {
			w.watchlist = append(w.watchlist[:i], w.watchlist[i+1:]...)
			break
		}
	}
	return true
}

// Watchlist returns the current symbols
func (w *Watcher) Watchlist() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.watchlist))
	copy(out, w.watchlist)
	return out
}

// Watching reports whether symbol is on the watchlist
func (w *Watcher) Watching(symbol string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.watchset[symbol]
	return ok
}

// Start runs a cycle immediately and then every interval until ctx is done
// or Stop is called. Quotes received on updates trigger an extra analysis of
// that symbol, at most once per cooldown. updates may be nil.
func (w *Watcher) Start(ctx context.Context, updates <-chan core.Quote) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		cancel()
	}()

	w.logger.Info("watcher starting",
		zap.Int("watchlist_count", len(w.Watchlist())),
		zap.Duration("interval", w.cfg.Interval),
		zap.Int("parallelism", w.cfg.Parallelism),
	)

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		case q, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			w.onUpdate(ctx, q)
		}
	}
}

// Stop cancels a running Start
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Watcher) onUpdate(ctx context.Context, q core.Quote) {
	if !w.Watching(q.Symbol) || !w.claim(q.Symbol, time.Now()) {
		return
	}
	w.logger.Debug("quote update", zap.String("symbol", q.Symbol), zap.Float64("change_pct", q.ChangePct))
	w.analyzer.Run(ctx, q.Symbol)
}

// claim records a run for symbol unless one happened within the cooldown
func (w *Watcher) claim(symbol string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if last, ok := w.lastRun[symbol]; ok && now.Sub(last) < w.cfg.Cooldown {
		return false
	}
	w.lastRun[symbol] = now
	return true
}

// RunOnce analyzes every watched symbol with bounded parallelism and returns
// the records in watchlist order.
func (w *Watcher) RunOnce(ctx context.Context) CycleResult {
	start := time.Now()
	symbols := w.Watchlist()
	if len(symbols) == 0 {
		w.logger.Debug("no symbols in watchlist")
		return CycleResult{Mood: sentiment.Market(nil)}
	}

	w.logger.Debug("starting analysis cycle", zap.Int("symbols", len(symbols)))

	records := make([]sink.Record, len(symbols))
	done := make([]bool, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Parallelism)
	for i, symbol := range symbols {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			w.claim(symbol, time.Now())
			records[i] = w.analyzer.Run(gctx, symbol)
			done[i] = true
			return nil
		})
	}
	g.Wait()

	res := CycleResult{Records: make([]sink.Record, 0, len(symbols))}
	results := make(map[string]sentiment.Result, len(symbols))
	for i, rec := range records {
		if !done[i] {
			continue
		}
		res.Records = append(res.Records, rec)
		if rec.Sentiment != nil {
			results[rec.Signal.Symbol] = *rec.Sentiment
		} else {
			results[rec.Signal.Symbol] = sentiment.Empty()
		}
	}
	res.Mood = sentiment.Market(results)
	res.Elapsed = time.Since(start)

	w.mu.Lock()
	w.cycles++
	w.lastCycle = res
	hook := w.onCycle
	size := len(w.watchlist)
	w.mu.Unlock()

	if hook != nil {
		hook(res, size)
	}

	w.logger.Info("analysis cycle complete",
		zap.Int("symbols", len(res.Records)),
		zap.String("market_mood", string(res.Mood.Label)),
		zap.Float64("mood_score", res.Mood.Score),
		zap.Int("articles", res.Mood.TotalArticles),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res
}

// Stats returns watcher statistics
func (w *Watcher) Stats() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return map[string]any{
		"running":     w.running,
		"watchlist":   len(w.watchlist),
		"cycles":      w.cycles,
		"last_cycle":  w.lastCycle.Elapsed.String(),
		"market_mood": w.lastCycle.Mood,
		"models":      len(w.analyzer.Session().Symbols()),
	}
}
