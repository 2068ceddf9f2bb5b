package strategy

import (
	"context"
	"sort"
	"sync"

	"github.com/newthinker/sigfuse/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine manages and runs strategies
type Engine struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		strategies: make(map[string]Strategy),
		logger:     l,
	}
}

// Register adds a strategy to the engine
func (e *Engine) Register(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
}

// Get retrieves a strategy by name
func (e *Engine) Get(name string) (Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.strategies[name]
	return s, ok
}

// GetAll returns all registered strategies ordered by name
func (e *Engine) GetAll() []Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Requirements merges the data needs of every registered strategy.
func (e *Engine) Requirements() DataRequirements {
	var req DataRequirements
	for _, s := range e.GetAll() {
		r := s.RequiredData()
		if r.PriceHistory > req.PriceHistory {
			req.PriceHistory = r.PriceHistory
		}
		if r.News {
			req.News = true
		}
		if r.NewsHours > req.NewsHours {
			req.NewsHours = r.NewsHours
		}
	}
	return req
}

// Analyze runs all strategies concurrently on the given context. A strategy
// that fails is logged and left out of the result.
func (e *Engine) Analyze(ctx context.Context, analysisCtx AnalysisContext) (map[string]core.SubSignal, error) {
	return e.run(ctx, analysisCtx, e.GetAll())
}

// AnalyzeWithStrategies runs specific strategies. Unknown names are skipped.
func (e *Engine) AnalyzeWithStrategies(ctx context.Context, analysisCtx AnalysisContext, strategyNames []string) (map[string]core.SubSignal, error) {
	strategies := make([]Strategy, 0, len(strategyNames))
	for _, name := range strategyNames {
		if s, ok := e.Get(name); ok {
			strategies = append(strategies, s)
		}
	}
	return e.run(ctx, analysisCtx, strategies)
}

func (e *Engine) run(ctx context.Context, analysisCtx AnalysisContext, strategies []Strategy) (map[string]core.SubSignal, error) {
	var (
		mu      sync.Mutex
		signals = make(map[string]core.SubSignal, len(strategies))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range strategies {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			sig, err := s.Analyze(analysisCtx)
			if err != nil {
				e.logger.Warn("strategy analysis failed",
					zap.String("strategy", s.Name()),
					zap.String("symbol", analysisCtx.Symbol),
					zap.Error(err),
				)
				return nil
			}

			sig.Source = s.Name()
			sig.Confidence = core.ClampConfidence(sig.Confidence)

			mu.Lock()
			signals[s.Name()] = sig
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return signals, err
	}
	return signals, nil
}
