package marketdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/newthinker/sigfuse/internal/core"
)

// Static serves fixed in-memory data. Used for offline runs and tests.
type Static struct {
	mu      sync.RWMutex
	history map[string][]core.PricePoint
	quotes  map[string]core.Quote
}

// NewStatic creates an empty static provider
func NewStatic() *Static {
	return &Static{
		history: make(map[string][]core.PricePoint),
		quotes:  make(map[string]core.Quote),
	}
}

func (s *Static) Name() string {
	return "static"
}

// SetHistory replaces the bars for symbol
func (s *Static) SetHistory(symbol string, points []core.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[symbol] = Normalize(points, 0)
}

// SetQuote replaces the quote for q.Symbol
func (s *Static) SetQuote(q core.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.Symbol] = q
}

func (s *Static) History(ctx context.Context, symbol string, lookback int) ([]core.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.history[symbol]
	if !ok {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("no history for %s", symbol))
	}
	if lookback > 0 && len(points) > lookback {
		points = points[len(points)-lookback:]
	}
	out := make([]core.PricePoint, len(points))
	copy(out, points)
	return out, nil
}

func (s *Static) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[symbol]
	if !ok {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("no quote for %s", symbol))
	}
	return &q, nil
}
