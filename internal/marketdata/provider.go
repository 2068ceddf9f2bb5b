// Package marketdata supplies price history and live quotes.
package marketdata

import (
	"context"
	"fmt"
	"regexp"
	"slices"

	"github.com/newthinker/sigfuse/internal/core"
)

// HistoryProvider returns up to lookback most recent daily bars, oldest first.
type HistoryProvider interface {
	Name() string
	History(ctx context.Context, symbol string, lookback int) ([]core.PricePoint, error)
}

// QuoteProvider returns the latest live quote for a symbol
type QuoteProvider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*core.Quote, error)
}

// Provider serves both history and quotes
type Provider interface {
	HistoryProvider
	QuoteProvider
}

// validSymbol matches stock symbols like AAPL, MSFT, 600519.SH, 0700.HK, BRK-B
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9^][A-Za-z0-9-]{0,9}(\.[A-Za-z]{1,4})?$`)

// ValidateSymbol checks if a symbol has valid format
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Normalize sorts points by time, drops duplicate timestamps (last one wins)
// and bars without a positive close, then keeps the newest lookback bars.
// lookback <= 0 keeps everything.
func Normalize(points []core.PricePoint, lookback int) []core.PricePoint {
	out := make([]core.PricePoint, 0, len(points))
	for _, p := range points {
		if p.Close > 0 && !p.Time.IsZero() {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b core.PricePoint) int {
		return a.Time.Compare(b.Time)
	})

	dedup := out[:0]
	for _, p := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(p.Time) {
			dedup[n-1] = p
			continue
		}
		dedup = append(dedup, p)
	}

	if lookback > 0 && len(dedup) > lookback {
		dedup = dedup[len(dedup)-lookback:]
	}
	return dedup
}
