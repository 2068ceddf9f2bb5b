package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/newthinker/sigfuse/internal/core"
)

// Fallback tries each provider in order and returns the first success
type Fallback struct {
	providers []Provider
}

// NewFallback chains providers, e.g. the Redis bridge ahead of Yahoo
func NewFallback(providers ...Provider) *Fallback {
	return &Fallback{providers: providers}
}

func (f *Fallback) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ",")
}

func (f *Fallback) History(ctx context.Context, symbol string, lookback int) ([]core.PricePoint, error) {
	var errs []error
	for _, p := range f.providers {
		points, err := p.History(ctx, symbol, lookback)
		if err == nil && len(points) > 0 {
			return points, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			err = fmt.Errorf("%s: empty history", p.Name())
		}
		errs = append(errs, err)
	}
	return nil, f.fail(symbol, errs)
}

func (f *Fallback) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	var errs []error
	for _, p := range f.providers {
		q, err := p.Quote(ctx, symbol)
		if err == nil && q != nil && q.IsValid() {
			return q, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			err = fmt.Errorf("%s: invalid quote", p.Name())
		}
		errs = append(errs, err)
	}
	return nil, f.fail(symbol, errs)
}

func (f *Fallback) fail(symbol string, errs []error) error {
	if len(errs) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("no market data providers for %s", symbol))
	}
	return core.WrapError(core.ErrProviderFailed, errors.Join(errs...))
}
