package sink

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/sigfuse/internal/core"
)

// RouterConfig holds the forwarding filters
type RouterConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
	Actions  []core.Action `mapstructure:"actions"` // Empty allows every action
}

// DefaultRouterConfig forwards directional signals at most once an hour per
// symbol unless the action changes.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Cooldown: time.Hour,
		Actions: []core.Action{
			core.ActionStrongBuy, core.ActionBuy, core.ActionWeakBuy,
			core.ActionWeakSell, core.ActionSell, core.ActionStrongSell,
		},
	}
}

type routed struct {
	at     time.Time
	action core.Action
}

// Router forwards records to another sink, dropping disallowed actions and
// repeats of the last forwarded action within the cooldown.
type Router struct {
	next   Sink
	cfg    RouterConfig
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	last map[string]routed
}

// NewRouter wraps next
func NewRouter(next Sink, cfg RouterConfig, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		next:   next,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		last:   make(map[string]routed),
	}
}

func (r *Router) Name() string {
	return r.next.Name()
}

func (r *Router) Publish(ctx context.Context, rec Record, ttl time.Duration) error {
	sig := rec.Signal
	if !r.claim(sig) {
		r.logger.Debug("signal filtered out",
			zap.String("symbol", sig.Symbol),
			zap.String("action", string(sig.Action)),
			zap.String("sink", r.next.Name()),
		)
		return nil
	}

	if err := r.next.Publish(ctx, rec, ttl); err != nil {
		r.release(sig.Symbol)
		return err
	}
	return nil
}

// claim checks the filters and, if they pass, records sig as forwarded
func (r *Router) claim(sig core.FusedSignal) bool {
	if len(r.cfg.Actions) > 0 && !slices.Contains(r.cfg.Actions, sig.Action) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if prev, ok := r.last[sig.Symbol]; ok && prev.action == sig.Action && now.Sub(prev.at) < r.cfg.Cooldown {
		return false
	}
	r.last[sig.Symbol] = routed{at: now, action: sig.Action}
	return true
}

// release forgets a claim whose delivery failed so the next one retries
func (r *Router) release(symbol string) {
	r.mu.Lock()
	delete(r.last, symbol)
	r.mu.Unlock()
}

// ClearCooldown removes the cooldown for a specific symbol
func (r *Router) ClearCooldown(symbol string) {
	r.release(symbol)
}

// CleanupExpired removes entries older than twice the cooldown and returns
// how many were dropped.
func (r *Router) CleanupExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for symbol, prev := range r.last {
		if now.Sub(prev.at) > 2*r.cfg.Cooldown {
			delete(r.last, symbol)
			removed++
		}
	}
	return removed
}

// Stats returns router statistics
func (r *Router) Stats() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return map[string]any{
		"cooldowns_active": len(r.last),
		"cooldown_seconds": r.cfg.Cooldown.Seconds(),
		"enabled_actions":  r.cfg.Actions,
	}
}
