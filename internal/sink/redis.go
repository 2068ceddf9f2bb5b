package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/fusion"
)

// Key prefixes written per symbol
const (
	FusedKeyPrefix     = "ultimate_signal:"
	TechnicalKeyPrefix = "technical_signal:"
	SentimentKeyPrefix = "sentiment_signal:"
)

// Redis stores the latest signals under per-symbol keys with an expiry and
// optionally announces each fused signal on a channel.
type Redis struct {
	client  redis.UniversalClient
	channel string
}

// NewRedis creates a Redis sink. An empty channel disables publishing.
func NewRedis(client redis.UniversalClient, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Name() string {
	return "redis"
}

// Publish writes ultimate_signal:{symbol}, technical_signal:{symbol} and
// sentiment_signal:{symbol} in one transaction.
func (r *Redis) Publish(ctx context.Context, rec Record, ttl time.Duration) error {
	sig := rec.Signal
	fused, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("encoding fused signal: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, FusedKeyPrefix+sig.Symbol, fused, ttl)

	if c, ok := sig.Component(fusion.ComponentTechnical); ok {
		data, err := json.Marshal(c.Signal)
		if err != nil {
			return fmt.Errorf("encoding technical signal: %w", err)
		}
		pipe.Set(ctx, TechnicalKeyPrefix+sig.Symbol, data, ttl)
	}

	var sentPayload any
	if rec.Sentiment != nil {
		sentPayload = rec.Sentiment
	} else if c, ok := sig.Component(fusion.ComponentSentiment); ok {
		sentPayload = c.Signal
	}
	if sentPayload != nil {
		data, err := json.Marshal(sentPayload)
		if err != nil {
			return fmt.Errorf("encoding sentiment: %w", err)
		}
		pipe.Set(ctx, SentimentKeyPrefix+sig.Symbol, data, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return core.WrapError(core.ErrSinkFailed, fmt.Errorf("redis: %w", err))
	}

	if r.channel != "" {
		if err := r.client.Publish(ctx, r.channel, fused).Err(); err != nil {
			return core.WrapError(core.ErrSinkFailed, fmt.Errorf("redis publish: %w", err))
		}
	}
	return nil
}

// Latest reads back the fused signal stored for symbol
func (r *Redis) Latest(ctx context.Context, symbol string) (*core.FusedSignal, error) {
	data, err := r.client.Get(ctx, FusedKeyPrefix+symbol).Bytes()
	if err == redis.Nil {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("no fused signal for %s", symbol))
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var sig core.FusedSignal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("decoding fused signal: %w", err)
	}
	return &sig, nil
}
