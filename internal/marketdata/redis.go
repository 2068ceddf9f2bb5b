package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newthinker/sigfuse/internal/core"
)

const (
	redisSource = "redis"

	currentKeyPrefix = "stock:current:"
	historyKeyPrefix = "stock:history:"

	// UpdatesChannel carries a JSON market record each time a quote is stored
	UpdatesChannel = "market_updates"
)

// MarketRecord is the JSON document the market data feed stores per tick.
// History lists hold the same records, newest pushed first.
type MarketRecord struct {
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"current_price"`
	ChangePercent float64 `json:"change_percent"`
	Open          float64 `json:"open,omitempty"`
	High          float64 `json:"high,omitempty"`
	Low           float64 `json:"low,omitempty"`
	Close         float64 `json:"close,omitempty"`
	Volume        float64 `json:"volume,omitempty"`
	Timestamp     float64 `json:"timestamp"` // Unix seconds
}

func (r MarketRecord) recordedAt() time.Time {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// Point converts the record to a bar. Records without OHLC collapse to the
// current price.
func (r MarketRecord) Point() core.PricePoint {
	c := r.Close
	if c == 0 {
		c = r.CurrentPrice
	}
	p := core.PricePoint{
		Time:   r.recordedAt(),
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  c,
		Volume: r.Volume,
	}
	if p.Open == 0 {
		p.Open = c
	}
	if p.High == 0 {
		p.High = max(p.Open, c)
	}
	if p.Low == 0 {
		p.Low = min(p.Open, c)
	}
	return p
}

// RedisBridge reads the keys an external market data feed maintains:
// stock:current:{symbol} and the stock:history:{symbol} list.
type RedisBridge struct {
	client redis.UniversalClient
}

// NewRedisBridge wraps an existing client
func NewRedisBridge(client redis.UniversalClient) *RedisBridge {
	return &RedisBridge{client: client}
}

func (b *RedisBridge) Name() string {
	return redisSource
}

// Quote reads stock:current:{symbol}
func (b *RedisBridge) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	data, err := b.client.Get(ctx, currentKeyPrefix+symbol).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("no current data for %s", symbol))
		}
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("reading quote: %w", err))
	}

	var rec MarketRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("decoding quote: %w", err))
	}
	return rec.quote(symbol), nil
}

func (r MarketRecord) quote(symbol string) *core.Quote {
	return &core.Quote{
		Symbol:    symbol,
		Price:     r.CurrentPrice,
		ChangePct: r.ChangePercent,
		Time:      r.recordedAt(),
		Source:    redisSource,
	}
}

// History reads the newest lookback records of stock:history:{symbol}.
// Malformed entries are skipped.
func (b *RedisBridge) History(ctx context.Context, symbol string, lookback int) ([]core.PricePoint, error) {
	stop := int64(-1)
	if lookback > 0 {
		stop = int64(lookback - 1)
	}

	raw, err := b.client.LRange(ctx, historyKeyPrefix+symbol, 0, stop).Result()
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("reading history: %w", err))
	}
	if len(raw) == 0 {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("no historical data for %s", symbol))
	}

	points := make([]core.PricePoint, 0, len(raw))
	for _, s := range raw {
		var rec MarketRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		points = append(points, rec.Point())
	}
	return Normalize(points, lookback), nil
}

// Store writes a record as the current quote, prepends it to the history
// list and announces it on UpdatesChannel, the same writes the feed makes.
func (b *RedisBridge) Store(ctx context.Context, rec MarketRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, currentKeyPrefix+rec.Symbol, data, 0)
	pipe.LPush(ctx, historyKeyPrefix+rec.Symbol, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return core.WrapError(core.ErrProviderFailed, fmt.Errorf("storing record: %w", err))
	}
	if err := b.client.Publish(ctx, UpdatesChannel, data).Err(); err != nil {
		return core.WrapError(core.ErrProviderFailed, fmt.Errorf("publishing update: %w", err))
	}
	return nil
}

// Symbols lists every symbol with a current quote
func (b *RedisBridge) Symbols(ctx context.Context) ([]string, error) {
	var (
		symbols []string
		cursor  uint64
	)
	for {
		keys, next, err := b.client.Scan(ctx, cursor, currentKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("scanning symbols: %w", err))
		}
		for _, k := range keys {
			symbols = append(symbols, k[len(currentKeyPrefix):])
		}
		if next == 0 {
			return symbols, nil
		}
		cursor = next
	}
}

// Updates subscribes to UpdatesChannel and emits a quote per message until
// ctx is done. Undecodable messages are dropped.
func (b *RedisBridge) Updates(ctx context.Context) (<-chan core.Quote, error) {
	sub := b.client.Subscribe(ctx, UpdatesChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("subscribing: %w", err))
	}

	out := make(chan core.Quote)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var rec MarketRecord
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil || rec.Symbol == "" {
					continue
				}
				select {
				case out <- *rec.quote(rec.Symbol):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
