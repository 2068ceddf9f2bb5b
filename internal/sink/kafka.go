package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/newthinker/sigfuse/internal/core"
)

// KafkaConfig configures the Kafka sink
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	Topic       string   `mapstructure:"topic"`
	Compression string   `mapstructure:"compression"` // gzip, snappy, lz4, zstd or none
}

// messageWriter is the part of *kafka.Writer the sink uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes each record as a JSON message keyed by symbol, so one
// symbol's signals stay ordered within a partition.
type Kafka struct {
	writer messageWriter
	topic  string
}

// NewKafka creates a Kafka sink writing to cfg.Topic
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("kafka: brokers are required"))
	}
	if cfg.Topic == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("kafka: topic is required"))
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  3,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
	return newKafka(w, cfg.Topic), nil
}

func newKafka(w messageWriter, topic string) *Kafka {
	return &Kafka{writer: w, topic: topic}
}

func (k *Kafka) Name() string {
	return "kafka"
}

// Publish writes one message. A positive ttl is carried in the expires_at
// header as RFC 3339.
func (k *Kafka) Publish(ctx context.Context, rec Record, ttl time.Duration) error {
	sig := rec.Signal
	value, err := json.Marshal(archived{Signal: sig, Sentiment: rec.Sentiment})
	if err != nil {
		return fmt.Errorf("encoding kafka message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(sig.Symbol),
		Value: value,
		Time:  sig.GeneratedAt,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(sig.Action)},
		},
	}
	if ttl > 0 {
		expires := sig.GeneratedAt.Add(ttl).UTC().Format(time.RFC3339)
		msg.Headers = append(msg.Headers, kafka.Header{Key: "expires_at", Value: []byte(expires)})
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return core.WrapError(core.ErrSinkFailed, fmt.Errorf("kafka %s: %w", k.topic, err))
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (k *Kafka) Close() error {
	return k.writer.Close()
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none":
		return 0
	default:
		return kafka.Gzip
	}
}
