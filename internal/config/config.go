package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/newthinker/sigfuse/internal/classifier"
	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/fusion"
	"github.com/newthinker/sigfuse/internal/logger"
	"github.com/newthinker/sigfuse/internal/marketdata"
	"github.com/newthinker/sigfuse/internal/news"
	"github.com/newthinker/sigfuse/internal/pipeline"
	"github.com/newthinker/sigfuse/internal/sentiment"
	"github.com/newthinker/sigfuse/internal/sink"
	"github.com/newthinker/sigfuse/internal/storage/archive"
	"github.com/newthinker/sigfuse/internal/strategy"
)

type Config struct {
	Log        logger.Config              `mapstructure:"log"`
	Watchlist  []WatchlistItem            `mapstructure:"watchlist"`
	Watch      WatchConfig                `mapstructure:"watch"`
	Pipeline   pipeline.Config            `mapstructure:"pipeline"`
	Classifier classifier.Config          `mapstructure:"classifier"`
	Strategies map[string]strategy.Config `mapstructure:"strategies"`
	Sentiment  sentiment.Config           `mapstructure:"sentiment"`
	Fusion     fusion.Config              `mapstructure:"fusion"`
	MarketData MarketDataConfig           `mapstructure:"market_data"`
	News       NewsConfig                 `mapstructure:"news"`
	Redis      RedisConfig                `mapstructure:"redis"`
	Sinks      SinksConfig                `mapstructure:"sinks"`
	Metrics    MetricsConfig              `mapstructure:"metrics"`
}

// WatchlistItem is a symbol plus the company names news is matched against
type WatchlistItem struct {
	Symbol string   `mapstructure:"symbol"`
	Names  []string `mapstructure:"names"`
}

type WatchConfig struct {
	pipeline.WatchConfig `mapstructure:",squash"`
	Listen               string `mapstructure:"listen"`   // HTTP address for /metrics and /signals
	Realtime             bool   `mapstructure:"realtime"` // Re-analyze on market_updates messages
}

type MarketDataConfig struct {
	Providers []string `mapstructure:"providers"` // Tried in order: yahoo, redis
	YahooURL  string   `mapstructure:"yahoo_url"`
}

type NewsConfig struct {
	Provider     string        `mapstructure:"provider"` // rss or none
	Feeds        []news.Feed   `mapstructure:"feeds"`
	FeedInterval time.Duration `mapstructure:"feed_interval"`
	ScanTTL      time.Duration `mapstructure:"scan_ttl"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SinksConfig struct {
	Redis   RedisSinkConfig   `mapstructure:"redis"`
	Archive ArchiveSinkConfig `mapstructure:"archive"`
	Webhook WebhookSinkConfig `mapstructure:"webhook"`
	Memory  MemorySinkConfig  `mapstructure:"memory"`
	Kafka   KafkaSinkConfig   `mapstructure:"kafka"`
}

type RedisSinkConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Channel string `mapstructure:"channel"` // Empty disables publishing
}

type ArchiveSinkConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	archive.Config `mapstructure:",squash"`
	RetentionDays  int `mapstructure:"retention_days"` // 0 keeps everything
}

type KafkaSinkConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	sink.KafkaConfig `mapstructure:",squash"`
}

type WebhookSinkConfig struct {
	Enabled           bool              `mapstructure:"enabled"`
	URL               string            `mapstructure:"url"`
	Headers           map[string]string `mapstructure:"headers"`
	MinConfidence     float64           `mapstructure:"min_confidence"`
	sink.RouterConfig `mapstructure:",squash"`
}

type MemorySinkConfig struct {
	Size int `mapstructure:"size"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file on top of Defaults. A .env file next to
// it is loaded into the environment first; variables already set win.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Log: logger.Config{Level: "info", Format: "json"},
		Watch: WatchConfig{
			WatchConfig: pipeline.DefaultWatchConfig(),
			Listen:      ":9090",
		},
		Pipeline:   pipeline.DefaultConfig(),
		Classifier: classifier.DefaultConfig(),
		Sentiment:  sentiment.DefaultConfig(),
		Fusion:     fusion.DefaultConfig(),
		MarketData: MarketDataConfig{
			Providers: []string{"yahoo"},
		},
		News: NewsConfig{
			Provider:     "rss",
			FeedInterval: time.Second,
			ScanTTL:      5 * time.Minute,
			CacheTTL:     10 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Sinks: SinksConfig{
			Redis:  RedisSinkConfig{Channel: "fused_signals"},
			Memory: MemorySinkConfig{Size: 1000},
			Webhook: WebhookSinkConfig{
				MinConfidence: 60,
				RouterConfig:  sink.DefaultRouterConfig(),
			},
			Archive: ArchiveSinkConfig{
				Config: archive.Config{Backend: "local", Path: "data/signals"},
			},
			Kafka: KafkaSinkConfig{
				KafkaConfig: sink.KafkaConfig{Topic: "sigfuse.signals", Compression: "gzip"},
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Symbols returns the watchlist symbols in order
func (c *Config) Symbols() []string {
	out := make([]string, 0, len(c.Watchlist))
	for _, item := range c.Watchlist {
		out = append(out, item.Symbol)
	}
	return out
}

// Directory maps each watchlist symbol to its company names
func (c *Config) Directory() news.Directory {
	dir := make(news.Directory, len(c.Watchlist))
	for _, item := range c.Watchlist {
		dir[item.Symbol] = item.Names
	}
	return dir
}

// UsesRedis reports whether any configured component needs a Redis client
func (c *Config) UsesRedis() bool {
	if c.Sinks.Redis.Enabled || c.Watch.Realtime {
		return true
	}
	for _, p := range c.MarketData.Providers {
		if p == "redis" {
			return true
		}
	}
	return false
}

func invalid(format string, args ...any) error {
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(format, args...))
}

func missing(format string, args ...any) error {
	return core.WrapError(core.ErrConfigMissing, fmt.Errorf(format, args...))
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	for _, item := range c.Watchlist {
		if err := marketdata.ValidateSymbol(item.Symbol); err != nil {
			return invalid("watchlist: %w", err)
		}
	}

	if c.Watch.Interval <= 0 {
		return invalid("watch.interval must be positive, got %s", c.Watch.Interval)
	}
	if c.Watch.Parallelism < 1 {
		return invalid("watch.parallelism must be at least 1, got %d", c.Watch.Parallelism)
	}
	if c.Watch.Cooldown < 0 {
		return invalid("watch.cooldown cannot be negative, got %s", c.Watch.Cooldown)
	}

	if c.Pipeline.Lookback <= 0 {
		return invalid("pipeline.lookback must be positive, got %d", c.Pipeline.Lookback)
	}
	if c.Pipeline.NewsHours <= 0 {
		return invalid("pipeline.news_hours must be positive, got %d", c.Pipeline.NewsHours)
	}
	if c.Pipeline.SignalTTL <= 0 {
		return invalid("pipeline.signal_ttl must be positive, got %s", c.Pipeline.SignalTTL)
	}

	if f := c.Classifier.TestFraction; f < 0 || f >= 1 {
		return invalid("classifier.test_fraction must be in [0,1), got %f", f)
	}

	if err := c.validateFusion(); err != nil {
		return err
	}

	if len(c.MarketData.Providers) == 0 {
		return missing("market_data.providers: at least one provider required")
	}
	for _, p := range c.MarketData.Providers {
		switch p {
		case "yahoo", "redis":
		default:
			return invalid("market_data.providers: unknown provider %q", p)
		}
	}

	switch c.News.Provider {
	case "", "none":
	case "rss":
		for _, f := range c.News.Feeds {
			if f.URL == "" {
				return missing("news.feeds: feed %q has no url", f.Name)
			}
		}
	default:
		return invalid("news.provider: unknown provider %q", c.News.Provider)
	}

	if c.UsesRedis() && c.Redis.Addr == "" {
		return missing("redis.addr required by the redis provider, sink or realtime updates")
	}

	if c.Sinks.Webhook.Enabled && c.Sinks.Webhook.URL == "" {
		return missing("sinks.webhook.url required when the webhook sink is enabled")
	}
	if mc := c.Sinks.Webhook.MinConfidence; mc < 0 || mc > 100 {
		return invalid("sinks.webhook.min_confidence must be between 0 and 100, got %f", mc)
	}
	if c.Sinks.Webhook.Cooldown < 0 {
		return invalid("sinks.webhook.cooldown cannot be negative, got %s", c.Sinks.Webhook.Cooldown)
	}
	for _, a := range c.Sinks.Webhook.Actions {
		if !a.IsValid() {
			return invalid("sinks.webhook.actions: unknown action %q", a)
		}
	}
	if c.Sinks.Archive.RetentionDays < 0 {
		return invalid("sinks.archive.retention_days cannot be negative, got %d", c.Sinks.Archive.RetentionDays)
	}
	if c.Sinks.Archive.Enabled {
		switch c.Sinks.Archive.Backend {
		case "", "local":
			if c.Sinks.Archive.Path == "" {
				return missing("sinks.archive.path required for the local backend")
			}
		case "s3":
			if c.Sinks.Archive.S3.Bucket == "" {
				return missing("sinks.archive.s3.bucket required for the s3 backend")
			}
		case "memory":
		default:
			return invalid("sinks.archive.backend: unknown backend %q", c.Sinks.Archive.Backend)
		}
	}
	if k := c.Sinks.Kafka; k.Enabled {
		if len(k.Brokers) == 0 {
			return missing("sinks.kafka.brokers required when the kafka sink is enabled")
		}
		if k.Topic == "" {
			return missing("sinks.kafka.topic required when the kafka sink is enabled")
		}
		switch k.Compression {
		case "", "gzip", "snappy", "lz4", "zstd", "none":
		default:
			return invalid("sinks.kafka.compression: unknown codec %q", k.Compression)
		}
	}

	return nil
}

func (c *Config) validateFusion() error {
	f := c.Fusion
	if f.TechnicalCap <= 0 || f.TechnicalCap > 1 {
		return invalid("fusion.technical_cap must be in (0,1], got %f", f.TechnicalCap)
	}
	if f.SentimentCap <= 0 || f.SentimentCap > 1 {
		return invalid("fusion.sentiment_cap must be in (0,1], got %f", f.SentimentCap)
	}
	if f.SentimentScale <= 0 {
		return invalid("fusion.sentiment_scale must be positive, got %f", f.SentimentScale)
	}
	if f.ModerateMovePct < 0 || f.HighMovePct < f.ModerateMovePct {
		return invalid("fusion: need 0 <= moderate_move_pct <= high_move_pct, got %f/%f",
			f.ModerateMovePct, f.HighMovePct)
	}
	if f.ModerateMoveFactor < 1 || f.HighMoveFactor < f.ModerateMoveFactor {
		return invalid("fusion: need 1 <= moderate_move_factor <= high_move_factor, got %f/%f",
			f.ModerateMoveFactor, f.HighMoveFactor)
	}
	return nil
}
