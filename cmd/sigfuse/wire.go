package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/newthinker/sigfuse/internal/classifier"
	"github.com/newthinker/sigfuse/internal/config"
	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/fusion"
	"github.com/newthinker/sigfuse/internal/indicator"
	"github.com/newthinker/sigfuse/internal/marketdata"
	"github.com/newthinker/sigfuse/internal/metrics"
	"github.com/newthinker/sigfuse/internal/news"
	"github.com/newthinker/sigfuse/internal/pipeline"
	"github.com/newthinker/sigfuse/internal/sentiment"
	"github.com/newthinker/sigfuse/internal/sink"
	"github.com/newthinker/sigfuse/internal/storage/archive"
	"github.com/newthinker/sigfuse/internal/strategy"
	"github.com/newthinker/sigfuse/internal/strategy/newsflow"
	"github.com/newthinker/sigfuse/internal/strategy/technical"
)

// components is everything a command may need, built once from config
type components struct {
	cfg      *config.Config
	log      *zap.Logger
	redis    redis.UniversalClient
	bridge   *marketdata.RedisBridge
	market   marketdata.Provider
	signals  *sink.Memory
	archive  *sink.Archive
	router   *sink.Router
	kafka    *sink.Kafka
	metrics  *metrics.Registry
	analyzer *pipeline.Analyzer
}

func (c *components) Close() {
	if c.kafka != nil {
		if err := c.kafka.Close(); err != nil {
			c.log.Warn("closing kafka writer", zap.Error(err))
		}
	}
	if c.redis != nil {
		c.redis.Close()
	}
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*components, error) {
	c := &components{
		cfg:     cfg,
		log:     log,
		signals: sink.NewMemory(cfg.Sinks.Memory.Size),
		metrics: metrics.NewRegistry(),
	}

	if cfg.UsesRedis() {
		if err := c.connectRedis(ctx); err != nil {
			return nil, err
		}
	}

	market, err := c.marketProvider()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.market = market

	sinks, err := c.sinks()
	if err != nil {
		c.Close()
		return nil, err
	}

	strategies, params, err := c.strategies()
	if err != nil {
		c.Close()
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithHistory(market),
		pipeline.WithQuotes(market),
		pipeline.WithDirectory(cfg.Directory()),
		pipeline.WithSession(classifier.NewSession(cfg.Classifier)),
		pipeline.WithStrategies(strategies),
		pipeline.WithIndicators(params),
		pipeline.WithFusion(fusion.NewEngine(cfg.Fusion)),
		pipeline.WithSinks(sinks...),
		pipeline.WithObserver(pipeline.Observers{pipeline.NewLogObserver(log), c.metrics}),
		pipeline.WithLogger(log),
	}
	if p := c.newsProvider(); p != nil {
		opts = append(opts, pipeline.WithNews(p))
	}

	c.analyzer = pipeline.NewAnalyzer(cfg.Pipeline, opts...)
	return c, nil
}

func (c *components) connectRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     c.cfg.Redis.Addr,
		Password: c.cfg.Redis.Password,
		DB:       c.cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return core.WrapError(core.ErrProviderFailed, fmt.Errorf("connecting to redis at %s: %w", c.cfg.Redis.Addr, err))
	}

	c.redis = client
	c.bridge = marketdata.NewRedisBridge(client)
	c.log.Info("connected to redis", zap.String("addr", c.cfg.Redis.Addr))
	return nil
}

func (c *components) marketProvider() (marketdata.Provider, error) {
	var providers []marketdata.Provider
	for _, name := range c.cfg.MarketData.Providers {
		switch name {
		case "yahoo":
			var opts []marketdata.YahooOption
			if c.cfg.MarketData.YahooURL != "" {
				opts = append(opts, marketdata.WithBaseURL(c.cfg.MarketData.YahooURL))
			}
			providers = append(providers, marketdata.NewYahoo(opts...))
		case "redis":
			providers = append(providers, c.bridge)
		}
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return marketdata.NewFallback(providers...), nil
}

func (c *components) newsProvider() news.Provider {
	if c.cfg.News.Provider != "rss" {
		return nil
	}
	rss := news.NewRSS(c.cfg.News.Feeds,
		news.WithDirectory(c.cfg.Directory()),
		news.WithFeedInterval(c.cfg.News.FeedInterval),
		news.WithScanTTL(c.cfg.News.ScanTTL),
		news.WithLogger(c.log),
	)
	return news.NewCached(rss, c.cfg.News.CacheTTL)
}

func (c *components) sinks() ([]sink.Sink, error) {
	out := []sink.Sink{c.signals}
	sc := c.cfg.Sinks

	if sc.Redis.Enabled {
		out = append(out, sink.NewRedis(c.redis, sc.Redis.Channel))
	}
	if sc.Archive.Enabled {
		store, err := archive.Open(sc.Archive.Config)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		c.archive = sink.NewArchive(store)
		out = append(out, c.archive)
	}
	if sc.Webhook.Enabled {
		hook, err := sink.NewWebhook(sc.Webhook.URL, sc.Webhook.Headers, sc.Webhook.MinConfidence)
		if err != nil {
			return nil, err
		}
		c.router = sink.NewRouter(hook, sc.Webhook.RouterConfig, c.log)
		out = append(out, c.router)
	}
	if sc.Kafka.Enabled {
		k, err := sink.NewKafka(sc.Kafka.KafkaConfig)
		if err != nil {
			return nil, err
		}
		c.kafka = k
		out = append(out, k)
	}
	return out, nil
}

// strategies registers the technical and sentiment strategies. A strategy
// configured with enabled: false is left out and fusion sees a neutral input.
// The returned indicator windows carry the technical RSI period.
func (c *components) strategies() (*strategy.Engine, indicator.Params, error) {
	engine := strategy.NewEngine(c.log)
	scorer := sentiment.NewScorer(c.cfg.Sentiment, nil)
	tech := technical.New(technical.DefaultConfig())
	params := indicator.DefaultParams()

	for _, s := range []strategy.Strategy{
		tech,
		newsflow.New(scorer, c.cfg.Pipeline.NewsHours),
	} {
		sc, ok := c.cfg.Strategies[s.Name()]
		if ok {
			if !sc.Enabled {
				c.log.Info("strategy disabled", zap.String("strategy", s.Name()))
				continue
			}
			if err := s.Init(sc); err != nil {
				return nil, params, fmt.Errorf("initializing %s: %w", s.Name(), err)
			}
		}
		engine.Register(s)
	}
	params.RSIPeriod = tech.Config().RSIPeriod
	return engine, params, nil
}

// requireRedis returns the bridge, connecting first if nothing in the
// configuration needed Redis at startup.
func (c *components) requireRedis(ctx context.Context) (*marketdata.RedisBridge, error) {
	if c.bridge != nil {
		return c.bridge, nil
	}
	if c.cfg.Redis.Addr == "" {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("redis.addr is not set"))
	}
	if err := c.connectRedis(ctx); err != nil {
		return nil, err
	}
	return c.bridge, nil
}
