// Package pipeline runs the per-symbol analysis: fetch, indicators, model,
// strategies, fusion and publication.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/sigfuse/internal/classifier"
	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/fusion"
	"github.com/newthinker/sigfuse/internal/indicator"
	"github.com/newthinker/sigfuse/internal/marketdata"
	"github.com/newthinker/sigfuse/internal/news"
	"github.com/newthinker/sigfuse/internal/sentiment"
	"github.com/newthinker/sigfuse/internal/sink"
	"github.com/newthinker/sigfuse/internal/strategy"
	"github.com/newthinker/sigfuse/internal/strategy/newsflow"
	"github.com/newthinker/sigfuse/internal/strategy/technical"
)

// Config holds the per-analysis settings
type Config struct {
	Lookback  int           `mapstructure:"lookback"`   // Bars of history to fetch
	NewsHours int           `mapstructure:"news_hours"` // News lookback
	AutoTrain bool          `mapstructure:"auto_train"` // Train on first analysis of a symbol
	SignalTTL time.Duration `mapstructure:"signal_ttl"` // Validity passed to sinks
	Timeout   time.Duration `mapstructure:"timeout"`    // Budget for fetching inputs
}

// DefaultConfig returns the standard pipeline settings
func DefaultConfig() Config {
	return Config{
		Lookback:  250,
		NewsHours: 24,
		AutoTrain: true,
		SignalTTL: 30 * time.Minute,
		Timeout:   30 * time.Second,
	}
}

// Analyzer produces one fused signal per symbol. Every collaborator is
// optional; a missing or failing one degrades to a neutral input.
type Analyzer struct {
	cfg        Config
	history    marketdata.HistoryProvider
	quotes     marketdata.QuoteProvider
	news       news.Provider
	dir        news.Directory
	session    *classifier.Session
	strategies *strategy.Engine
	fusion     *fusion.Engine
	indicators indicator.Params
	sinks      []sink.Sink
	observer   Observer
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// Option configures an Analyzer
type Option func(*Analyzer)

func WithHistory(p marketdata.HistoryProvider) Option { return func(a *Analyzer) { a.history = p } }
func WithQuotes(p marketdata.QuoteProvider) Option { return func(a *Analyzer) { a.quotes = p } }
func WithNews(p news.Provider) Option { return func(a *Analyzer) { a.news = p } }
func WithDirectory(d news.Directory) Option { return func(a *Analyzer) { a.dir = d } }
func WithSession(s *classifier.Session) Option { return func(a *Analyzer) { a.session = s } }
func WithStrategies(e *strategy.Engine) Option { return func(a *Analyzer) { a.strategies = e } }
func WithFusion(e *fusion.Engine) Option { return func(a *Analyzer) { a.fusion = e } }
func WithSinks(s ...sink.Sink) Option { return func(a *Analyzer) { a.sinks = append(a.sinks, s...) } }
func WithObserver(o Observer) Option { return func(a *Analyzer) { a.observer = o } }
func WithLogger(l *zap.Logger) Option { return func(a *Analyzer) { a.logger = l } }

// WithIndicators sets the indicator windows behind the model features, so the
// model's rsi feature follows the technical strategy's RSI period.
func WithIndicators(p indicator.Params) Option { return func(a *Analyzer) { a.indicators = p } }

// WithClock replaces the time source used for timestamps
func WithClock(now func() time.Time) Option { return func(a *Analyzer) { a.now = now } }

// NewAnalyzer creates an analyzer. Without WithStrategies it runs the
// technical and sentiment strategies with their defaults.
func NewAnalyzer(cfg Config, opts ...Option) *Analyzer {
	def := DefaultConfig()
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.NewsHours <= 0 {
		cfg.NewsHours = def.NewsHours
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	a := &Analyzer{
		cfg:        cfg,
		indicators: indicator.DefaultParams(),
		observer:   NopObserver{},
		logger:     zap.NewNop(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.session == nil {
		a.session = classifier.NewSession(classifier.DefaultConfig())
	}
	if a.fusion == nil {
		a.fusion = fusion.NewEngine(fusion.DefaultConfig())
	}
	if a.strategies == nil {
		a.strategies = strategy.NewEngine(a.logger)
		a.strategies.Register(technical.New(technical.DefaultConfig()))
		a.strategies.Register(newsflow.New(nil, cfg.NewsHours))
	}
	return a
}

// Session exposes the model cache
func (a *Analyzer) Session() *classifier.Session {
	return a.session
}

// inputs are the fetched raw materials of one analysis
type inputs struct {
	points []core.PricePoint
	quote  *core.Quote
	news   []core.NewsItem
}

// Analyze runs the full pipeline for symbol and always returns a signal.
func (a *Analyzer) Analyze(ctx context.Context, symbol string) core.FusedSignal {
	return a.Run(ctx, symbol).Signal
}

// Run is Analyze returning the full record handed to the sinks.
func (a *Analyzer) Run(ctx context.Context, symbol string) sink.Record {
	start := time.Now()
	now := a.now()

	in := a.fetch(ctx, symbol)

	var frame *indicator.Frame
	if len(in.points) > 0 {
		f, err := indicator.ComputeWith(in.points, a.indicators)
		if err != nil {
			a.observer.Degraded(symbol, StageIndicators, err)
			in.points = nil
		} else {
			frame = f
		}
	}

	model := a.model(symbol, frame)

	actx := strategy.AnalysisContext{
		Symbol: symbol,
		Points: in.points,
		Frame:  frame,
		Model:  model,
		News:   in.news,
		Terms:  a.dir.Terms(symbol),
		Quote:  in.quote,
		Now:    now,
	}
	signals, err := a.strategies.Analyze(ctx, actx)
	if err != nil {
		a.observer.Degraded(symbol, StageStrategies, err)
	}

	tech, ok := signals[technical.Name]
	if !ok {
		tech = core.HoldSignal(technical.Name, 50, "Technical analysis unavailable")
	}
	sent, ok := signals[newsflow.Name]
	if !ok {
		sent = core.HoldSignal(newsflow.Name, 0, "Sentiment analysis unavailable")
	}
	var result *sentiment.Result
	if r, ok := sent.Metadata[newsflow.ResultKey].(sentiment.Result); ok {
		result = &r
		delete(sent.Metadata, newsflow.ResultKey)
	}

	sig := a.fusion.Fuse(fusion.Input{
		Symbol:    symbol,
		Technical: tech,
		Sentiment: sent,
		Quote:     in.quote,
		Now:       now,
	})
	sig.ID = a.newID()

	rec := sink.Record{Signal: sig, Sentiment: result}
	a.publish(ctx, rec)
	a.observer.Analyzed(sig, time.Since(start))
	return rec
}

// fetch gathers history, quote and news concurrently within the configured
// budget. Failures are reported and leave the input empty.
func (a *Analyzer) fetch(ctx context.Context, symbol string) inputs {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	var in inputs
	g, gctx := errgroup.WithContext(ctx)

	if a.history != nil {
		g.Go(func() error {
			points, err := a.history.History(gctx, symbol, a.cfg.Lookback)
			if err != nil {
				a.observer.Degraded(symbol, StageHistory, err)
				return nil
			}
			in.points = points
			return nil
		})
	} else {
		a.observer.Degraded(symbol, StageHistory, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no history provider")))
	}

	if a.quotes != nil {
		g.Go(func() error {
			q, err := a.quotes.Quote(gctx, symbol)
			if err != nil {
				a.observer.Degraded(symbol, StageQuote, err)
				return nil
			}
			in.quote = q
			return nil
		})
	}

	if a.news != nil {
		g.Go(func() error {
			items, err := a.news.Articles(gctx, symbol, a.cfg.NewsHours)
			if err != nil {
				a.observer.Degraded(symbol, StageNews, err)
				return nil
			}
			in.news = items
			return nil
		})
	}

	g.Wait()
	return in
}

// model returns the cached model, training one first when auto-training is
// on. A training failure leaves the ML side neutral.
func (a *Analyzer) model(symbol string, frame *indicator.Frame) *classifier.Model {
	if m, ok := a.session.Model(symbol); ok {
		return m
	}
	if !a.cfg.AutoTrain || frame == nil {
		return nil
	}
	m, err := a.train(symbol, frame)
	if err != nil {
		a.observer.Degraded(symbol, StageModel, err)
		return nil
	}
	return m
}

func (a *Analyzer) train(symbol string, frame *indicator.Frame) (*classifier.Model, error) {
	start := time.Now()
	m, report, err := a.session.Train(symbol, frame)
	if err != nil {
		a.observer.TrainFailed(symbol, err)
		return nil, err
	}
	a.observer.Trained(symbol, report, time.Since(start))
	return m, nil
}

// Train fetches history for symbol and (re)trains its model.
func (a *Analyzer) Train(ctx context.Context, symbol string) (classifier.Report, error) {
	if a.history == nil {
		return classifier.Report{}, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no history provider"))
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	points, err := a.history.History(ctx, symbol, a.cfg.Lookback)
	if err != nil {
		a.observer.TrainFailed(symbol, err)
		return classifier.Report{}, fmt.Errorf("fetching history for %s: %w", symbol, err)
	}
	frame, err := indicator.ComputeWith(points, a.indicators)
	if err != nil {
		a.observer.TrainFailed(symbol, err)
		return classifier.Report{}, fmt.Errorf("computing indicators for %s: %w", symbol, err)
	}

	if _, err := a.train(symbol, frame); err != nil {
		return classifier.Report{}, err
	}
	report, _ := a.session.Report(symbol)
	return report, nil
}

// publish hands rec to every sink. Failures are reported, never returned.
func (a *Analyzer) publish(ctx context.Context, rec sink.Record) {
	for _, s := range a.sinks {
		if err := s.Publish(ctx, rec, a.cfg.SignalTTL); err != nil {
			a.observer.PublishFailed(rec.Signal.Symbol, s.Name(), err)
		}
	}
}
