package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newthinker/sigfuse/internal/core"
)

// Feed is one RSS or Atom source
type Feed struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// DefaultFeeds returns the financial headline feeds scanned by default
func DefaultFeeds() []Feed {
	return []Feed{
		{Name: "yahoo_finance", URL: "https://feeds.finance.yahoo.com/rss/2.0/headline"},
		{Name: "reuters_business", URL: "http://feeds.reuters.com/reuters/businessNews"},
		{Name: "cnbc", URL: "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=10000664"},
		{Name: "marketwatch", URL: "http://feeds.marketwatch.com/marketwatch/marketpulse/"},
	}
}

// RSS scans a set of feeds and keeps the articles that mention a symbol.
// One scan covers every symbol, so results are reused for scanTTL.
type RSS struct {
	feeds   []Feed
	dir     Directory
	parser  *gofeed.Parser
	limiter *rate.Limiter
	scanTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	scanned   []core.NewsItem
	scannedAt time.Time
}

// RSSOption configures an RSS provider
type RSSOption func(*RSS)

// WithDirectory sets the company names used as search terms
func WithDirectory(dir Directory) RSSOption {
	return func(r *RSS) { r.dir = dir }
}

// WithFeedInterval sets the pause between consecutive feed requests
func WithFeedInterval(d time.Duration) RSSOption {
	return func(r *RSS) { r.limiter = NewLimiter(d) }
}

// WithScanTTL sets how long one scan of all feeds is reused
func WithScanTTL(d time.Duration) RSSOption {
	return func(r *RSS) { r.scanTTL = d }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) RSSOption {
	return func(r *RSS) { r.logger = l }
}

// WithClient replaces the HTTP client used to fetch feeds
func WithClient(c *http.Client) RSSOption {
	return func(r *RSS) { r.parser.Client = c }
}

// NewRSS creates an RSS provider. No feeds means DefaultFeeds.
func NewRSS(feeds []Feed, opts ...RSSOption) *RSS {
	if len(feeds) == 0 {
		feeds = DefaultFeeds()
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 15 * time.Second}
	parser.UserAgent = "Mozilla/5.0 (compatible; sigfuse)"

	r := &RSS{
		feeds:   feeds,
		parser:  parser,
		limiter: NewLimiter(time.Second),
		scanTTL: 5 * time.Minute,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RSS) Name() string {
	return "rss"
}

// Articles returns articles from the last hoursBack hours that mention the
// symbol or one of its company names.
func (r *RSS) Articles(ctx context.Context, symbol string, hoursBack int) ([]core.NewsItem, error) {
	all, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(all, r.dir.Terms(symbol), cutoff(r.now(), hoursBack)), nil
}

// scan fetches every feed, or returns the previous scan while it is fresh.
// A failing feed is logged and skipped; only a scan where every feed fails
// is an error.
func (r *RSS) scan(ctx context.Context) ([]core.NewsItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scanned != nil && r.now().Sub(r.scannedAt) < r.scanTTL {
		return r.scanned, nil
	}

	var (
		all  = []core.NewsItem{}
		errs []error
	)
	for _, feed := range r.feeds {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		items, err := r.fetch(ctx, feed)
		if err != nil {
			r.logger.Warn("feed fetch failed", zap.String("feed", feed.Name), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		r.logger.Debug("feed fetched", zap.String("feed", feed.Name), zap.Int("articles", len(items)))
		all = append(all, items...)
	}

	if len(errs) == len(r.feeds) && len(errs) > 0 {
		return nil, core.WrapError(core.ErrProviderFailed, errors.Join(errs...))
	}

	r.scanned = all
	r.scannedAt = r.now()
	return all, nil
}

func (r *RSS) fetch(ctx context.Context, feed Feed) ([]core.NewsItem, error) {
	parsed, err := r.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", feed.Name, err)
	}

	fetchedAt := r.now()
	items := make([]core.NewsItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		published := fetchedAt
		switch {
		case it.PublishedParsed != nil:
			published = *it.PublishedParsed
		case it.UpdatedParsed != nil:
			published = *it.UpdatedParsed
		}
		items = append(items, core.NewsItem{
			Title:       strings.TrimSpace(it.Title),
			Body:        strings.TrimSpace(it.Description),
			Source:      feed.Name,
			URL:         it.Link,
			PublishedAt: published,
		})
	}
	return items, nil
}
