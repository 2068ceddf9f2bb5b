package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
)

const (
	defaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooSource     = "yahoo"
)

// Yahoo reads daily bars and quotes from the Yahoo Finance chart API
type Yahoo struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// YahooOption configures a Yahoo provider
type YahooOption func(*Yahoo)

// WithBaseURL points the provider at another chart endpoint
func WithBaseURL(u string) YahooOption {
	return func(y *Yahoo) { y.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) YahooOption {
	return func(y *Yahoo) { y.client = c }
}

// NewYahoo creates a Yahoo chart provider
func NewYahoo(opts ...YahooOption) *Yahoo {
	y := &Yahoo{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: defaultYahooURL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string {
	return yahooSource
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// Quote fetches the live price and its change against the previous close
func (y *Yahoo) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	r, err := y.chart(ctx, symbol, url.Values{"interval": {"1d"}, "range": {"1d"}})
	if err != nil {
		return nil, err
	}

	meta := r.Meta
	q := &core.Quote{
		Symbol: symbol,
		Price:  meta.RegularMarketPrice,
		Time:   time.Unix(meta.RegularMarketTime, 0),
		Source: yahooSource,
	}
	prev := meta.ChartPreviousClose
	if prev <= 0 {
		prev = meta.PreviousClose
	}
	if prev > 0 {
		q.ChangePct = (q.Price - prev) / prev * 100
	}
	if !q.IsValid() {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("yahoo: no price for %s", symbol))
	}
	return q, nil
}

// History fetches enough calendar days to cover lookback trading days
func (y *Yahoo) History(ctx context.Context, symbol string, lookback int) ([]core.PricePoint, error) {
	if lookback <= 0 {
		lookback = 250
	}
	end := y.now()
	days := lookback*7/5 + 10
	start := end.AddDate(0, 0, -days)

	r, err := y.chart(ctx, symbol, url.Values{
		"interval": {"1d"},
		"period1":  {fmt.Sprint(start.Unix())},
		"period2":  {fmt.Sprint(end.Unix())},
	})
	if err != nil {
		return nil, err
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("yahoo: no bars for %s", symbol))
	}

	quotes := r.Indicators.Quote[0]
	data := make([]core.PricePoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := at(quotes.Close, i)
		if c == nil {
			continue // Skip missing data
		}
		p := core.PricePoint{
			Time:  time.Unix(ts, 0).UTC(),
			Close: *c,
		}
		if v := at(quotes.Open, i); v != nil {
			p.Open = *v
		}
		if v := at(quotes.High, i); v != nil {
			p.High = *v
		}
		if v := at(quotes.Low, i); v != nil {
			p.Low = *v
		}
		if v := at(quotes.Volume, i); v != nil {
			p.Volume = *v
		}
		data = append(data, p)
	}

	return Normalize(data, lookback), nil
}

func (y *Yahoo) chart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	endpoint := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(toYahooSymbol(symbol)), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; sigfuse)")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("fetching chart: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("yahoo: unknown symbol %s", symbol))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("decoding response: %w", err))
	}
	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("no data for symbol: %s", symbol))
	}
	return &result.Chart.Result[0], nil
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []quoteIndicator `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Symbol             string  `json:"symbol"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
	ChartPreviousClose float64 `json:"chartPreviousClose"`
	PreviousClose      float64 `json:"previousClose"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}
