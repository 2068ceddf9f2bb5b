package main

import (
	"fmt"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/marketdata"
)

var seedBars int

var seedCmd = &cobra.Command{
	Use:   "seed SYMBOL...",
	Short: "Copy daily history from Yahoo Finance into the Redis market data keys",
	Long: `Fetch daily bars from Yahoo Finance and store them as stock:history and
stock:current records, the format the redis market data provider reads.
Defaults to the configured watchlist when no symbols are given.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedBars, "bars", 250, "number of daily bars to copy")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	symbols := args
	if len(symbols) == 0 {
		symbols = cfg.Symbols()
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols given and the watchlist is empty")
	}

	ctx := cmd.Context()
	c := &components{cfg: cfg, log: log}
	defer c.Close()
	bridge, err := c.requireRedis(ctx)
	if err != nil {
		return err
	}

	var opts []marketdata.YahooOption
	if cfg.MarketData.YahooURL != "" {
		opts = append(opts, marketdata.WithBaseURL(cfg.MarketData.YahooURL))
	}
	yahoo := marketdata.NewYahoo(opts...)

	for _, arg := range symbols {
		symbol := strings.ToUpper(arg)
		points, err := yahoo.History(ctx, symbol, seedBars)
		if err != nil {
			log.Warn("fetching history failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		records := marketRecords(symbol, points)
		bar := progressbar.NewOptions(len(records),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription(symbol),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
		)
		for _, rec := range records {
			if err := bridge.Store(ctx, rec); err != nil {
				return fmt.Errorf("storing %s: %w", symbol, err)
			}
			bar.Add(1)
		}
		bar.Finish()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: stored %d bars\n", symbol, len(points))
	}
	return nil
}

// marketRecords converts bars, oldest first, into feed records whose change
// is measured against the previous bar's close.
func marketRecords(symbol string, points []core.PricePoint) []marketdata.MarketRecord {
	out := make([]marketdata.MarketRecord, 0, len(points))
	for i, p := range points {
		var change float64
		if i > 0 && points[i-1].Close > 0 {
			change = (p.Close - points[i-1].Close) / points[i-1].Close * 100
		}
		out = append(out, marketdata.MarketRecord{
			Symbol:        symbol,
			CurrentPrice:  p.Close,
			ChangePercent: change,
			Open:          p.Open,
			High:          p.High,
			Low:           p.Low,
			Close:         p.Close,
			Volume:        p.Volume,
			Timestamp:     float64(p.Time.Unix()),
		})
	}
	return out
}
