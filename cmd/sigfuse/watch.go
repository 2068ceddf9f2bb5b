package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/sigfuse/internal/api"
	"github.com/newthinker/sigfuse/internal/core"
	"github.com/newthinker/sigfuse/internal/pipeline"
)

var watchAPIKey string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Analyze the watchlist on an interval and serve the results",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAPIKey, "api-key", "", "require this key on /api routes")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	c, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	watcher := pipeline.NewWatcher(c.analyzer, cfg.Watch.WatchConfig, log)
	watcher.SetWatchlist(cfg.Symbols())
	watcher.OnCycle(func(res pipeline.CycleResult, size int) {
		c.metrics.RecordCycle(res)
		c.metrics.SetWatchlistSize(size)
		if c.router != nil {
			c.router.CleanupExpired()
		}
	})

	if c.archive != nil && cfg.Sinks.Archive.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.Sinks.Archive.RetentionDays)
		n, err := c.archive.Prune(ctx, cutoff)
		if err != nil {
			log.Warn("archive prune failed", zap.Error(err))
		} else if n > 0 {
			log.Info("pruned archived signals", zap.Int("removed", n), zap.Time("cutoff", cutoff))
		}
	}

	var updates <-chan core.Quote
	if cfg.Watch.Realtime {
		bridge, err := c.requireRedis(ctx)
		if err != nil {
			return err
		}
		if updates, err = bridge.Updates(ctx); err != nil {
			return fmt.Errorf("subscribing to market updates: %w", err)
		}
	}

	var srv *api.Server
	if cfg.Watch.Listen != "" {
		metricsPath := ""
		if cfg.Metrics.Enabled {
			metricsPath = cfg.Metrics.Path
		}
		srv, err = api.NewServer(api.Config{
			Addr:        cfg.Watch.Listen,
			APIKey:      watchAPIKey,
			MetricsPath: metricsPath,
		}, api.Dependencies{
			Analyzer: c.analyzer,
			Watcher:  watcher,
			Signals:  c.signals,
			Metrics:  c.metrics,
		}, log)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		go func() {
			if err := srv.Start(); err != nil {
				log.Error("server error", zap.Error(err))
			}
		}()
	}

	err = watcher.Start(ctx, updates)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.Warn("server shutdown", zap.Error(serr))
		}
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
