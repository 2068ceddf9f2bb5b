package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/sigfuse/internal/sink"
)

var (
	analyzeTrain bool
	analyzeJSON  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL...",
	Short: "Run one fused analysis per symbol and print the result",
	Long: `Fetch history, quote and news for each symbol, run the technical and
sentiment strategies, fuse them and publish to the configured sinks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeTrain, "train", false, "train the model before analyzing and print its report")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print records as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	records := make([]sink.Record, 0, len(args))
	for _, arg := range args {
		symbol := strings.ToUpper(arg)
		if analyzeTrain {
			report, err := c.analyzer.Train(ctx, symbol)
			if err != nil {
				log.Warn("training failed", zap.String("symbol", symbol), zap.Error(err))
			} else if !analyzeJSON {
				fmt.Fprintf(out, "%s model: %d rows, accuracy %.1f%%\n", symbol, report.Rows, report.Accuracy*100)
			}
		}
		records = append(records, c.analyzer.Run(ctx, symbol))
	}

	if analyzeJSON {
		return printJSON(out, records)
	}
	printTable(out, records)
	return nil
}

func printJSON(w io.Writer, records []sink.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func printTable(w io.Writer, records []sink.Record) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"SYMBOL", "ACTION", "CONF", "SCORE", "PRICE", "CHANGE", "REASON"}),
	)
	for _, rec := range records {
		sig := rec.Signal
		price, change := "-", "-"
		if sig.Market.Available {
			price = fmt.Sprintf("%.2f", sig.Market.Price)
			change = fmt.Sprintf("%+.2f%%", sig.Market.ChangePct)
		}
		reason := sig.Reason
		if len(reason) > 60 {
			reason = reason[:60] + "..."
		}
		table.Append([]string{
			sig.Symbol,
			string(sig.Action),
			fmt.Sprintf("%.1f", sig.Confidence),
			fmt.Sprintf("%+.1f", sig.Score),
			price,
			change,
			reason,
		})
	}
	table.Render()
}
