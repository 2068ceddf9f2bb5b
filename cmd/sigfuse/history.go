package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/sigfuse/internal/sink"
	"github.com/newthinker/sigfuse/internal/storage/archive"
)

var (
	historyDay  string
	historyJSON bool
)

var historyCmd = &cobra.Command{
	Use:   "history [SYMBOL]",
	Short: "Show signals archived on a day",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyDay, "day", "", "day to show, YYYY-MM-DD (default today, UTC)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print records as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	day := time.Now().UTC()
	if historyDay != "" {
		day, err = time.Parse(time.DateOnly, historyDay)
		if err != nil {
			return fmt.Errorf("invalid day (expected YYYY-MM-DD): %w", err)
		}
	}
	var symbol string
	if len(args) == 1 {
		symbol = strings.ToUpper(args[0])
	}

	store, err := archive.Open(cfg.Sinks.Archive.Config)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	records, err := sink.NewArchive(store).Day(cmd.Context(), day, symbol)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		return printJSON(out, records)
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "no signals archived on %s\n", day.Format(time.DateOnly))
		return nil
	}
	printTable(out, records)
	return nil
}
