package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/levtrader/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <ticks.csv>",
	Short: "Replay recorded ticks and scripted trades from CSV",
	Long: `Replay tick data through the engine, applying any scripted events.

CSV columns: time,pair,price[,event,arg1,arg2]
Events:
  OPEN,LONG|SHORT,<margin>
  CLOSE,<#n|id>
  CLOSE_ALL

Account, pair, leverage and journal come from the config.

Example:
  trader replay data/btcusdt.csv -f trader.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var (
	replayCloseEnd   bool
	replayStrict     bool
	replayEventFirst bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().BoolVar(&replayCloseEnd, "close-end", true, "close all open positions at end")
	replayCmd.Flags().BoolVar(&replayStrict, "strict", false, "stop on the first rejected event")
	replayCmd.Flags().BoolVar(&replayEventFirst, "event-first", false, "run each row's event before its tick")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	j, err := cfg.Journal.OpenJournal()
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	engine, err := newEngine(cfg, j)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Replaying ticks from: %s\n", args[0])
	res, err := replay.File(ctx, args[0], engine, replay.Options{
		EventFirst: replayEventFirst,
		Strict:     replayStrict,
	})
	if err != nil {
		return fmt.Errorf("replay error: %w", err)
	}

	if replayCloseEnd {
		if _, err := engine.Ledger().CloseAll(ctx); err != nil {
			return fmt.Errorf("close all: %w", err)
		}
	}

	fmt.Fprintf(out, "\nReplay Complete!\n")
	fmt.Fprintf(out, "  Ticks: %d, Events: %d (rejected %d)\n", res.Ticks, res.Events, res.Rejected)
	printAccount(out, engine.Ledger().Account())
	printSummary(out, engine.Ledger().Positions())
	return nil
}
