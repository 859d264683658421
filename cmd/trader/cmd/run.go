package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/levtrader/internal/console"
	"github.com/rustyeddy/levtrader/market"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trade interactively against the live price feed",
	Long: `Connect to the configured price feed and open a trading console.

Prices are applied as they arrive; open positions are marked to market on
every tick and liquidated when the loss reaches the margin. The feed
reconnects on its own after a disconnect.

Example:
  trader run
  trader run -f trader.yaml --log-level debug`,
	RunE: runRun,
}

var runCloseEnd bool

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runCloseEnd, "close-end", false, "close all open positions when the console exits")
}

func runRun(cmd *cobra.Command, args []string) error {
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
	feed, err := newFeed(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := cmd.OutOrStdout()
	con := console.New(engine.Ledger(), cmd.InOrStdin(), out)
	engine.SetLiquidationListener(con)

	feedErr := make(chan error, 1)
	go func() { feedErr <- engine.Run(ctx, feed) }()

	fmt.Fprintf(out, "Streaming %s from %s\n", market.DisplayPair(cfg.Trading.Pair), cfg.Feed.Source)
	err = con.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if runCloseEnd {
		if _, err := engine.Ledger().CloseAll(context.Background()); err != nil {
			fmt.Fprintf(out, "close all: %v\n", err)
		}
	}

	cancel()
	if err := <-feedErr; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("feed: %w", err)
	}

	fmt.Fprintf(out, "\nSession Complete (%d ticks)\n", engine.Ticks())
	printAccount(out, engine.Ledger().Account())
	printSummary(out, engine.Ledger().Positions())
	return nil
}
