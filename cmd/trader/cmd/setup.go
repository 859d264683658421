package cmd

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/levtrader/binance"
	"github.com/rustyeddy/levtrader/config"
	"github.com/rustyeddy/levtrader/journal"
	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/oanda"
	"github.com/rustyeddy/levtrader/sim"
)

// loadConfig reads the config file (or defaults), applies environment
// overrides and validates the result.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newEngine(cfg *config.Config, j journal.Journal) (*sim.Engine, error) {
	l, err := sim.NewLedger(sim.LedgerConfig{
		AccountID: cfg.Account.ID,
		Currency:  cfg.Account.Currency,
		Pair:      cfg.Trading.Pair,
		Balance:   decimal.NewFromFloat(cfg.Account.Balance),
		Leverage:  cfg.Trading.Leverage,
		Journal:   j,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return sim.NewEngine(l, cfg.Journal.EquityInterval), nil
}

func newFeed(cfg *config.Config) (market.Feed, error) {
	switch cfg.Feed.Source {
	case "binance":
		return binance.NewFeed(cfg.Feed.URL, cfg.Feed.Backoff(), binance.WithLogger(logger.Named("binance"))), nil
	case "oanda":
		if cfg.OandaToken == "" {
			return nil, fmt.Errorf("oanda feed needs %s_OANDA_TOKEN", config.EnvPrefix)
		}
		c, err := oanda.NewClient(cfg.Feed.OandaEnv, cfg.OandaToken)
		if err != nil {
			return nil, err
		}
		return oanda.NewPricingFeed(c, cfg.Feed.OandaAccount, cfg.Feed.Backoff(), logger.Named("oanda")), nil
	default:
		return nil, fmt.Errorf("unknown feed source %q", cfg.Feed.Source)
	}
}

func printAccount(w io.Writer, acct sim.Account) {
	fmt.Fprintf(w, "  Balance: %s %s\n", acct.Balance.StringFixed(2), acct.Currency)
	fmt.Fprintf(w, "  Equity: %s %s\n", acct.Equity.StringFixed(2), acct.Currency)
	fmt.Fprintf(w, "  Margin Used: %s %s\n", acct.MarginUsed.StringFixed(2), acct.Currency)
	fmt.Fprintf(w, "  Open Positions: %d\n", acct.OpenPositions)
}

func printSummary(w io.Writer, positions []sim.Position) {
	var trades []journal.TradeRecord
	for _, p := range positions {
		if !p.Status.Terminal() {
			continue
		}
		trades = append(trades, journal.TradeRecord{TradeID: string(p.ID), RealizedPL: p.RealizedPL, Reason: string(p.Status)})
	}
	s := journal.Summarize(trades)
	fmt.Fprintf(w, "  Trades: %d (wins %d, losses %d, liquidations %d)\n", s.Trades, s.Wins, s.Losses, s.Liquidations)
	fmt.Fprintf(w, "  Net P/L: %s\n", s.NetPL.StringFixed(2))
}
