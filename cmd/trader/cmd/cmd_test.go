package cmd

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rustyeddy/levtrader/binance"
	"github.com/rustyeddy/levtrader/config"
	"github.com/rustyeddy/levtrader/journal"
	"github.com/rustyeddy/levtrader/oanda"
)

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	start, end, err := dayBounds(loc, "2026-01-24")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 24, 0, 0, 0, 0, loc), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = dayBounds(loc, "24/01/2026")
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	defer func() { logger = zap.NewNop() }()

	for _, lvl := range []string{"debug", "info", "WARN", "error", ""} {
		assert.NoError(t, setupLogging(lvl), lvl)
	}
	assert.Error(t, setupLogging("loud"))

	require.NoError(t, setupLogging("warn"))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

// execute runs the root command with args and returns what it printed.
// Flag variables outlive a run, so they are put back to their defaults.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		configPath, logLevel = "", "info"
		journalDBPath, journalOrg = "", false
		replayCloseEnd, replayStrict, replayEventFirst = true, false, false
		configInitOutput = "trader.yaml"
		logger = zap.NewNop()
	}()

	err := rootCmd.Execute()
	return out.String(), err
}

func TestReplayAndJournalCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "trader.yaml")
	dbPath := filepath.Join(dir, "trader.db")

	out, err := execute(t, "config", "init", "-o", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration: "+cfgPath)

	cfg, err := config.LoadFromFile(cfgPath)
	require.NoError(t, err)
	cfg.Journal.DBPath = dbPath
	require.NoError(t, cfg.SaveToFile(cfgPath))

	out, err = execute(t, "config", "validate", "-f", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid: "+cfgPath)
	assert.Contains(t, out, "Trading: BTCUSDT at 50x")

	sample := filepath.Join("..", "..", "..", "examples", "replay", "btcusdt.csv")
	out, err = execute(t, "replay", sample, "-f", cfgPath, "--strict", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Complete!")
	assert.Contains(t, out, "Ticks: 11, Events: 5 (rejected 0)")
	assert.Contains(t, out, "Open Positions: 0")
	assert.Contains(t, out, "Trades: 3")

	j, err := journal.NewSQLite(dbPath)
	require.NoError(t, err)
	trades, err := j.ListTrades()
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.Len(t, trades, 3)

	day := trades[0].CloseTime.In(time.Local).Format("2006-01-02")
	out, err = execute(t, "journal", "day", day, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "REASON")
	assert.Contains(t, out, "3 trades")
	for _, tr := range trades {
		assert.Contains(t, out, tr.TradeID)
	}

	out, err = execute(t, "journal", "trade", trades[0].TradeID, "--db", dbPath, "--org")
	require.NoError(t, err)
	assert.Contains(t, out, ":TRADE_ID: "+trades[0].TradeID)
	assert.Contains(t, out, "*** Review")

	_, err = execute(t, "journal", "trade", "nope", "--db", dbPath)
	assert.Error(t, err)

	_, err = execute(t, "journal", "today", "--db", filepath.Join(dir, "missing.db"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "trader version "+version)
}

func TestNewFeed(t *testing.T) {
	cfg := config.Default()
	f, err := newFeed(cfg)
	require.NoError(t, err)
	assert.IsType(t, &binance.Feed{}, f)

	cfg.Feed.Source = "oanda"
	cfg.Feed.OandaAccount = "101-1"
	_, err = newFeed(cfg)
	assert.Error(t, err)

	cfg.OandaToken = "tok"
	f, err = newFeed(cfg)
	require.NoError(t, err)
	assert.IsType(t, &oanda.PricingFeed{}, f)
}

func TestNewEngineFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Account.Balance = 250.5
	cfg.Trading.Leverage = 20

	e, err := newEngine(cfg, journal.Discard{})
	require.NoError(t, err)
	assert.Equal(t, "250.5", e.Ledger().Balance().String())
	assert.Equal(t, 20, e.Ledger().Leverage())
	assert.Equal(t, "BTCUSDT", e.Ledger().Pair())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trader.yaml")
	cfg := config.Default()
	cfg.Account.Balance = 42
	require.NoError(t, cfg.SaveToFile(path))

	t.Setenv("TRADER_TRADING_LEVERAGE", "10")
	configPath = path
	defer func() { configPath = "" }()

	loaded, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 42.0, loaded.Account.Balance)
	assert.Equal(t, 10, loaded.Trading.Leverage)
}
