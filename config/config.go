package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/oanda"
)

// EnvPrefix prefixes every environment override, e.g. TRADER_ACCOUNT_BALANCE.
const EnvPrefix = "TRADER"

// Config represents the complete trader configuration
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Trading TradingConfig `json:"trading" yaml:"trading"`
	Feed    FeedConfig    `json:"feed" yaml:"feed"`
	Journal JournalConfig `json:"journal" yaml:"journal"`

	// OandaToken is only ever read from the environment.
	OandaToken string `json:"-" yaml:"-" split_words:"true"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// TradingConfig selects the traded pair and the leverage applied to every position
type TradingConfig struct {
	Pair     string `json:"pair" yaml:"pair"`
	Leverage int    `json:"leverage" yaml:"leverage"`
}

// FeedConfig contains price feed parameters
type FeedConfig struct {
	Source        string        `json:"source" yaml:"source"` // "binance" or "oanda"
	URL           string        `json:"url,omitempty" yaml:"url,omitempty"`
	ReconnectBase time.Duration `json:"reconnect_base" yaml:"reconnect_base" split_words:"true"`
	ReconnectMax  time.Duration `json:"reconnect_max" yaml:"reconnect_max" split_words:"true"`
	OandaEnv      string        `json:"oanda_env,omitempty" yaml:"oanda_env,omitempty" split_words:"true"`
	OandaAccount  string        `json:"oanda_account,omitempty" yaml:"oanda_account,omitempty" split_words:"true"`
}

// Backoff returns the reconnect delay policy.
func (f FeedConfig) Backoff() market.Backoff {
	return market.Backoff{Base: f.ReconnectBase, Max: f.ReconnectMax}
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type           string        `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile     string        `json:"trades_file,omitempty" yaml:"trades_file,omitempty" split_words:"true"`
	EquityFile     string        `json:"equity_file,omitempty" yaml:"equity_file,omitempty" split_words:"true"`
	DBPath         string        `json:"db_path,omitempty" yaml:"db_path,omitempty" split_words:"true"`
	EquityInterval time.Duration `json:"equity_interval" yaml:"equity_interval" split_words:"true"`
}

// LoadFromFile loads configuration from a file (YAML, or JSON as a fallback)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads an optional .env file from the working directory and
// then overrides cfg with any TRADER_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Trading.Pair == "" {
		return fmt.Errorf("trading.pair is required")
	}
	if _, quote := market.SplitPair(c.Trading.Pair); quote == "" {
		return fmt.Errorf("unknown quote currency in trading.pair: %s", c.Trading.Pair)
	}
	if c.Trading.Leverage < 1 {
		return fmt.Errorf("trading.leverage must be at least 1")
	}

	switch c.Feed.Source {
	case "binance":
		if c.Feed.URL == "" {
			return fmt.Errorf("feed.url required for binance source")
		}
	case "oanda":
		if _, err := oanda.BaseURL(c.Feed.OandaEnv); err != nil {
			return fmt.Errorf("feed.oanda_env: %w", err)
		}
		if c.Feed.OandaAccount == "" {
			return fmt.Errorf("feed.oanda_account required for oanda source")
		}
	default:
		return fmt.Errorf("feed.source must be 'binance' or 'oanda'")
	}
	if c.Feed.ReconnectBase <= 0 {
		return fmt.Errorf("feed.reconnect_base must be positive")
	}
	if c.Feed.ReconnectMax < c.Feed.ReconnectBase {
		return fmt.Errorf("feed.reconnect_max must not be less than reconnect_base")
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	if c.Journal.EquityInterval < 0 {
		return fmt.Errorf("journal.equity_interval must not be negative")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "PAPER-001",
			Currency: "USDT",
			Balance:  100,
		},
		Trading: TradingConfig{
			Pair:     "BTCUSDT",
			Leverage: 50,
		},
		Feed: FeedConfig{
			Source:        "binance",
			URL:           "wss://stream.binance.com:9443/ws",
			ReconnectBase: time.Second,
			ReconnectMax:  30 * time.Second,
			OandaEnv:      "practice",
		},
		Journal: JournalConfig{
			Type:           "sqlite",
			DBPath:         "./trader.db",
			EquityInterval: time.Minute,
		},
	}
}
