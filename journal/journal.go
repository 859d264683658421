package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is written once, when a position reaches a terminal state.
type TradeRecord struct {
	TradeID    string
	Pair       string
	Side       string
	Margin     decimal.Decimal
	Leverage   int
	Notional   decimal.Decimal
	Quantity   decimal.Decimal
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL decimal.Decimal
	Reason     string // CLOSED or LIQUIDATED
}

// EquitySnapshot is the account state right after a tick was applied.
type EquitySnapshot struct {
	Time          time.Time
	Price         decimal.Decimal
	Balance       decimal.Decimal
	Equity        decimal.Decimal
	MarginUsed    decimal.Decimal
	UnrealizedPL  decimal.Decimal
	OpenPositions int
}

// Journal is an append-only audit trail. It is never read back to rebuild
// ledger state.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Discard drops every record.
type Discard struct{}

func (Discard) RecordTrade(TradeRecord) error     { return nil }
func (Discard) RecordEquity(EquitySnapshot) error { return nil }
func (Discard) Close() error                      { return nil }
