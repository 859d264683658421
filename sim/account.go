package sim

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a point-in-time view of the ledger's capital.
type Account struct {
	ID       string
	Currency string
	Pair     string
	Leverage int

	// Balance is free cash; margin of open positions has already been
	// taken out of it.
	Balance decimal.Decimal

	// Equity is Balance plus margin and unrealized P/L of open positions.
	Equity        decimal.Decimal
	MarginUsed    decimal.Decimal
	UnrealizedPL  decimal.Decimal
	OpenPositions int

	// Last observed price, zero before the first tick.
	Price decimal.Decimal
	Time  time.Time
}
