package sim

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLeverage is the system-wide leverage applied to every position.
const DefaultLeverage = 50

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ParseSide accepts long/short in any case, plus buy/sell.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return SideLong, nil
	case "SHORT", "SELL":
		return SideShort, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusClosed     Status = "CLOSED"
	StatusLiquidated Status = "LIQUIDATED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusLiquidated
}

type PositionID string

// Position is one leveraged trade. Values handed out by the Ledger are
// copies; mutating them has no effect on the ledger.
type Position struct {
	ID       PositionID
	Pair     string
	Side     Side
	Margin   decimal.Decimal
	Leverage int
	Notional decimal.Decimal // Margin * Leverage
	Quantity decimal.Decimal // Notional / OpenPrice

	OpenPrice decimal.Decimal
	OpenTime  time.Time

	// Mark to market, updated on every tick while open.
	LastPrice    decimal.Decimal
	UnrealizedPL decimal.Decimal

	Status     Status
	RealizedPL decimal.Decimal
	ClosePrice decimal.Decimal
	CloseTime  time.Time
}

func newPosition(id PositionID, pair string, side Side, margin decimal.Decimal, leverage int, price decimal.Decimal, at time.Time) *Position {
	notional := margin.Mul(decimal.NewFromInt(int64(leverage)))
	return &Position{
		ID:           id,
		Pair:         pair,
		Side:         side,
		Margin:       margin,
		Leverage:     leverage,
		Notional:     notional,
		Quantity:     notional.Div(price),
		OpenPrice:    price,
		OpenTime:     at,
		LastPrice:    price,
		UnrealizedPL: decimal.Zero,
		Status:       StatusOpen,
	}
}

func (p Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// PLAt is the position's profit or loss if it were valued at price.
func (p Position) PLAt(price decimal.Decimal) decimal.Decimal {
	return UnrealizedPL(p.Side, p.Notional, p.OpenPrice, price)
}

// LiquidationPrice is the price at which the loss equals the margin.
func (p Position) LiquidationPrice() decimal.Decimal {
	return LiquidationPrice(p.Side, p.OpenPrice, p.Leverage)
}

// ROE is the profit or loss as a fraction of margin: realized once the
// position is terminal, unrealized while open.
func (p Position) ROE() decimal.Decimal {
	if p.Margin.IsZero() {
		return decimal.Zero
	}
	pl := p.UnrealizedPL
	if p.Status.Terminal() {
		pl = p.RealizedPL
	}
	return pl.Div(p.Margin)
}
