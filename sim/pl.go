package sim

import "github.com/shopspring/decimal"

// UnrealizedPL values a leveraged exposure at price.
//
//	LONG:  notional * (price - open) / open
//	SHORT: notional * (open - price) / open
//
// Leverage is already folded into notional and is not applied again.
func UnrealizedPL(side Side, notional, openPrice, price decimal.Decimal) decimal.Decimal {
	if openPrice.IsZero() {
		return decimal.Zero
	}
	move := price.Sub(openPrice)
	if side == SideShort {
		move = move.Neg()
	}
	return notional.Mul(move).Div(openPrice)
}

// LiquidationPrice returns the price at which a position opened at
// openPrice with the given leverage has lost exactly its margin.
func LiquidationPrice(side Side, openPrice decimal.Decimal, leverage int) decimal.Decimal {
	if leverage <= 0 {
		return decimal.Zero
	}
	step := openPrice.Div(decimal.NewFromInt(int64(leverage)))
	if side == SideShort {
		return openPrice.Add(step)
	}
	return openPrice.Sub(step)
}
