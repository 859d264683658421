package journal

import (
	"github.com/shopspring/decimal"
)

// Summary aggregates closed trades.
type Summary struct {
	Trades       int
	Wins         int
	Losses       int
	Liquidations int
	GrossProfit  decimal.Decimal
	GrossLoss    decimal.Decimal // positive
	NetPL        decimal.Decimal
}

// WinRate is Wins/Trades, zero when there are no trades.
func (s Summary) WinRate() decimal.Decimal {
	if s.Trades == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.Wins)).Div(decimal.NewFromInt(int64(s.Trades)))
}

// ProfitFactor is GrossProfit/GrossLoss, zero when nothing was lost.
func (s Summary) ProfitFactor() decimal.Decimal {
	if s.GrossLoss.IsZero() {
		return decimal.Zero
	}
	return s.GrossProfit.Div(s.GrossLoss)
}

func Summarize(trades []TradeRecord) Summary {
	var s Summary
	for _, t := range trades {
		s.Trades++
		switch {
		case t.RealizedPL.IsPositive():
			s.Wins++
			s.GrossProfit = s.GrossProfit.Add(t.RealizedPL)
		case t.RealizedPL.IsNegative():
			s.Losses++
			s.GrossLoss = s.GrossLoss.Add(t.RealizedPL.Abs())
		}
		if t.Reason == "LIQUIDATED" {
			s.Liquidations++
		}
		s.NetPL = s.NetPL.Add(t.RealizedPL)
	}
	return s
}
