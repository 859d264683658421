package sim

import (
	"fmt"

	"github.com/rustyeddy/levtrader/market"
)

// applyTick records t as the last price, revalues every open position at
// it and liquidates those whose loss has consumed their margin. It runs as
// one pass under the ledger lock, so readers see either none or all of a
// tick's effects.
func (l *Ledger) applyTick(t market.Tick) ([]Position, Account, error) {
	if err := t.Validate(); err != nil {
		return nil, Account{}, err
	}
	if t.Pair != "" && l.pair != "" && market.NormalizePair(t.Pair) != l.pair {
		return nil, Account{}, fmt.Errorf("%w: got %s, want %s", ErrPairMismatch, t.Pair, l.pair)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if t.Time.IsZero() {
		t.Time = l.now()
	}
	l.last = t
	l.hasTick = true

	liquidated := l.markLocked(t)
	return liquidated, l.accountLocked(), nil
}

func (l *Ledger) markLocked(t market.Tick) []Position {
	var liquidated []Position

	for _, p := range l.positions {
		if !p.IsOpen() {
			continue
		}

		p.LastPrice = t.Price
		p.UnrealizedPL = p.PLAt(t.Price)

		if p.UnrealizedPL.LessThanOrEqual(p.Margin.Neg()) {
			l.settleLocked(p, t.Price, t.Time, StatusLiquidated)
			liquidated = append(liquidated, *p)
		}
	}
	return liquidated
}
