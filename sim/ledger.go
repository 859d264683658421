package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/levtrader/internal/id"
	"github.com/rustyeddy/levtrader/journal"
	"github.com/rustyeddy/levtrader/market"
)

// LedgerConfig sets up a new Ledger.
type LedgerConfig struct {
	AccountID string
	Currency  string
	Pair      string
	Balance   decimal.Decimal
	Leverage  int // DefaultLeverage when zero
	Journal   journal.Journal
	Logger    *zap.Logger // zap.NewNop when nil
}

// Ledger owns the account balance and every position ever opened. It is
// the only place either is mutated; price ticks reach it through Engine
// under the same lock as open and close commands.
type Ledger struct {
	mu        sync.Mutex
	accountID string
	currency  string
	pair      string
	leverage  int
	balance   decimal.Decimal
	positions []*Position // opening order
	byID      map[PositionID]*Position
	last      market.Tick
	hasTick   bool
	journal   journal.Journal
	log       *zap.Logger
	now       func() time.Time
}

func NewLedger(cfg LedgerConfig) (*Ledger, error) {
	if cfg.Balance.IsNegative() {
		return nil, fmt.Errorf("new ledger: %w: balance %s is negative", ErrInvalidAmount, cfg.Balance)
	}
	lev := cfg.Leverage
	if lev == 0 {
		lev = DefaultLeverage
	}
	if lev < 1 {
		return nil, fmt.Errorf("new ledger: leverage must be positive, got %d", lev)
	}
	j := cfg.Journal
	if j == nil {
		j = journal.Discard{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		accountID: cfg.AccountID,
		currency:  cfg.Currency,
		pair:      market.NormalizePair(cfg.Pair),
		leverage:  lev,
		balance:   cfg.Balance,
		byID:      make(map[PositionID]*Position),
		journal:   j,
		log:       log,
		now:       time.Now,
	}, nil
}

func (l *Ledger) Pair() string  { return l.pair }
func (l *Ledger) Leverage() int { return l.leverage }

// Balance returns the free cash balance.
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// LastTick returns the most recent tick applied to the ledger.
func (l *Ledger) LastTick() (market.Tick, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hasTick {
		return market.Tick{}, ErrPriceUnavailable
	}
	return l.last, nil
}

// Positions returns copies of all positions, open and closed, in the
// order they were opened.
func (l *Ledger) Positions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	return out
}

// Position returns a copy of one position.
func (l *Ledger) Position(id PositionID) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.byID[id]
	if !ok {
		return Position{}, fmt.Errorf("%w: %q", ErrPositionNotFound, id)
	}
	return *p, nil
}

// Account returns a snapshot of balance, equity and margin in use.
func (l *Ledger) Account() Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accountLocked()
}

// OpenPosition opens a position at the last observed price.
func (l *Ledger) OpenPosition(ctx context.Context, side Side, margin decimal.Decimal) (PositionID, error) {
	_ = ctx // commands complete synchronously

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.hasTick {
		return "", fmt.Errorf("open position: %w: no tick received yet", ErrPriceUnavailable)
	}
	return l.openLocked(side, margin, l.last.Price, l.last.Time)
}

// OpenPositionAt opens a position at an explicit price.
func (l *Ledger) OpenPositionAt(ctx context.Context, side Side, margin, price decimal.Decimal) (PositionID, error) {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openLocked(side, margin, price, l.now())
}

func (l *Ledger) openLocked(side Side, margin, price decimal.Decimal, at time.Time) (PositionID, error) {
	if !side.Valid() {
		return "", fmt.Errorf("open position: %w: %q", ErrInvalidSide, side)
	}
	if !margin.IsPositive() {
		return "", fmt.Errorf("open position: %w: margin %s must be positive", ErrInvalidAmount, margin)
	}
	if margin.GreaterThan(l.balance) {
		return "", fmt.Errorf("open position: %w: margin %s exceeds balance %s", ErrInvalidAmount, margin, l.balance)
	}
	if !price.IsPositive() {
		return "", fmt.Errorf("open position: %w: price %s", ErrPriceUnavailable, price)
	}
	if at.IsZero() {
		at = l.now()
	}

	pid := PositionID(id.New())
	p := newPosition(pid, l.pair, side, margin, l.leverage, price, at)

	l.balance = l.balance.Sub(margin)
	l.positions = append(l.positions, p)
	l.byID[pid] = p

	return pid, nil
}

// ClosePosition closes an open position at the last observed price and
// returns its final state.
func (l *Ledger) ClosePosition(ctx context.Context, pid PositionID) (Position, error) {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.closableLocked(pid)
	if err != nil {
		return Position{}, err
	}
	if !l.hasTick {
		return Position{}, fmt.Errorf("close position %q: %w: no tick received yet", pid, ErrPriceUnavailable)
	}
	l.settleLocked(p, l.last.Price, l.last.Time, StatusClosed)
	return *p, nil
}

// ClosePositionAt closes an open position at an explicit price.
func (l *Ledger) ClosePositionAt(ctx context.Context, pid PositionID, price decimal.Decimal) (Position, error) {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.closableLocked(pid)
	if err != nil {
		return Position{}, err
	}
	if !price.IsPositive() {
		return Position{}, fmt.Errorf("close position %q: %w: price %s", pid, ErrPriceUnavailable, price)
	}
	l.settleLocked(p, price, l.now(), StatusClosed)
	return *p, nil
}

// CloseAll closes every open position at the last observed price, in
// opening order.
func (l *Ledger) CloseAll(ctx context.Context) ([]Position, error) {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	var closed []Position
	for _, p := range l.positions {
		if !p.IsOpen() {
			continue
		}
		if !l.hasTick {
			return nil, fmt.Errorf("close all: %w: no tick received yet", ErrPriceUnavailable)
		}
		l.settleLocked(p, l.last.Price, l.last.Time, StatusClosed)
		closed = append(closed, *p)
	}
	return closed, nil
}

func (l *Ledger) closableLocked(pid PositionID) (*Position, error) {
	p, ok := l.byID[pid]
	if !ok {
		return nil, fmt.Errorf("close position: %w: %q", ErrPositionNotFound, pid)
	}
	if p.Status.Terminal() {
		return nil, fmt.Errorf("close position %q: %w (%s)", pid, ErrAlreadyClosed, p.Status)
	}
	return p, nil
}

// settleLocked moves an open position into a terminal state and credits
// margin plus realized P/L back to the balance. The loss is capped at the
// margin, so the credit is never negative; a liquidation credits nothing.
func (l *Ledger) settleLocked(p *Position, price decimal.Decimal, at time.Time, status Status) {
	if at.IsZero() {
		at = l.now()
	}

	pl := p.PLAt(price)
	maxLoss := p.Margin.Neg()
	if status == StatusLiquidated || pl.LessThan(maxLoss) {
		pl = maxLoss
	}

	p.Status = status
	p.RealizedPL = pl
	p.ClosePrice = price
	p.CloseTime = at
	p.LastPrice = price
	p.UnrealizedPL = decimal.Zero

	l.balance = l.balance.Add(p.Margin).Add(pl)

	err := l.journal.RecordTrade(journal.TradeRecord{
		TradeID:    string(p.ID),
		Pair:       p.Pair,
		Side:       string(p.Side),
		Margin:     p.Margin,
		Leverage:   p.Leverage,
		Notional:   p.Notional,
		Quantity:   p.Quantity,
		EntryPrice: p.OpenPrice,
		ExitPrice:  price,
		OpenTime:   p.OpenTime,
		CloseTime:  at,
		RealizedPL: pl,
		Reason:     string(status),
	})
	if err != nil {
		l.log.Warn("journal trade failed", zap.String("id", string(p.ID)), zap.Error(err))
	}
}

func (l *Ledger) accountLocked() Account {
	acct := Account{
		ID:       l.accountID,
		Currency: l.currency,
		Pair:     l.pair,
		Leverage: l.leverage,
		Balance:  l.balance,
	}
	if l.hasTick {
		acct.Price = l.last.Price
		acct.Time = l.last.Time
	}

	for _, p := range l.positions {
		if !p.IsOpen() {
			continue
		}
		acct.MarginUsed = acct.MarginUsed.Add(p.Margin)
		acct.UnrealizedPL = acct.UnrealizedPL.Add(p.UnrealizedPL)
		acct.OpenPositions++
	}
	acct.Equity = acct.Balance.Add(acct.MarginUsed).Add(acct.UnrealizedPL)
	return acct
}
