package sim

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/levtrader/journal"
	"github.com/rustyeddy/levtrader/market"
)

// LiquidationListener is told about every position the engine liquidates.
// It is called after the ledger lock is released, so it may call back into
// the ledger.
type LiquidationListener interface {
	OnLiquidation(p Position)
}

// Engine marks the ledger to market. It is the only caller that feeds
// prices into the ledger.
type Engine struct {
	ledger         *Ledger
	equityInterval time.Duration
	log            *zap.Logger

	mu       sync.Mutex
	listener LiquidationListener
	lastSnap time.Time
	ticks    uint64
}

// NewEngine returns an engine for l. Equity snapshots are journaled at most
// once per equityInterval of tick time; zero records one per tick. The
// engine logs through the ledger's logger.
func NewEngine(l *Ledger, equityInterval time.Duration) *Engine {
	return &Engine{
		ledger:         l,
		equityInterval: equityInterval,
		log:            l.log.Named("engine"),
	}
}

func (e *Engine) Ledger() *Ledger     { return e.ledger }
func (e *Engine) Logger() *zap.Logger { return e.log }

func (e *Engine) SetLiquidationListener(li LiquidationListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = li
}

// Ticks returns how many ticks have been applied.
func (e *Engine) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

// OnTick applies one price tick. Ticks must be delivered in arrival order;
// OnTick serializes with open and close commands through the ledger lock.
func (e *Engine) OnTick(t market.Tick) error {
	liquidated, acct, err := e.ledger.applyTick(t)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.ticks++
	listener := e.listener
	record := e.lastSnap.IsZero() || acct.Time.Sub(e.lastSnap) >= e.equityInterval
	if record {
		e.lastSnap = acct.Time
	}
	e.mu.Unlock()

	if record {
		err := e.ledger.journal.RecordEquity(journal.EquitySnapshot{
			Time:          acct.Time,
			Price:         acct.Price,
			Balance:       acct.Balance,
			Equity:        acct.Equity,
			MarginUsed:    acct.MarginUsed,
			UnrealizedPL:  acct.UnrealizedPL,
			OpenPositions: acct.OpenPositions,
		})
		if err != nil {
			e.log.Warn("journal equity failed", zap.Error(err))
		}
	}

	for _, p := range liquidated {
		e.log.Info("position liquidated",
			zap.String("id", string(p.ID)),
			zap.String("side", string(p.Side)),
			zap.Stringer("margin", p.Margin),
			zap.Stringer("open", p.OpenPrice),
			zap.Stringer("price", p.ClosePrice))
		if listener != nil {
			listener.OnLiquidation(p)
		}
	}
	return nil
}

// Run subscribes to feed and applies ticks until ctx is done or the feed
// ends. Invalid ticks are logged and skipped.
func (e *Engine) Run(ctx context.Context, feed market.Feed) error {
	ticks, err := feed.Subscribe(ctx, e.ledger.Pair())
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-ticks:
			if !ok {
				return nil
			}
			if err := e.OnTick(t); err != nil {
				e.log.Warn("tick rejected", zap.Stringer("tick", t), zap.Error(err))
			}
		}
	}
}
