// Package broker is the command surface the console and replay drive.
package broker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/sim"
)

type Broker interface {
	Pair() string
	Leverage() int
	Balance() decimal.Decimal
	Account() sim.Account
	LastTick() (market.Tick, error)
	Positions() []sim.Position
	Position(id sim.PositionID) (sim.Position, error)

	OpenPosition(ctx context.Context, side sim.Side, margin decimal.Decimal) (sim.PositionID, error)
	ClosePosition(ctx context.Context, id sim.PositionID) (sim.Position, error)
	CloseAll(ctx context.Context) ([]sim.Position, error)
}

var _ Broker = (*sim.Ledger)(nil)

// Resolve turns a user reference into a position id. "#n" is the n-th
// position in opening order, counting from 1; anything else is taken as
// an id.
func Resolve(b Broker, ref string) (sim.PositionID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", sim.ErrPositionNotFound)
	}

	if !strings.HasPrefix(ref, "#") {
		pid := sim.PositionID(ref)
		if _, err := b.Position(pid); err != nil {
			return "", err
		}
		return pid, nil
	}

	n, err := strconv.Atoi(ref[1:])
	if err != nil {
		return "", fmt.Errorf("%w: bad reference %q", sim.ErrPositionNotFound, ref)
	}
	ps := b.Positions()
	if n < 1 || n > len(ps) {
		return "", fmt.Errorf("%w: %s (have %d)", sim.ErrPositionNotFound, ref, len(ps))
	}
	return ps[n-1].ID, nil
}
