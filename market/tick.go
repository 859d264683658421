package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrFeedDisconnected marks a transport outage. Feeds recover from it
	// internally; it only ever shows up in logs.
	ErrFeedDisconnected = errors.New("feed disconnected")

	// ErrAlreadySubscribed is returned by a Feed that has been subscribed
	// once already. Subscriptions are not restartable.
	ErrAlreadySubscribed = errors.New("feed already subscribed")
)

// Tick is one observed trade price for a pair.
type Tick struct {
	Pair  string
	Price decimal.Decimal
	Time  time.Time
}

// Validate reports whether the tick carries a usable price.
func (t Tick) Validate() error {
	if !t.Price.IsPositive() {
		return fmt.Errorf("tick %s: price must be positive, got %s", t.Pair, t.Price)
	}
	return nil
}

func (t Tick) String() string {
	return fmt.Sprintf("%s %s @ %s", t.Pair, t.Price.StringFixed(2), t.Time.UTC().Format(time.RFC3339Nano))
}

// Feed supplies a live, ordered stream of ticks for one pair.
//
// The returned channel is closed when ctx is done. Ticks arrive in the
// order they were observed and are never dropped; a slow consumer slows
// the feed down instead. Adapters decode and validate wire messages before
// sending, so every tick on the channel has a positive price.
type Feed interface {
	Subscribe(ctx context.Context, pair string) (<-chan Tick, error)
}
