package replay

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/levtrader/market"
)

// Feed plays a replay file back as a market.Feed. Event columns are
// ignored and rows labelled with another pair are skipped; unlabelled rows
// are delivered. The channel closes at end of file.
type Feed struct {
	open func() (io.ReadCloser, error)

	// Pace is the wall-clock delay between ticks. Zero sends as fast as
	// the consumer reads.
	Pace time.Duration

	// Logger reports a file that stops mid-way. Discarded when nil.
	Logger *zap.Logger

	mu         sync.Mutex
	subscribed bool
}

// NewFeed returns a feed reading the CSV file at path.
func NewFeed(path string) *Feed {
	return &Feed{open: func() (io.ReadCloser, error) { return os.Open(path) }}
}

// NewReaderFeed returns a feed reading r.
func NewReaderFeed(r io.Reader) *Feed {
	return &Feed{open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil }}
}

func (f *Feed) Subscribe(ctx context.Context, pair string) (<-chan market.Tick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribed {
		return nil, market.ErrAlreadySubscribed
	}

	rc, err := f.open()
	if err != nil {
		return nil, err
	}
	f.subscribed = true

	want := market.NormalizePair(pair)
	out := make(chan market.Tick)

	go func() {
		defer close(out)
		defer rc.Close()

		err := readRows(rc, func(row Row) error {
			if want != "" && row.Tick.Pair != "" && row.Tick.Pair != want {
				return nil
			}
			if f.Pace > 0 && !pause(ctx, f.Pace) {
				return ctx.Err()
			}
			select {
			case out <- row.Tick:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil && f.Logger != nil {
			f.Logger.Error("replay feed stopped", zap.Error(err))
		}
	}()

	return out, nil
}

func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
