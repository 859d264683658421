package market

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StreamFunc reads from an established connection until it fails.
type StreamFunc func(ctx context.Context) error

// ConnectFunc establishes one connection and returns the function that
// streams from it.
type ConnectFunc func(ctx context.Context) (StreamFunc, error)

// Reconnect keeps a feed connection alive until ctx is done. Failed dials
// back off according to b; a dropped stream is redialed after the base
// delay. There is no retry limit. A nil log discards output.
func Reconnect(ctx context.Context, log *zap.Logger, id string, b Backoff, connect ConnectFunc) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("feed", id))
	retry := 0
	for {
		if ctx.Err() != nil {
			return
		}

		stream, err := connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := b.Delay(retry)
			log.Warn("feed connect failed",
				zap.Error(err),
				zap.Int("retry", retry),
				zap.Duration("delay", delay))
			retry++
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		retry = 0
		log.Info("feed connected")

		err = stream(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Warn("feed stream ended", zap.Error(fmt.Errorf("%w: %v", ErrFeedDisconnected, err)))
		if !sleep(ctx, b.Delay(0)) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
