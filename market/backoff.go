package market

import "time"

const (
	defaultBaseDelay = 1 * time.Second
	defaultMaxDelay  = 30 * time.Second
)

// Backoff computes reconnect delays. Retries are unlimited; only the delay
// between attempts is capped.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns Base * 2^retry, capped at Max. A negative retry returns Base.
func (b Backoff) Delay(retry int) time.Duration {
	base, max := b.Base, b.Max
	if base <= 0 {
		base = defaultBaseDelay
	}
	if max <= 0 {
		max = defaultMaxDelay
	}
	if max < base {
		max = base
	}

	if retry < 0 {
		return base
	}
	// 2^30 seconds is already far beyond any sane cap.
	if retry > 30 {
		return max
	}

	d := base * time.Duration(1<<retry)
	if d > max || d <= 0 {
		return max
	}
	return d
}
