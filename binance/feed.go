// Package binance streams trade prices from the Binance spot websocket API.
package binance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rustyeddy/levtrader/market"
)

const (
	// DefaultURL is the raw stream endpoint; the stream name is appended.
	DefaultURL = "wss://stream.binance.com:9443/ws"

	// Binance pings every 3 minutes; a silent connection is treated as dead
	// well before the server would drop it.
	defaultReadTimeout = 60 * time.Second
)

// Feed is a market.Feed over one <symbol>@trade stream.
type Feed struct {
	url         string
	backoff     market.Backoff
	dialer      *websocket.Dialer
	readTimeout time.Duration
	log         *zap.Logger

	mu         sync.Mutex
	subscribed bool

	stats struct {
		messages atomic.Int64
		connects atomic.Int64
		errors   atomic.Int64
	}
}

type Option func(*Feed)

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(f *Feed) { f.dialer = d }
}

// WithReadTimeout sets how long a connection may stay silent before it is
// dropped and redialed.
func WithReadTimeout(d time.Duration) Option {
	return func(f *Feed) { f.readTimeout = d }
}

// WithLogger sets the logger for connection and decode events.
func WithLogger(l *zap.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFeed returns a feed for baseURL (DefaultURL when empty).
func NewFeed(baseURL string, b market.Backoff, opts ...Option) *Feed {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	f := &Feed{
		url:         strings.TrimRight(baseURL, "/"),
		backoff:     b,
		dialer:      websocket.DefaultDialer,
		readTimeout: defaultReadTimeout,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StreamURL returns the websocket URL for pair's trade stream.
func (f *Feed) StreamURL(pair string) string {
	return fmt.Sprintf("%s/%s@trade", f.url, strings.ToLower(market.NormalizePair(pair)))
}

// Subscribe connects to the trade stream for pair. The connection is
// redialed forever until ctx is done, at which point the channel closes.
// A Feed can be subscribed only once.
func (f *Feed) Subscribe(ctx context.Context, pair string) (<-chan market.Tick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribed {
		return nil, market.ErrAlreadySubscribed
	}
	f.subscribed = true

	url := f.StreamURL(pair)
	out := make(chan market.Tick)

	go func() {
		defer close(out)
		market.Reconnect(ctx, f.log, "binance "+market.NormalizePair(pair), f.backoff, func(ctx context.Context) (market.StreamFunc, error) {
			return f.connect(ctx, url, out)
		})
	}()

	return out, nil
}

func (f *Feed) connect(ctx context.Context, url string, out chan<- market.Tick) (market.StreamFunc, error) {
	conn, _, err := f.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	f.stats.connects.Add(1)

	return func(ctx context.Context) error {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
			case <-done:
			}
			conn.Close()
		}()

		conn.SetPingHandler(func(data string) error {
			_ = conn.SetReadDeadline(time.Now().Add(f.readTimeout))
			return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
		})

		for {
			_ = conn.SetReadDeadline(time.Now().Add(f.readTimeout))
			_, data, err := conn.ReadMessage()
			if err != nil {
				f.stats.errors.Add(1)
				return fmt.Errorf("read: %w", err)
			}
			f.stats.messages.Add(1)

			tick, ok, err := ParseTrade(data)
			if err != nil {
				f.stats.errors.Add(1)
				f.log.Debug("skipping trade message", zap.Error(err))
				continue
			}
			if !ok {
				continue
			}

			select {
			case out <- tick:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}, nil
}

// Stats reports message, reconnect and error counts.
type Stats struct {
	Messages   int64
	Reconnects int64
	Errors     int64
}

func (f *Feed) Stats() Stats {
	s := Stats{
		Messages: f.stats.messages.Load(),
		Errors:   f.stats.errors.Load(),
	}
	if n := f.stats.connects.Load(); n > 1 {
		s.Reconnects = n - 1
	}
	return s
}
