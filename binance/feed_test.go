package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/levtrader/market"
)

func TestParseTrade(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     string
		ok      bool
		wantErr bool
		price   string
	}{
		{
			name:  "trade",
			msg:   `{"e":"trade","E":1700000000123,"s":"BTCUSDT","t":12345,"p":"30000.10","q":"0.001","T":1700000000120,"m":true}`,
			ok:    true,
			price: "30000.10",
		},
		{name: "subscription ack", msg: `{"result":null,"id":1}`},
		{name: "not json", msg: `hello`, wantErr: true},
		{name: "bad price", msg: `{"e":"trade","s":"BTCUSDT","p":"abc","T":1}`, wantErr: true},
		{name: "zero price", msg: `{"e":"trade","s":"BTCUSDT","p":"0","T":1}`, wantErr: true},
		{name: "negative price", msg: `{"e":"trade","s":"BTCUSDT","p":"-1","T":1}`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tick, ok, err := ParseTrade([]byte(tt.msg))
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, "BTCUSDT", tick.Pair)
			assert.True(t, decimal.RequireFromString(tt.price).Equal(tick.Price))
			assert.Equal(t, time.UnixMilli(1700000000120).UTC(), tick.Time)
		})
	}
}

func TestStreamURL(t *testing.T) {
	t.Parallel()

	f := NewFeed("", market.Backoff{})
	assert.Equal(t, "wss://stream.binance.com:9443/ws/btcusdt@trade", f.StreamURL("BTC/USDT"))

	f = NewFeed("ws://localhost:1234/ws/", market.Backoff{})
	assert.Equal(t, "ws://localhost:1234/ws/ethusdt@trade", f.StreamURL("ethusdt"))
}

func tradeJSON(seq int, price string) string {
	return fmt.Sprintf(`{"e":"trade","E":%d,"s":"BTCUSDT","t":%d,"p":"%s","q":"0.01","T":%d}`, 1700000000000+seq, seq, price, 1700000000000+seq)
}

// newTradeServer serves batches[n] on the n-th connection and then hangs
// up. Once the batches run out the connection stays open.
func newTradeServer(t *testing.T, batches [][]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var conns atomic.Int32
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/btcusdt@trade" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		n := int(conns.Add(1)) - 1
		if n >= len(batches) {
			// Block until the client goes away.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
		for _, msg := range batches[n] {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func receive(t *testing.T, ch <-chan market.Tick, n int) []market.Tick {
	t.Helper()
	var got []market.Tick
	timeout := time.After(5 * time.Second)
	for len(got) < n {
		select {
		case tick, ok := <-ch:
			require.True(t, ok, "channel closed after %d ticks", len(got))
			got = append(got, tick)
		case <-timeout:
			t.Fatalf("received %d of %d ticks", len(got), n)
		}
	}
	return got
}

func TestFeedDeliversTicksInOrderAcrossReconnects(t *testing.T) {
	t.Parallel()

	srv, conns := newTradeServer(t, [][]string{
		{tradeJSON(1, "30000"), `{"result":null,"id":1}`, tradeJSON(2, "30010")},
		{tradeJSON(3, "0"), tradeJSON(4, "30020")},
		{tradeJSON(5, "30030")},
	})

	core, logs := observer.New(zap.DebugLevel)
	f := NewFeed(wsURL(srv), market.Backoff{Base: 10 * time.Millisecond, Max: 50 * time.Millisecond},
		WithLogger(zap.New(core)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Subscribe(ctx, "BTC/USDT")
	require.NoError(t, err)

	got := receive(t, ch, 4)
	var prices []string
	for _, tick := range got {
		prices = append(prices, tick.Price.String())
		assert.Equal(t, "BTCUSDT", tick.Pair)
	}
	assert.Equal(t, []string{"30000", "30010", "30020", "30030"}, prices)
	assert.GreaterOrEqual(t, conns.Load(), int32(3))

	stats := f.Stats()
	assert.GreaterOrEqual(t, stats.Reconnects, int64(2))
	assert.GreaterOrEqual(t, stats.Errors, int64(1))
	assert.GreaterOrEqual(t, logs.FilterMessage("feed connected").Len(), 3)
	assert.Equal(t, 1, logs.FilterMessage("skipping trade message").Len())

	cancel()
	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestFeedRetriesUntilServerIsUp(t *testing.T) {
	t.Parallel()

	var up atomic.Bool
	srv, _ := newTradeServer(t, [][]string{{tradeJSON(1, "31000")}})
	gate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		srv.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(gate.Close)

	f := NewFeed(wsURL(gate), market.Backoff{Base: 5 * time.Millisecond, Max: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Subscribe(ctx, "BTCUSDT")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	up.Store(true)

	got := receive(t, ch, 1)
	assert.Equal(t, "31000", got[0].Price.String())
}

func TestFeedSubscribeOnce(t *testing.T) {
	t.Parallel()

	f := NewFeed("ws://127.0.0.1:1/ws", market.Backoff{Base: time.Millisecond, Max: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := f.Subscribe(ctx, "BTCUSDT")
	require.NoError(t, err)

	_, err = f.Subscribe(ctx, "BTCUSDT")
	assert.ErrorIs(t, err, market.ErrAlreadySubscribed)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}
