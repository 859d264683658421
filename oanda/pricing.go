package oanda

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/levtrader/market"
)

type pricingStreamMsg struct {
	Type       string `json:"type"`
	Time       string `json:"time"`
	Instrument string `json:"instrument"`

	Bids []struct {
		Price string `json:"price"`
	} `json:"bids"`

	Asks []struct {
		Price string `json:"price"`
	} `json:"asks"`
}

var two = decimal.NewFromInt(2)

// Instrument converts a pair such as EURUSD or EUR/USD to OANDA's EUR_USD.
func Instrument(pair string) string {
	base, quote := market.SplitPair(pair)
	if quote == "" {
		return base
	}
	return base + "_" + quote
}

// ParsePrice decodes one line of the pricing stream. Heartbeats and
// anything without both sides of the book return ok == false.
func ParsePrice(line []byte) (tick market.Tick, ok bool, err error) {
	var msg pricingStreamMsg
	if err := json.Unmarshal(line, &msg); err != nil {
		return market.Tick{}, false, fmt.Errorf("oanda: bad json: %w (line=%q)", err, trimForErr(string(line)))
	}

	if strings.ToUpper(msg.Type) != "PRICE" {
		return market.Tick{}, false, nil
	}
	if msg.Instrument == "" || len(msg.Bids) == 0 || len(msg.Asks) == 0 {
		return market.Tick{}, false, nil
	}

	bid, err := decimal.NewFromString(msg.Bids[0].Price)
	if err != nil {
		return market.Tick{}, false, fmt.Errorf("oanda: bad bid %q: %w", msg.Bids[0].Price, err)
	}
	ask, err := decimal.NewFromString(msg.Asks[0].Price)
	if err != nil {
		return market.Tick{}, false, fmt.Errorf("oanda: bad ask %q: %w", msg.Asks[0].Price, err)
	}

	ts := time.Now().UTC()
	if msg.Time != "" {
		ts, err = time.Parse(time.RFC3339Nano, msg.Time)
		if err != nil {
			return market.Tick{}, false, fmt.Errorf("oanda: bad time %q: %w", msg.Time, err)
		}
	}

	tick = market.Tick{
		Pair:  market.NormalizePair(msg.Instrument),
		Price: bid.Add(ask).Div(two),
		Time:  ts.UTC(),
	}
	if err := tick.Validate(); err != nil {
		return market.Tick{}, false, err
	}
	return tick, true, nil
}

// PricingFeed is a market.Feed over the account pricing stream. Each tick
// carries the mid of the best bid and ask.
type PricingFeed struct {
	client    *Client
	accountID string
	backoff   market.Backoff
	log       *zap.Logger

	mu         sync.Mutex
	subscribed bool
}

// NewPricingFeed returns a feed over c's pricing stream. A nil log
// discards output.
func NewPricingFeed(c *Client, accountID string, b market.Backoff, log *zap.Logger) *PricingFeed {
	if log == nil {
		log = zap.NewNop()
	}
	return &PricingFeed{client: c, accountID: accountID, backoff: b, log: log}
}

// Subscribe streams pair until ctx is done, reconnecting on any error.
func (f *PricingFeed) Subscribe(ctx context.Context, pair string) (<-chan market.Tick, error) {
	if f.accountID == "" {
		return nil, fmt.Errorf("oanda: missing AccountID")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribed {
		return nil, market.ErrAlreadySubscribed
	}
	f.subscribed = true

	instrument := Instrument(pair)
	path := fmt.Sprintf("/v3/accounts/%s/pricing/stream", f.accountID)
	out := make(chan market.Tick)

	go func() {
		defer close(out)
		market.Reconnect(ctx, f.log, "oanda "+instrument, f.backoff, func(ctx context.Context) (market.StreamFunc, error) {
			body, err := f.client.Get(ctx, path, map[string]string{"instruments": instrument})
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context) error {
				defer body.Close()
				return f.stream(ctx, body, out)
			}, nil
		})
	}()

	return out, nil
}

func (f *PricingFeed) stream(ctx context.Context, r io.Reader, out chan<- market.Tick) error {
	sc := bufio.NewScanner(r)
	// OANDA stream messages can be long; bump max token
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		tick, ok, err := ParsePrice([]byte(line))
		if err != nil {
			f.log.Debug("skipping pricing message", zap.Error(err))
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

	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func trimForErr(s string) string {
	const n = 200
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
