package binance

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/levtrader/market"
)

// tradeMsg is one message on a <symbol>@trade stream.
type tradeMsg struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	TradeID   int64  `json:"t"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// ParseTrade decodes a trade stream message into a tick. Messages that are
// not trade events (subscription acks and the like) return ok == false.
func ParseTrade(data []byte) (tick market.Tick, ok bool, err error) {
	var msg tradeMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return market.Tick{}, false, fmt.Errorf("decode trade: %w", err)
	}
	if msg.Event != "trade" {
		return market.Tick{}, false, nil
	}

	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return market.Tick{}, false, fmt.Errorf("trade %d: bad price %q: %w", msg.TradeID, msg.Price, err)
	}

	ts := msg.TradeTime
	if ts == 0 {
		ts = msg.EventTime
	}

	tick = market.Tick{
		Pair:  market.NormalizePair(msg.Symbol),
		Price: price,
		Time:  time.UnixMilli(ts).UTC(),
	}
	if err := tick.Validate(); err != nil {
		return market.Tick{}, false, err
	}
	return tick, true, nil
}
