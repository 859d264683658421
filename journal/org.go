package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/levtrader/market"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode entry for pasting
// into a trading journal. Facts go in the PROPERTIES drawer so they stay
// searchable; the Thesis/Execution/Review headings are left for notes.
func FormatTradeOrg(t TradeRecord) string {
	open := t.OpenTime.UTC().Format(time.RFC3339)
	close := t.CloseTime.UTC().Format(time.RFC3339)

	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s %s x%d (%s)", market.DisplayPair(t.Pair), t.Side, t.Leverage, shortID(t.TradeID))
	if t.Reason == "LIQUIDATED" {
		b.WriteString(" :liquidated:")
	}
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":PAIR: %s\n", t.Pair)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":MARGIN: %s\n", t.Margin.StringFixed(2))
	fmt.Fprintf(&b, ":LEVERAGE: %d\n", t.Leverage)
	fmt.Fprintf(&b, ":NOTIONAL: %s\n", t.Notional.StringFixed(2))
	fmt.Fprintf(&b, ":QUANTITY: %s\n", t.Quantity.StringFixed(8))
	fmt.Fprintf(&b, ":ENTRY_PRICE: %s\n", t.EntryPrice.StringFixed(2))
	fmt.Fprintf(&b, ":EXIT_PRICE: %s\n", t.ExitPrice.StringFixed(2))
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", open)
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", close)
	fmt.Fprintf(&b, ":REALIZED_PL: %s\n", t.RealizedPL.StringFixed(2))
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// shortID keeps the last 8 characters. Trade ids are ULIDs, whose leading
// characters are a timestamp shared by trades opened close together.
func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
