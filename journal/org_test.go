package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orgTrade(id, pair, side, pl, reason string) TradeRecord {
	return TradeRecord{
		TradeID:    id,
		Pair:       pair,
		Side:       side,
		Margin:     decimal.RequireFromString("10"),
		Leverage:   50,
		Notional:   decimal.RequireFromString("500"),
		Quantity:   decimal.RequireFromString("0.01666667"),
		EntryPrice: decimal.RequireFromString("30000"),
		ExitPrice:  decimal.RequireFromString("30300"),
		OpenTime:   time.Now(),
		CloseTime:  time.Now(),
		RealizedPL: decimal.RequireFromString(pl),
		Reason:     reason,
	}
}

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	trade := orgTrade("01HV7Y8K9QABCDEFGH12345678", "BTCUSDT", "LONG", "5", "CLOSED")
	trade.OpenTime = time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)
	trade.CloseTime = time.Date(2024, 3, 15, 14, 20, 30, 0, time.UTC)

	result := FormatTradeOrg(trade)

	assert.Contains(t, result, "** Trade: BTC/USDT LONG x50 (12345678)\n")

	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: 01HV7Y8K9QABCDEFGH12345678")
	assert.Contains(t, result, ":ID: 01HV7Y8K9QABCDEFGH12345678")
	assert.Contains(t, result, ":PAIR: BTCUSDT")
	assert.Contains(t, result, ":SIDE: LONG")
	assert.Contains(t, result, ":MARGIN: 10.00")
	assert.Contains(t, result, ":LEVERAGE: 50")
	assert.Contains(t, result, ":NOTIONAL: 500.00")
	assert.Contains(t, result, ":QUANTITY: 0.01666667")
	assert.Contains(t, result, ":ENTRY_PRICE: 30000.00")
	assert.Contains(t, result, ":EXIT_PRICE: 30300.00")
	assert.Contains(t, result, ":OPEN_TIME: 2024-03-15T10:30:45Z")
	assert.Contains(t, result, ":CLOSE_TIME: 2024-03-15T14:20:30Z")
	assert.Contains(t, result, ":REALIZED_PL: 5.00")
	assert.Contains(t, result, ":REASON: CLOSED")
	assert.Contains(t, result, ":END:")

	assert.Contains(t, result, "*** Thesis")
	assert.Contains(t, result, "*** Execution")
	assert.Contains(t, result, "*** Review")
}

func TestFormatTradeOrgLiquidated(t *testing.T) {
	t.Parallel()

	result := FormatTradeOrg(orgTrade("liq-trade", "ETHUSDT", "SHORT", "-10", "LIQUIDATED"))
	assert.Contains(t, result, "** Trade: ETH/USDT SHORT x50 (iq-trade) :liquidated:\n")
	assert.Contains(t, result, ":REALIZED_PL: -10.00")
	assert.Contains(t, result, ":REASON: LIQUIDATED")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	trades := []TradeRecord{
		orgTrade("trade-001", "BTCUSDT", "LONG", "5", "CLOSED"),
		orgTrade("trade-002", "ETHUSDT", "SHORT", "-2.5", "CLOSED"),
	}

	result := FormatTradesOrg(trades)

	assert.Contains(t, result, "BTC/USDT")
	assert.Contains(t, result, "ETH/USDT")
	assert.Contains(t, result, "trade-001")
	assert.Contains(t, result, "trade-002")

	parts := strings.Split(result, "\n\n\n")
	assert.Len(t, parts, 2, "expected two trades separated by blank lines")
}

func TestFormatTradesOrgEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FormatTradesOrg(nil))
}

func TestFormatTradesOrgSingle(t *testing.T) {
	t.Parallel()

	result := FormatTradesOrg([]TradeRecord{orgTrade("single", "BTCUSDT", "LONG", "1", "CLOSED")})
	assert.Contains(t, result, "single")
	assert.NotContains(t, result, "\n\n\n")
}

func TestShortID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ulid keeps random tail", "01HV7Y8K9QABCDEFGH12345678", "12345678"},
		{"exactly 8 characters", "12345678", "12345678"},
		{"less than 8 characters", "short", "short"},
		{"empty string", "", ""},
		{"9 characters", "123456789", "23456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shortID(tt.input)
			assert.Equal(t, tt.expected, result)
			assert.LessOrEqual(t, len(result), 8)
		})
	}
}

func TestFormatTradeOrgStructure(t *testing.T) {
	t.Parallel()

	result := FormatTradeOrg(orgTrade("structure-test", "BTCUSDT", "LONG", "5", "CLOSED"))

	lines := strings.Split(result, "\n")
	require.Greater(t, len(lines), 10)
	assert.True(t, strings.HasPrefix(lines[0], "** Trade:"))

	propertiesStart, propertiesEnd := -1, -1
	for i, line := range lines {
		if line == ":PROPERTIES:" {
			propertiesStart = i
		}
		if line == ":END:" && propertiesStart >= 0 {
			propertiesEnd = i
			break
		}
	}
	assert.Equal(t, 1, propertiesStart)
	assert.Greater(t, propertiesEnd, propertiesStart)

	thesis, execution, review := -1, -1, -1
	for i, line := range lines {
		switch line {
		case "*** Thesis":
			thesis = i
		case "*** Execution":
			execution = i
		case "*** Review":
			review = i
		}
	}
	assert.Greater(t, thesis, propertiesEnd)
	assert.Greater(t, execution, thesis)
	assert.Greater(t, review, execution)
}
