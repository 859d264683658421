package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTrade(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	closeT := time.Date(2024, 4, 10, 15, 30, 0, 0, time.UTC)
	want := sampleTrade("T123", closeT, "-10", "LIQUIDATED")
	require.NoError(t, j.RecordTrade(want))

	got, err := j.GetTrade("T123")
	require.NoError(t, err)

	assert.Equal(t, want.TradeID, got.TradeID)
	assert.Equal(t, want.Pair, got.Pair)
	assert.Equal(t, want.Side, got.Side)
	assert.True(t, want.Margin.Equal(got.Margin))
	assert.Equal(t, want.Leverage, got.Leverage)
	assert.True(t, want.Notional.Equal(got.Notional))
	assert.True(t, want.Quantity.Equal(got.Quantity))
	assert.True(t, want.EntryPrice.Equal(got.EntryPrice))
	assert.True(t, want.ExitPrice.Equal(got.ExitPrice))
	assert.True(t, got.OpenTime.Equal(want.OpenTime))
	assert.True(t, got.CloseTime.Equal(want.CloseTime))
	assert.True(t, want.RealizedPL.Equal(got.RealizedPL))
	assert.Equal(t, want.Reason, got.Reason)
}

func TestGetTradeNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetTrade("nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListTradesClosedBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"A", "B", "C", "D"} {
		require.NoError(t, j.RecordTrade(sampleTrade(id, base.Add(time.Duration(i)*time.Hour), "1", "CLOSED")))
	}

	got, err := j.ListTradesClosedBetween(base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].TradeID)
	assert.Equal(t, "C", got[1].TradeID)

	all, err := j.ListTrades()
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestListTradesEmpty(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	got, err := j.ListTrades()
	require.NoError(t, err)
	assert.Empty(t, got)
}
