package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleTrade(id string, closeTime time.Time, pl string, reason string) TradeRecord {
	return TradeRecord{
		TradeID:    id,
		Pair:       "BTCUSDT",
		Side:       "LONG",
		Margin:     dec("10"),
		Leverage:   50,
		Notional:   dec("500"),
		Quantity:   dec("0.0166666666666667"),
		EntryPrice: dec("30000"),
		ExitPrice:  dec("30300"),
		OpenTime:   closeTime.Add(-time.Hour),
		CloseTime:  closeTime,
		RealizedPL: dec(pl),
		Reason:     reason,
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteRecordTrade(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	closeT := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)
	rec := sampleTrade("T1", closeT, "5", "CLOSED")

	require.NoError(t, j.RecordTrade(rec))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		tradeID, pair, side, reason string
		margin, realized            string
		leverage                    int
		closeTime                   time.Time
	)
	err = db.QueryRow(`
		SELECT trade_id, pair, side, margin, leverage, close_time, realized_pl, reason
		FROM trades LIMIT 1`).Scan(&tradeID, &pair, &side, &margin, &leverage, &closeTime, &realized, &reason)
	require.NoError(t, err)

	assert.Equal(t, "T1", tradeID)
	assert.Equal(t, "BTCUSDT", pair)
	assert.Equal(t, "LONG", side)
	assert.Equal(t, "10", margin)
	assert.Equal(t, 50, leverage)
	assert.True(t, closeTime.Equal(closeT))
	assert.Equal(t, "5", realized)
	assert.Equal(t, "CLOSED", reason)
}

func TestSQLiteRecordEquity(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	rec := EquitySnapshot{
		Time:          ts,
		Price:         dec("30300"),
		Balance:       dec("90"),
		Equity:        dec("105"),
		MarginUsed:    dec("10"),
		UnrealizedPL:  dec("5"),
		OpenPositions: 1,
	}
	require.NoError(t, j.RecordEquity(rec))

	got, err := j.ListEquityBetween(ts, ts.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.True(t, got[0].Time.Equal(ts))
	assert.True(t, rec.Price.Equal(got[0].Price))
	assert.True(t, rec.Balance.Equal(got[0].Balance))
	assert.True(t, rec.Equity.Equal(got[0].Equity))
	assert.True(t, rec.MarginUsed.Equal(got[0].MarginUsed))
	assert.True(t, rec.UnrealizedPL.Equal(got[0].UnrealizedPL))
	assert.Equal(t, 1, got[0].OpenPositions)
}

func TestSQLiteDuplicateTradeRejected(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	rec := sampleTrade("T1", time.Now(), "5", "CLOSED")
	require.NoError(t, j.RecordTrade(rec))
	assert.Error(t, j.RecordTrade(rec))
}
