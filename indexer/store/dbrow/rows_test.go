package dbrow_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/indexer/store/dbrow"
)

func TestBalancesToRows(t *testing.T) {
	t.Parallel()

	// Arrange
	ts := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	snap := flp.OracleSnapshot{Ticker: "usds", TxID: "tx", Entries: []flp.BalanceEntry{
		{Wallet: "w1", EOA: "0x1", RawAmount: "1"},
		{Wallet: "w1", EOA: "0x1", RawAmount: "5"},
		{Wallet: "w1", EOA: "0x2", RawAmount: "2"},
	}}

	// Act
	rows := dbrow.BalancesToRows(ts, snap)

	// Assert
	require.Len(t, rows, 2)
	assert.Equal(t, []any{ts, "usds", "tx", "w1", "0x1", "5"}, rows[0])
	assert.Equal(t, "2", rows[1][5])
}

func TestDelegationsToRows(t *testing.T) {
	t.Parallel()

	// Arrange
	ts := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	profiles := []flp.Profile{
		{Wallet: "w1", Preferences: []flp.Preference{{Target: "p1", Factor: 10}, {Target: "p2", Factor: 20}}},
		{Wallet: "w2", LastUpdate: ts, Preferences: []flp.Preference{{Target: "p1", Factor: 30}}},
	}

	// Act
	rows := dbrow.DelegationsToRows(ts, "usds", "tx", profiles)

	// Assert
	require.Len(t, rows, 3)
	assert.Equal(t, int64(20), rows[1][5])
	assert.Nil(t, rows[0][6], "a defaulted profile has no last update")
	assert.Equal(t, &ts, rows[2][6])
}

func TestPositionsToRows(t *testing.T) {
	t.Parallel()

	// Arrange
	positions := []flp.Position{
		{Ticker: "usds", Wallet: "w1", EOA: "0x1", Project: "p1", Factor: 10, Amount: decimal.RequireFromString("1.5")},
		{Ticker: "usds", Wallet: "w1", EOA: "0x1", Project: "p1", Factor: 10, Amount: decimal.RequireFromString("0.25")},
		{Ticker: "usds", Wallet: "w1", EOA: "0x1", Project: "p2", Factor: 5, Amount: decimal.RequireFromString("3")},
	}

	// Act
	rows := dbrow.PositionsToRows("tx", positions)

	// Assert
	require.Len(t, rows, 2)
	assert.Equal(t, "1.75", rows[0][7])
	assert.Equal(t, "tx", rows[1][2])
}

func TestPositionToDomain(t *testing.T) {
	t.Parallel()

	t.Run("it parses the stored amount", func(t *testing.T) {
		t.Parallel()

		p, err := dbrow.Position{Wallet: "w1", Project: "p1", Factor: 7, Amount: "0.000000000000000001"}.ToDomain()

		require.NoError(t, err)
		assert.Equal(t, "0.000000000000000001", p.Amount.String())
		assert.Equal(t, uint32(7), p.Factor)
	})

	t.Run("it rejects a corrupt amount", func(t *testing.T) {
		t.Parallel()

		_, err := dbrow.Position{Amount: "lots"}.ToDomain()

		require.Error(t, err)
	})
}
