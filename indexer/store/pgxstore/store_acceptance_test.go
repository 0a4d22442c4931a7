//go:build acceptance

package pgxstore_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/indexer/store/pgxstore"
	"github.com/screwyprof/atlas/migrator"
	"github.com/screwyprof/atlas/migrator/migratortest"
)

const migrationsDir = "../../../migrator/migrations"

var ts = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func TestStorePersistsCycle(t *testing.T) {
	t.Parallel()

	t.Run("it writes every table and marks the snapshot last", func(t *testing.T) {
		t.Parallel()

		// Arrange
		pool := migratortest.CreateTestDatabase(t, migrationsDir)
		store, _ := pgxstore.New(pool)
		snap := flp.OracleSnapshot{Ticker: "usds", TxID: "snap-1", Entries: []flp.BalanceEntry{
			{Wallet: "w1", EOA: "0x1", RawAmount: "2500000000000000000"},
		}}
		profiles := []flp.Profile{{Wallet: "w1", Preferences: []flp.Preference{{Target: "p1", Factor: 1_000_000}}}}
		positions := []flp.Position{{
			Timestamp: ts, Ticker: "usds", Wallet: "w1", EOA: "0x1", Project: "p1",
			Factor: 1_000_000, Amount: decimal.RequireFromString("2.5"),
		}}

		// Act
		require.NoError(t, store.SaveBalances(t.Context(), ts, snap))
		require.NoError(t, store.SaveDelegations(t.Context(), ts, "usds", "snap-1", profiles))
		require.NoError(t, store.SavePositions(t.Context(), "snap-1", positions))
		before, err := store.HasSnapshot(t.Context(), "usds", "snap-1")
		require.NoError(t, err)
		require.NoError(t, store.MarkSnapshot(t.Context(), ts, "usds", "snap-1", 1))

		// Assert
		after, err := store.HasSnapshot(t.Context(), "usds", "snap-1")
		require.NoError(t, err)
		assert.False(t, before)
		assert.True(t, after)

		var amount string
		require.NoError(t, pool.QueryRow(t.Context(),
			"SELECT amount FROM flp_positions WHERE wallet = 'w1' AND project = 'p1'").Scan(&amount))
		assert.Equal(t, "2.5", amount)
	})

	t.Run("it replays a cycle without duplicating rows", func(t *testing.T) {
		t.Parallel()

		// Arrange
		pool := migratortest.CreateTestDatabase(t, migrationsDir)
		store, _ := pgxstore.New(pool)
		snap := flp.OracleSnapshot{Ticker: "usds", TxID: "snap-1", Entries: []flp.BalanceEntry{
			{Wallet: "w1", EOA: "0x1", RawAmount: "1"},
			{Wallet: "w2", EOA: "0x2", RawAmount: "2"},
		}}

		// Act
		require.NoError(t, store.SaveBalances(t.Context(), ts, snap))
		require.NoError(t, store.SaveBalances(t.Context(), ts.Add(time.Minute), snap))

		// Assert
		var count int
		require.NoError(t, pool.QueryRow(t.Context(), "SELECT count(*) FROM wallet_balances").Scan(&count))
		assert.Equal(t, 2, count)
	})
}

func TestSeededDemoDatabase(t *testing.T) {
	t.Parallel()

	// Arrange
	pool := migratortest.CreateSeededTestDatabase(t, migrationsDir, 30*time.Second)

	// Act
	var positions, mappings int
	require.NoError(t, pool.QueryRow(t.Context(), "SELECT count(*) FROM flp_positions").Scan(&positions))
	require.NoError(t, pool.QueryRow(t.Context(), "SELECT count(*) FROM delegation_mappings").Scan(&mappings))

	// Assert
	assert.Equal(t, 3, positions, "two preferences of the delegator plus the defaulted wallet")
	assert.Equal(t, 4, mappings)

	var amount string
	require.NoError(t, pool.QueryRow(t.Context(),
		"SELECT amount FROM flp_positions WHERE wallet = $1 AND project = $2",
		migrator.DemoDelegator, flp.APUSProjectID).Scan(&amount))
	assert.Equal(t, "1.5", amount)
}
