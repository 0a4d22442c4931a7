package pgxstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/screwyprof/atlas/web/lookup"
	"github.com/screwyprof/atlas/web/store/pgxstore"
)

func TestHistoryQueryBuilder(t *testing.T) {
	t.Parallel()

	t.Run("it builds a first page query without offset", func(t *testing.T) {
		t.Parallel()

		// Arrange
		criteria := lookup.HistoryCriteria{Page: 1, Size: 50}

		// Act
		query, args := pgxstore.NewMappingsQuery().FromWallet("w").Build(criteria)

		// Assert
		assert.Equal(t,
			"SELECT height, tx_id, wallet_from, wallet_to, factor, ts FROM delegation_mappings"+
				" WHERE wallet_from = $1 ORDER BY height DESC, tx_id, wallet_to LIMIT $2",
			query)
		assert.Equal(t, []any{"w", uint64(51)}, args)
	})

	t.Run("it adds an offset on later pages", func(t *testing.T) {
		t.Parallel()

		// Arrange
		criteria := lookup.HistoryCriteria{Page: 3, Size: 10}

		// Act
		query, args := pgxstore.NewIdentityQuery().ForEOA("0xabc").Build(criteria)

		// Assert
		assert.Equal(t,
			"SELECT wallet, eoa, ts FROM wallet_balances"+
				" WHERE eoa = $1 ORDER BY ts DESC, wallet, ticker, tx_id LIMIT $2 OFFSET $3",
			query)
		assert.Equal(t, []any{"0xabc", uint64(11), uint64(20)}, args)
	})

	t.Run("it can be built more than once", func(t *testing.T) {
		t.Parallel()

		// Arrange
		q := pgxstore.NewIdentityQuery().ForWallet("w")

		// Act
		_, first := q.Build(lookup.HistoryCriteria{Page: 2, Size: 5})
		_, second := q.Build(lookup.HistoryCriteria{Page: 1, Size: 5})

		// Assert
		assert.Equal(t, []any{"w", uint64(6), uint64(5)}, first)
		assert.Equal(t, []any{"w", uint64(6)}, second)
	})
}
