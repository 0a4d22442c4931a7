package backfill_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/atlas/backfill"
	"github.com/screwyprof/atlas/flp"
)

func TestDecodeMappings(t *testing.T) {
	t.Parallel()

	t.Run("it decodes json rows in both spellings", func(t *testing.T) {
		t.Parallel()

		// Arrange
		data := []byte(`[
			{"walletFrom": "a", "walletTo": "b", "factor": 400000},
			{"wallet_from": "a", "wallet_to": "c", "factor": 600000}
		]`)

		// Act
		rows, err := backfill.DecodeMappings(data, flp.DefaultMaxFactor)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []backfill.Mapping{
			{WalletFrom: "a", WalletTo: "b", Factor: 400_000},
			{WalletFrom: "a", WalletTo: "c", Factor: 600_000},
		}, rows)
	})

	t.Run("it decodes csv with and without a header", func(t *testing.T) {
		t.Parallel()

		for _, data := range []string{
			"wallet_from,wallet_to,factor\na,b,10\n",
			"a, b, 10\n",
		} {
			// Act
			rows, err := backfill.DecodeMappings([]byte(data), flp.DefaultMaxFactor)

			// Assert
			require.NoError(t, err, data)
			assert.Equal(t, []backfill.Mapping{{WalletFrom: "a", WalletTo: "b", Factor: 10}}, rows)
		}
	})

	t.Run("it rejects factors above the max factor", func(t *testing.T) {
		t.Parallel()

		// Act
		_, err := backfill.DecodeMappings([]byte(`[{"walletFrom":"a","walletTo":"b","factor":101}]`), 100)

		// Assert
		require.ErrorIs(t, err, flp.ErrSchema)
	})

	t.Run("it rejects malformed payloads", func(t *testing.T) {
		t.Parallel()

		for _, data := range []string{
			"",
			`[{"walletFrom":"a","factor":1}]`,
			`[{"walletFrom":"a","walletTo":"b","factor":-1}]`,
			"a,b\n",
			"a,b,ten\n",
		} {
			_, err := backfill.DecodeMappings([]byte(data), flp.DefaultMaxFactor)

			require.ErrorIs(t, err, flp.ErrSchema, data)
		}
	})

	t.Run("it accepts an empty snapshot", func(t *testing.T) {
		t.Parallel()

		rows, err := backfill.DecodeMappings([]byte(`[]`), flp.DefaultMaxFactor)

		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}
