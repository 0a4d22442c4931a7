package lookup_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/atlas/web/lookup"
)

func TestNewHistoryCriteria(t *testing.T) {
	t.Parallel()

	t.Run("it applies defaults for zero values", func(t *testing.T) {
		t.Parallel()

		criteria, err := lookup.NewHistoryCriteria(0, 0)

		require.NoError(t, err)
		assert.Equal(t, lookup.Page(lookup.DefaultPage), criteria.Page)
		assert.Equal(t, lookup.PerPage(lookup.DefaultPerPage), criteria.Size)
	})

	t.Run("it rejects oversized pages", func(t *testing.T) {
		t.Parallel()

		_, err := lookup.NewHistoryCriteria(1, lookup.MaxPerPage+1)

		require.ErrorIs(t, err, lookup.ErrInvalidPerPage)
		require.ErrorIs(t, err, lookup.ErrPerPageTooLarge)
	})

	t.Run("it rejects pages whose offset does not fit a bigint", func(t *testing.T) {
		t.Parallel()

		lastPage := uint64(math.MaxInt64-lookup.MaxPerPage-1)/lookup.MaxPerPage + 1

		for _, page := range []uint64{math.MaxUint64, 1 << 62, lastPage + 1} {
			_, err := lookup.NewHistoryCriteria(page, lookup.MaxPerPage)

			require.ErrorIs(t, err, lookup.ErrInvalidPage, page)
			require.ErrorIs(t, err, lookup.ErrPageTooLarge, page)
		}

		criteria, err := lookup.NewHistoryCriteria(lastPage, lookup.MaxPerPage)
		require.NoError(t, err)
		assert.LessOrEqual(t, criteria.ItemsToSkip()+criteria.ItemsPerPage()+1, uint64(math.MaxInt64))
	})

	t.Run("it computes the offset of a page", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			page, perPage uint64
			skip          uint64
		}{
			{1, 10, 0},
			{2, 10, 10},
			{5, 25, 100},
		}
		for _, tt := range tests {
			criteria, err := lookup.NewHistoryCriteria(tt.page, tt.perPage)
			require.NoError(t, err)

			assert.Equal(t, tt.perPage, criteria.ItemsPerPage())
			assert.Equal(t, tt.skip, criteria.ItemsToSkip())
		}
	})
}

func TestNewResultPage(t *testing.T) {
	t.Parallel()

	t.Run("it trims the look-ahead row and reports more pages", func(t *testing.T) {
		t.Parallel()

		// Arrange
		criteria, err := lookup.NewHistoryCriteria(2, 3)
		require.NoError(t, err)

		// Act
		page := lookup.NewResultPage([]int{1, 2, 3, 4}, criteria)

		// Assert
		assert.Equal(t, []int{1, 2, 3}, page.Items)
		assert.True(t, page.HasNext())
		assert.True(t, page.HasPrevious())
	})

	t.Run("it keeps a short last page as is", func(t *testing.T) {
		t.Parallel()

		// Arrange
		criteria, err := lookup.NewHistoryCriteria(1, 3)
		require.NoError(t, err)

		// Act
		page := lookup.NewResultPage([]int{1, 2}, criteria)

		// Assert
		assert.Equal(t, []int{1, 2}, page.Items)
		assert.False(t, page.HasNext())
		assert.False(t, page.HasPrevious())
	})
}
