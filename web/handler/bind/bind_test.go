package bind_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/atlas/delegation"
	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/web/handler/bind"
	"github.com/screwyprof/atlas/web/lookup"
)

const (
	wallet = "AAAAwallet000000000000000000000000000000000"
	target = "BBBBtarget000000000000000000000000000000000"
)

func TestPathBinding(t *testing.T) {
	t.Parallel()

	t.Run("it binds a well-formed wallet", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := requestWithPath(map[string]string{"wallet": wallet})

		// Act
		got, err := bind.Wallet(r)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, flp.WalletAddress(wallet), got)
	})

	t.Run("it rejects a malformed wallet as a validation error", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := requestWithPath(map[string]string{"wallet": "short"})

		// Act
		_, err := bind.Wallet(r)

		// Assert
		require.ErrorIs(t, err, flp.ErrValidation)
	})

	t.Run("it lower-cases an eoa", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := requestWithPath(map[string]string{"eoa": "0xABCDEF0000000000000000000000000000000001"})

		// Act
		got, err := bind.EOA(r)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "0xabcdef0000000000000000000000000000000001", got)
	})

	t.Run("it rejects a malformed eoa", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := requestWithPath(map[string]string{"eoa": "0x12"})

		// Act
		_, err := bind.EOA(r)

		// Assert
		require.ErrorIs(t, err, flp.ErrValidation)
	})

	t.Run("it resolves a project by ticker", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := requestWithPath(map[string]string{"project": "APUS"})

		// Act
		got, err := bind.Project(r)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, flp.APUSProjectID, got.PID)
		assert.Equal(t, "Apus Network", got.Name)
	})

	t.Run("it accepts an unknown process id", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := requestWithPath(map[string]string{"project": target})

		// Act
		got, err := bind.Project(r)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, flp.Project{PID: target}, got)
	})

	t.Run("it rejects a project that is neither ticker nor process id", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := requestWithPath(map[string]string{"project": "NOPE"})

		// Act
		_, err := bind.Project(r)

		// Assert
		require.ErrorIs(t, err, bind.ErrInvalidProject)
		require.ErrorIs(t, err, flp.ErrValidation)
	})
}

func TestHistoryRequestFrom(t *testing.T) {
	t.Parallel()

	t.Run("it applies defaults when parameters are absent", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := httptest.NewRequest(http.MethodGet, "/wallets/x/mappings", nil)

		// Act
		req, err := bind.HistoryRequestFrom(r)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, bind.HistoryRequest{Page: lookup.DefaultPage, PerPage: lookup.DefaultPerPage}, req)
	})

	t.Run("it binds explicit values", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := httptest.NewRequest(http.MethodGet, "/x?page=3&per_page=20", nil)

		// Act
		req, err := bind.HistoryRequestFrom(r)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, bind.HistoryRequest{Page: 3, PerPage: 20}, req)
	})

	t.Run("it rejects invalid values", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			query   string
			wantErr error
		}{
			{name: "non-numeric page", query: "page=abc", wantErr: bind.ErrPageNotNumeric},
			{name: "zero page", query: "page=0", wantErr: bind.ErrPageNotPositive},
			{name: "non-numeric per_page", query: "per_page=x", wantErr: bind.ErrPerPageNotNumeric},
			{name: "zero per_page", query: "per_page=0", wantErr: bind.ErrPerPageNotPositive},
			{name: "oversized per_page", query: "per_page=101", wantErr: bind.ErrPerPageTooLarge},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				// Arrange
				r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)

				// Act
				_, err := bind.HistoryRequestFrom(r)

				// Assert
				require.ErrorIs(t, err, tt.wantErr)
				require.ErrorIs(t, err, flp.ErrValidation)
			})
		}
	})
}

func TestResponseBinding(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("it binds a resolution", func(t *testing.T) {
		t.Parallel()

		// Arrange
		res := delegation.Resolution{
			Outcome: delegation.OutcomeFound,
			Profile: flp.Profile{
				Wallet:      wallet,
				LastUpdate:  ts,
				Preferences: []flp.Preference{{Target: target, Factor: 10000}},
			},
			DeclarationID: "decl",
			RelayID:       "relay",
		}

		// Act
		resp := bind.DelegationsResponse(res)

		// Assert
		assert.Equal(t, wallet, resp.Wallet)
		assert.Equal(t, delegation.OutcomeFound.String(), resp.Outcome)
		assert.Equal(t, "2025-06-01T12:00:00Z", resp.LastUpdate)
		assert.Equal(t, "decl", resp.DeclarationID)
		assert.Equal(t, "relay", resp.RelayID)
		require.Len(t, resp.Preferences, 1)
		assert.Equal(t, target, resp.Preferences[0].WalletTo)
		assert.Equal(t, uint32(10000), resp.Preferences[0].Factor)
	})

	t.Run("it omits the last update of a default profile", func(t *testing.T) {
		t.Parallel()

		// Arrange
		res := delegation.Resolution{Profile: flp.DefaultProfile(wallet, flp.FallbackProjectID, 10000)}

		// Act
		resp := bind.DelegationsResponse(res)

		// Assert
		assert.Empty(t, resp.LastUpdate)
		require.Len(t, resp.Preferences, 1)
	})

	t.Run("it binds a project snapshot with amounts as strings", func(t *testing.T) {
		t.Parallel()

		// Arrange
		snap := lookup.ProjectSnapshot{
			Project: flp.Project{Name: "Apus Network", PID: flp.APUSProjectID},
			Totals: []flp.ProjectDistribution{
				{Project: flp.APUSProjectID, Ticker: "usds", TotalAmount: decimal.RequireFromString("1.5"), Delegators: 1},
			},
			Positions: []flp.Position{
				{Timestamp: ts, Ticker: "usds", Wallet: wallet, EOA: "0xabc", Project: flp.APUSProjectID, Factor: 6000, Amount: decimal.RequireFromString("1.5")},
			},
		}

		// Act
		resp := bind.DistributionResponse(snap)

		// Assert
		assert.Equal(t, flp.APUSProjectID, resp.Project)
		assert.Equal(t, "Apus Network", resp.Name)
		require.Len(t, resp.Totals, 1)
		assert.Equal(t, "1.5", resp.Totals[0].TotalAmount)
		require.Len(t, resp.Delegators, 1)
		assert.Equal(t, "2025-06-01T12:00:00Z", resp.Delegators[0].Timestamp)
		assert.Equal(t, uint32(6000), resp.Delegators[0].Factor)
	})

	t.Run("it binds empty histories as empty arrays", func(t *testing.T) {
		t.Parallel()

		// Act
		identity := bind.IdentityResponse(nil)
		mappings := bind.MappingsResponse(nil)

		// Assert
		assert.NotNil(t, identity.Data)
		assert.Empty(t, identity.Data)
		assert.NotNil(t, mappings.Data)
		assert.Empty(t, mappings.Data)
	})
}

func requestWithPath(values map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range values {
		r.SetPathValue(k, v)
	}
	return r
}
