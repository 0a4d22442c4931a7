package delegation_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/atlas/delegation"
	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/pkg/arweave"
	"github.com/screwyprof/atlas/pkg/arweave/arweavetest"
)

const (
	testWallet        = flp.WalletAddress("vZY2XY1RD9HIfWi8ift-1_DnHLDadZMWrufSh-_rKF0")
	testDelegationPID = "cuxSKjGJ-WDB9PzSkVkVVrIBSh3DrYHYz44usQOj5yE"
	testAuthority     = flp.DefaultAuthority
)

func TestResolverResolve(t *testing.T) {
	t.Parallel()

	t.Run("it falls back to the default project when the wallet never declared", func(t *testing.T) {
		t.Parallel()

		// Arrange
		gw := arweavetest.NewGateway()
		resolver := delegation.NewResolver(gw, testDelegationPID)

		// Act
		res, err := resolver.Resolve(context.Background(), testWallet)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, delegation.OutcomeDefaulted, res.Outcome)
		assert.Equal(t, testWallet, res.Profile.Wallet)
		assert.Equal(t, []flp.Preference{{Target: flp.FallbackProjectID, Factor: flp.DefaultMaxFactor}}, res.Profile.Preferences)
		assert.Zero(t, gw.DownloadCount(), "no payload is downloaded for undeclared wallets")
	})

	t.Run("it honours a custom fallback project and max factor", func(t *testing.T) {
		t.Parallel()

		// Arrange
		gw := arweavetest.NewGateway()
		resolver := delegation.NewResolver(gw, testDelegationPID,
			delegation.WithFallbackProject(flp.LOADProjectID),
			delegation.WithMaxFactor(10_000),
		)

		// Act
		res, err := resolver.Resolve(context.Background(), testWallet)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []flp.Preference{{Target: flp.LOADProjectID, Factor: 10_000}}, res.Profile.Preferences)
	})

	t.Run("it returns the profile relayed for the latest declaration", func(t *testing.T) {
		t.Parallel()

		// Arrange
		gw := arweavetest.NewGateway()
		publishDeclaration(gw, "decl-old", 1_700_000)
		publishRelay(gw, "relay-old", "decl-old", 1_700_001, newSchemaPayload(flp.PIProjectID, 1_000_000))
		publishDeclaration(gw, "decl-new", 1_800_000)
		publishRelay(gw, "relay-new", "decl-new", 1_800_001, newSchemaPayload(flp.APUSProjectID, 500_000))

		resolver := delegation.NewResolver(gw, testDelegationPID)

		// Act
		res, err := resolver.Resolve(context.Background(), testWallet)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, delegation.OutcomeFound, res.Outcome)
		assert.Equal(t, "decl-new", res.DeclarationID)
		assert.Equal(t, "relay-new", res.RelayID)
		assert.Equal(t, []flp.Preference{{Target: flp.APUSProjectID, Factor: 500_000}}, res.Profile.Preferences)
		assert.Equal(t, time.UnixMilli(1_750_000_000_000).UTC(), res.Profile.LastUpdate)
	})

	t.Run("it reports an inconsistent state when the relay is missing", func(t *testing.T) {
		t.Parallel()

		// Arrange
		gw := arweavetest.NewGateway()
		publishDeclaration(gw, "decl-1", 1_700_000)

		resolver := delegation.NewResolver(gw, testDelegationPID)

		// Act
		res, err := resolver.Resolve(context.Background(), testWallet)

		// Assert
		require.ErrorIs(t, err, flp.ErrInconsistentState)
		assert.Equal(t, delegation.OutcomeInconsistent, res.Outcome)
		assert.Equal(t, "decl-1", res.DeclarationID)
	})

	t.Run("it ignores relays from untrusted owners", func(t *testing.T) {
		t.Parallel()

		// Arrange
		gw := arweavetest.NewGateway()
		publishDeclaration(gw, "decl-1", 1_700_000)
		gw.Publish(arweave.Transaction{
			ID:          "forged",
			Owner:       "someone-else",
			BlockHeight: 1_700_001,
			Tags: []arweave.Tag{
				{Name: delegation.TagFromProcess, Value: testDelegationPID},
				{Name: delegation.TagPushedFor, Value: "decl-1"},
			},
		}, newSchemaPayload(flp.APUSProjectID, 1))

		resolver := delegation.NewResolver(gw, testDelegationPID)

		// Act
		_, err := resolver.Resolve(context.Background(), testWallet)

		// Assert
		require.ErrorIs(t, err, flp.ErrInconsistentState)
	})

	t.Run("it decodes the old snake_case schema", func(t *testing.T) {
		t.Parallel()

		// Arrange
		gw := arweavetest.NewGateway()
		publishDeclaration(gw, "decl-1", 1_700_000)
		publishRelay(gw, "relay-1", "decl-1", 1_700_001, []byte(`{
			"wallet": "`+testWallet.String()+`",
			"last_update": 1700000000000,
			"delegation_prefs": [
				{"wallet_to": "`+flp.LOADProjectID+`", "factor": 250000},
				{"wallet_to": "`+flp.PIProjectID+`", "factor": 750000}
			]
		}`))

		resolver := delegation.NewResolver(gw, testDelegationPID)

		// Act
		res, err := resolver.Resolve(context.Background(), testWallet)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []flp.Preference{
			{Target: flp.LOADProjectID, Factor: 250_000},
			{Target: flp.PIProjectID, Factor: 750_000},
		}, res.Profile.Preferences)
	})

	t.Run("it reports undecodable payloads as schema errors", func(t *testing.T) {
		t.Parallel()

		// Arrange
		gw := arweavetest.NewGateway()
		publishDeclaration(gw, "decl-1", 1_700_000)
		publishRelay(gw, "relay-1", "decl-1", 1_700_001, []byte(`<html>not json</html>`))

		resolver := delegation.NewResolver(gw, testDelegationPID)

		// Act
		_, err := resolver.Resolve(context.Background(), testWallet)

		// Assert
		require.ErrorIs(t, err, flp.ErrSchema)
	})

	t.Run("it rejects factors above the max factor", func(t *testing.T) {
		t.Parallel()

		// Arrange
		gw := arweavetest.NewGateway()
		publishDeclaration(gw, "decl-1", 1_700_000)
		publishRelay(gw, "relay-1", "decl-1", 1_700_001, newSchemaPayload(flp.PIProjectID, 1_000_001))

		resolver := delegation.NewResolver(gw, testDelegationPID)

		// Act
		_, err := resolver.Resolve(context.Background(), testWallet)

		// Assert
		require.ErrorIs(t, err, flp.ErrSchema)
	})

	t.Run("it wraps gateway failures as transport errors", func(t *testing.T) {
		t.Parallel()

		// Arrange
		gw := arweavetest.NewGateway()
		gw.FindErr = arweave.ErrRequestFailed

		resolver := delegation.NewResolver(gw, testDelegationPID)

		// Act
		_, err := resolver.Resolve(context.Background(), testWallet)

		// Assert
		require.ErrorIs(t, err, flp.ErrTransport)
		require.ErrorIs(t, err, delegation.ErrDeclarationLookup)
		assert.True(t, errors.Is(err, arweave.ErrRequestFailed))
	})

	t.Run("it wraps download failures as transport errors", func(t *testing.T) {
		t.Parallel()

		// Arrange
		gw := arweavetest.NewGateway()
		publishDeclaration(gw, "decl-1", 1_700_000)
		publishRelay(gw, "relay-1", "decl-1", 1_700_001, nil)

		resolver := delegation.NewResolver(gw, testDelegationPID)

		// Act
		_, err := resolver.Resolve(context.Background(), testWallet)

		// Assert
		require.ErrorIs(t, err, flp.ErrTransport)
		require.ErrorIs(t, err, delegation.ErrPayloadDownload)
	})

	t.Run("it rejects malformed wallet addresses before querying", func(t *testing.T) {
		t.Parallel()

		// Arrange
		gw := arweavetest.NewGateway()
		resolver := delegation.NewResolver(gw, testDelegationPID)

		// Act
		_, err := resolver.Resolve(context.Background(), flp.WalletAddress("short"))

		// Assert
		require.ErrorIs(t, err, flp.ErrValidation)
		assert.Zero(t, gw.QueryCount())
	})
}

func TestDecodeProfile(t *testing.T) {
	t.Parallel()

	t.Run("it attributes the profile to the resolved wallet whatever its key", func(t *testing.T) {
		t.Parallel()

		// Arrange
		data := []byte(`{"_key":"base_other","lastUpdate":1,"delegationPrefs":[{"walletTo":"` + flp.APUSProjectID + `","factor":10}]}`)

		// Act
		profile, err := delegation.DecodeProfile(data, testWallet)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, testWallet, profile.Wallet)
		assert.Equal(t, []flp.Preference{{Target: flp.APUSProjectID, Factor: 10}}, profile.Preferences)
	})

	t.Run("it accepts an empty preference list", func(t *testing.T) {
		t.Parallel()

		// Arrange
		data := []byte(`{"_key":"base_` + testWallet.String() + `","lastUpdate":1,"delegationPrefs":[]}`)

		// Act
		profile, err := delegation.DecodeProfile(data, testWallet)

		// Assert
		require.NoError(t, err)
		assert.Empty(t, profile.Preferences)
	})

	t.Run("it rejects payloads without preferences", func(t *testing.T) {
		t.Parallel()

		// Act
		_, err := delegation.DecodeProfile([]byte(`{"_key":"x"}`), testWallet)

		// Assert
		require.ErrorIs(t, err, flp.ErrSchema)
	})
}

func publishDeclaration(gw *arweavetest.Gateway, id string, height uint32) {
	gw.Publish(arweave.Transaction{
		ID:          id,
		Owner:       testWallet.String(),
		BlockHeight: height,
		Tags:        []arweave.Tag{{Name: delegation.TagAction, Value: delegation.ActionSetDelegation}},
	}, nil)
}

func publishRelay(gw *arweavetest.Gateway, id, declID string, height uint32, payload []byte) {
	gw.Publish(arweave.Transaction{
		ID:          id,
		Owner:       testAuthority,
		BlockHeight: height,
		Tags: []arweave.Tag{
			{Name: delegation.TagFromProcess, Value: testDelegationPID},
			{Name: delegation.TagPushedFor, Value: declID},
		},
	}, payload)
}

func newSchemaPayload(target string, factor uint32) []byte {
	return []byte(`{
		"_key": "base_` + testWallet.String() + `",
		"lastUpdate": 1750000000000,
		"delegationPrefs": [{"walletTo": "` + target + `", "factor": ` + strconv.FormatUint(uint64(factor), 10) + `}]
	}`)
}
