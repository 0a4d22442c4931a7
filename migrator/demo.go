package migrator

import (
	"fmt"

	"github.com/screwyprof/atlas/backfill"
	"github.com/screwyprof/atlas/delegation"
	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/oracle"
	"github.com/screwyprof/atlas/pkg/arweave"
	"github.com/screwyprof/atlas/pkg/arweave/arweavetest"
)

// Demo ledger identifiers. Wallets are syntactically valid addresses that own nothing.
const (
	DemoDelegationPID = "DEMOdelegation00000000000000000000000000000"
	DemoUSDSOracle    = "DEMOoracleUSDS00000000000000000000000000000"
	DemoDelegator     = "DEMOwalletDelegator000000000000000000000000"
	DemoDefaulted     = "DEMOwalletDefaulted000000000000000000000000"
	DemoDelegatorEOA  = "0x1111111111111111111111111111111111111111"
	DemoDefaultedEOA  = "0x2222222222222222222222222222222222222222"
)

// DemoTickers is the ticker registry of the demo ledger
func DemoTickers() flp.Tickers {
	return flp.NewTickers(map[string]string{"usds": DemoUSDSOracle})
}

// DemoLedger publishes a small but complete ledger: one usds snapshot, one
// delegating wallet with its relayed profile, one wallet that never declared
// and two mapping snapshots inside the default backfill window.
func DemoLedger() *arweavetest.Gateway {
	g := arweavetest.NewGateway()

	g.Publish(arweave.Transaction{
		ID:          "demo-usds-snapshot",
		Owner:       flp.DefaultAuthority,
		BlockHeight: 1_750_000,
		Tags: []arweave.Tag{
			{Name: oracle.TagAction, Value: oracle.ActionSetBalances},
			{Name: oracle.TagFromProcess, Value: DemoUSDSOracle},
		},
	}, fmt.Appendf(nil, `[
		{"eoa": %q, "amount": "2500000000000000000", "ar_address": %q},
		{"eoa": %q, "amount": "1000000000000000000", "ar_address": %q}
	]`, DemoDelegatorEOA, DemoDelegator, DemoDefaultedEOA, DemoDefaulted))

	g.Publish(arweave.Transaction{
		ID:          "demo-declaration",
		Owner:       DemoDelegator,
		BlockHeight: 1_700_000,
		Tags:        []arweave.Tag{{Name: delegation.TagAction, Value: delegation.ActionSetDelegation}},
	}, nil)

	g.Publish(arweave.Transaction{
		ID:          "demo-relay",
		Owner:       flp.DefaultAuthority,
		BlockHeight: 1_700_001,
		Tags: []arweave.Tag{
			{Name: delegation.TagFromProcess, Value: DemoDelegationPID},
			{Name: delegation.TagPushedFor, Value: "demo-declaration"},
		},
	}, fmt.Appendf(nil, `{"_key": %q, "lastUpdate": 1751328000000, "delegationPrefs": [
		{"walletTo": %q, "factor": 600000},
		{"walletTo": %q, "factor": 400000}
	]}`, DemoDelegator, flp.APUSProjectID, flp.LOADProjectID))

	for i, height := range []uint32{1_650_000, 1_700_100} {
		g.Publish(arweave.Transaction{
			ID:          fmt.Sprintf("demo-mappings-%d", i+1),
			Owner:       flp.DefaultAuthority,
			BlockHeight: height,
			Tags:        []arweave.Tag{{Name: backfill.TagAction, Value: backfill.ActionDelegationMappings}},
		}, fmt.Appendf(nil, "wallet_from,wallet_to,factor\n%s,%s,%d\n%s,%s,%d\n",
			DemoDelegator, flp.APUSProjectID, 600_000+i,
			DemoDefaulted, flp.PIProjectID, flp.DefaultMaxFactor))
	}

	return g
}
