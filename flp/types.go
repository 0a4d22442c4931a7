// Package flp holds the domain model shared by the resolver, the calculator,
// the backfill pipeline and the serving façade.
package flp

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMaxFactor expresses 100% in millionths.
const DefaultMaxFactor uint32 = 1_000_000

// Preference routes Factor/MaxFactor of a wallet's balance to Target.
type Preference struct {
	Target string `json:"walletTo"`
	Factor uint32 `json:"factor"`
}

// Profile is the resolved delegation profile of a wallet.
// Preferences are not required to sum to MaxFactor.
type Profile struct {
	Wallet      WalletAddress `json:"wallet"`
	LastUpdate  time.Time     `json:"lastUpdate"`
	Preferences []Preference  `json:"delegationPrefs"`
}

// DefaultProfile synthesizes the sentinel profile used when a wallet never declared a preference:
// the whole balance goes to the fallback project.
func DefaultProfile(wallet WalletAddress, fallbackProject string, maxFactor uint32) Profile {
	return Profile{
		Wallet:      wallet,
		Preferences: []Preference{{Target: fallbackProject, Factor: maxFactor}},
	}
}

// ValidateFactors checks that every factor lies within [0, maxFactor].
func (p Profile) ValidateFactors(maxFactor uint32) error {
	for _, pref := range p.Preferences {
		if pref.Factor > maxFactor {
			return fmt.Errorf("%w: factor %d for %s exceeds %d", ErrSchema, pref.Factor, pref.Target, maxFactor)
		}
	}
	return nil
}

// BalanceEntry is one row of an oracle balance snapshot.
// RawAmount is an arbitrary precision integer string in the ticker's base units.
type BalanceEntry struct {
	Wallet    WalletAddress `json:"ar_address"`
	EOA       string        `json:"eoa"`
	RawAmount string        `json:"amount"`
}

// OracleSnapshot is the content of one balances-set message.
type OracleSnapshot struct {
	Ticker  string
	TxID    string
	Entries []BalanceEntry
}

// DelegationMapping is one historical mapping row expanded from a snapshot message.
type DelegationMapping struct {
	TxID       string
	Height     uint32
	WalletFrom string
	WalletTo   string
	Factor     uint32
}

// MappingKey is the natural identity of a DelegationMapping row.
type MappingKey struct {
	Height     uint32
	TxID       string
	WalletFrom string
	WalletTo   string
}

// Key returns the natural key of the row.
func (m DelegationMapping) Key() MappingKey {
	return MappingKey{Height: m.Height, TxID: m.TxID, WalletFrom: m.WalletFrom, WalletTo: m.WalletTo}
}

// IndexCursor is the persisted forward-progress marker of the backfill.
// An empty After means the traversal starts from the most recent message.
type IndexCursor struct {
	After               string
	LastProcessedHeight uint32
}

// HasAfter reports whether the cursor carries a continuation token.
func (c IndexCursor) HasAfter() bool { return c.After != "" }

// Position is a stored per-wallet allocation produced by a distribution cycle.
type Position struct {
	Timestamp time.Time
	Ticker    string
	Wallet    WalletAddress
	EOA       string
	Project   string
	Factor    uint32
	Amount    decimal.Decimal
}

// ProjectDistribution aggregates positions of one project for one ticker.
// It is computed on read and never stored.
type ProjectDistribution struct {
	Project     string
	Ticker      string
	TotalAmount decimal.Decimal
	Delegators  int
}

// IdentityLink ties a wallet to an externally owned account at a point in time.
type IdentityLink struct {
	Wallet    WalletAddress
	EOA       string
	Timestamp time.Time
}
