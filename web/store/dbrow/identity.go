// Package dbrow maps read-side rows of the serving façade.
package dbrow

import (
	"time"

	"github.com/screwyprof/atlas/flp"
)

// IdentityLink represents a wallet_balances row reduced to its identity columns
type IdentityLink struct {
	Wallet    string    `db:"wallet"`
	EOA       string    `db:"eoa"`
	Timestamp time.Time `db:"ts"`
}

// ToDomain converts the row into the domain model
func (l IdentityLink) ToDomain() flp.IdentityLink {
	return flp.IdentityLink{
		Wallet:    flp.WalletAddress(l.Wallet),
		EOA:       l.EOA,
		Timestamp: l.Timestamp,
	}
}
