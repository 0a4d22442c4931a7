// Package dbrow maps indexer domain values to database rows.
package dbrow

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/screwyprof/atlas/flp"
)

// Column lists in CopyFrom order
var (
	BalanceColumns    = []string{"ts", "ticker", "tx_id", "wallet", "eoa", "amount"}
	DelegationColumns = []string{"ts", "ticker", "tx_id", "wallet", "wallet_to", "factor", "last_update"}
	PositionColumns   = []string{"ts", "ticker", "tx_id", "wallet", "eoa", "project", "factor", "amount"}
)

// Position represents a flp_positions record
type Position struct {
	Timestamp time.Time `db:"ts"`
	Ticker    string    `db:"ticker"`
	TxID      string    `db:"tx_id"`
	Wallet    string    `db:"wallet"`
	EOA       string    `db:"eoa"`
	Project   string    `db:"project"`
	Factor    int64     `db:"factor"`
	Amount    string    `db:"amount"`
}

// ToDomain converts the row into a position. Amounts were written by
// decimal.String, so a parse failure means the table was edited by hand.
func (p Position) ToDomain() (flp.Position, error) {
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return flp.Position{}, err
	}
	return flp.Position{
		Timestamp: p.Timestamp,
		Ticker:    p.Ticker,
		Wallet:    flp.WalletAddress(p.Wallet),
		EOA:       p.EOA,
		Project:   p.Project,
		Factor:    uint32(p.Factor),
		Amount:    amount,
	}, nil
}

// BalancesToRows flattens a snapshot, keeping the last entry per wallet and EOA
func BalancesToRows(ts time.Time, snap flp.OracleSnapshot) [][]any {
	type key struct{ wallet, eoa string }
	index := make(map[key]int, len(snap.Entries))
	rows := make([][]any, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		row := []any{ts, snap.Ticker, snap.TxID, string(e.Wallet), e.EOA, e.RawAmount}
		k := key{string(e.Wallet), e.EOA}
		if i, ok := index[k]; ok {
			rows[i] = row
			continue
		}
		index[k] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

// DelegationsToRows expands profiles into one row per preference
func DelegationsToRows(ts time.Time, ticker, txID string, profiles []flp.Profile) [][]any {
	type key struct{ wallet, to string }
	index := make(map[key]int)
	var rows [][]any
	for _, p := range profiles {
		var lastUpdate *time.Time
		if !p.LastUpdate.IsZero() {
			lu := p.LastUpdate
			lastUpdate = &lu
		}
		for _, pref := range p.Preferences {
			row := []any{ts, ticker, txID, string(p.Wallet), pref.Target, int64(pref.Factor), lastUpdate}
			k := key{string(p.Wallet), pref.Target}
			if i, ok := index[k]; ok {
				rows[i] = row
				continue
			}
			index[k] = len(rows)
			rows = append(rows, row)
		}
	}
	return rows
}

// PositionsToRows converts positions, summing duplicates of the same key
func PositionsToRows(txID string, positions []flp.Position) [][]any {
	type key struct{ ticker, wallet, eoa, project string }
	index := make(map[key]int, len(positions))
	merged := make([]flp.Position, 0, len(positions))
	for _, p := range positions {
		k := key{p.Ticker, string(p.Wallet), p.EOA, p.Project}
		if i, ok := index[k]; ok {
			merged[i].Amount = merged[i].Amount.Add(p.Amount)
			continue
		}
		index[k] = len(merged)
		merged = append(merged, p)
	}

	rows := make([][]any, len(merged))
	for i, p := range merged {
		rows[i] = []any{p.Timestamp, p.Ticker, txID, string(p.Wallet), p.EOA, p.Project, int64(p.Factor), p.Amount.String()}
	}
	return rows
}
