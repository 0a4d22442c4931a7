package dbrow

import (
	"time"

	"github.com/screwyprof/atlas/flp"
)

// Mapping represents a delegation mapping record as stored in the database
type Mapping struct {
	Height     int64     `db:"height"`
	TxID       string    `db:"tx_id"`
	WalletFrom string    `db:"wallet_from"`
	WalletTo   string    `db:"wallet_to"`
	Factor     int64     `db:"factor"`
	Timestamp  time.Time `db:"ts"`
}

// MappingColumns lists the columns written by MappingsToRows, in order
var MappingColumns = []string{"height", "tx_id", "wallet_from", "wallet_to", "factor", "ts"}

// MappingsToRows converts mappings directly to [][]any for bulk writers.
// Every row of one call shares the ingestion timestamp ts.
func MappingsToRows(mappings []flp.DelegationMapping, ts time.Time) [][]any {
	rows := make([][]any, len(mappings))

	for i, m := range mappings {
		rows[i] = []any{
			int64(m.Height),
			m.TxID,
			m.WalletFrom,
			m.WalletTo,
			int64(m.Factor),
			ts,
		}
	}

	return rows
}

// ToDomain converts a stored row back into the domain model
func (m Mapping) ToDomain() flp.DelegationMapping {
	return flp.DelegationMapping{
		TxID:       m.TxID,
		Height:     uint32(m.Height),
		WalletFrom: m.WalletFrom,
		WalletTo:   m.WalletTo,
		Factor:     uint32(m.Factor),
	}
}
