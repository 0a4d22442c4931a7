package oracle

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/screwyprof/atlas/flp"
)

type balanceRow struct {
	EOA       string    `json:"eoa"`
	Amount    rawAmount `json:"amount"`
	ARAddress string    `json:"ar_address"`
}

// rawAmount accepts an unsigned integer either as a bare JSON number or a string.
type rawAmount string

func (a *rawAmount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if !isDigits(s) {
		return fmt.Errorf("amount %s is not an unsigned integer", b)
	}
	*a = rawAmount(s)
	return nil
}

// DecodeBalances decodes a balances payload. JSON arrays and CSV with the columns
// eoa,amount,ar_address (header optional) are accepted.
func DecodeBalances(data []byte) ([]flp.BalanceEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty balances payload", flp.ErrSchema)
	}
	if trimmed[0] == '[' {
		return decodeJSON(trimmed)
	}
	return decodeCSV(trimmed)
}

func decodeJSON(data []byte) ([]flp.BalanceEntry, error) {
	var rows []balanceRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", flp.ErrSchema, err)
	}

	entries := make([]flp.BalanceEntry, 0, len(rows))
	for i, row := range rows {
		if row.ARAddress == "" {
			return nil, fmt.Errorf("%w: row %d has no ar_address", flp.ErrSchema, i)
		}
		if row.Amount == "" {
			return nil, fmt.Errorf("%w: row %d has no amount", flp.ErrSchema, i)
		}
		entries = append(entries, flp.BalanceEntry{
			Wallet:    flp.WalletAddress(row.ARAddress),
			EOA:       row.EOA,
			RawAmount: string(row.Amount),
		})
	}
	return entries, nil
}

func decodeCSV(data []byte) ([]flp.BalanceEntry, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = 3
	r.TrimLeadingSpace = true

	var entries []flp.BalanceEntry
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", flp.ErrSchema, err)
		}
		if line == 1 && strings.EqualFold(rec[0], "eoa") {
			continue
		}

		amount := strings.TrimSpace(rec[1])
		if !isDigits(amount) {
			return nil, fmt.Errorf("%w: line %d amount %q is not an unsigned integer", flp.ErrSchema, line, amount)
		}
		entries = append(entries, flp.BalanceEntry{
			Wallet:    flp.WalletAddress(strings.TrimSpace(rec[2])),
			EOA:       strings.TrimSpace(rec[0]),
			RawAmount: amount,
		})
	}
	return entries, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
