package backfill

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/screwyprof/atlas/flp"
)

// Mapping is one decoded row of a mapping snapshot
type Mapping struct {
	WalletFrom string
	WalletTo   string
	Factor     uint32
}

type mappingRow struct {
	WalletFrom    string  `json:"walletFrom"`
	WalletTo      string  `json:"walletTo"`
	WalletFromOld string  `json:"wallet_from"`
	WalletToOld   string  `json:"wallet_to"`
	Factor        *uint64 `json:"factor"`
}

// DecodeMappings decodes a mapping snapshot: either a JSON array of
// {walletFrom, walletTo, factor} objects or CSV wallet_from,wallet_to,factor
// with an optional header. Factors above maxFactor are rejected.
func DecodeMappings(data []byte, maxFactor uint32) ([]Mapping, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty mapping payload", flp.ErrSchema)
	}

	var (
		out []Mapping
		err error
	)
	if trimmed[0] == '[' {
		out, err = decodeMappingsJSON(trimmed)
	} else {
		out, err = decodeMappingsCSV(trimmed)
	}
	if err != nil {
		return nil, err
	}

	for i, m := range out {
		if m.Factor > maxFactor {
			return nil, fmt.Errorf("%w: row %d factor %d exceeds %d", flp.ErrSchema, i, m.Factor, maxFactor)
		}
	}
	return out, nil
}

func decodeMappingsJSON(data []byte) ([]Mapping, error) {
	var rows []mappingRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", flp.ErrSchema, err)
	}

	out := make([]Mapping, 0, len(rows))
	for i, row := range rows {
		m := Mapping{WalletFrom: row.WalletFrom, WalletTo: row.WalletTo}
		if m.WalletFrom == "" {
			m.WalletFrom = row.WalletFromOld
		}
		if m.WalletTo == "" {
			m.WalletTo = row.WalletToOld
		}
		if m.WalletFrom == "" || m.WalletTo == "" || row.Factor == nil {
			return nil, fmt.Errorf("%w: row %d is incomplete", flp.ErrSchema, i)
		}
		if *row.Factor > uint64(^uint32(0)) {
			return nil, fmt.Errorf("%w: row %d factor %d out of range", flp.ErrSchema, i, *row.Factor)
		}
		m.Factor = uint32(*row.Factor)
		out = append(out, m)
	}
	return out, nil
}

func decodeMappingsCSV(data []byte) ([]Mapping, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = 3
	r.TrimLeadingSpace = true

	var out []Mapping
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", flp.ErrSchema, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "wallet_from") {
			continue
		}

		factor, err := strconv.ParseUint(strings.TrimSpace(rec[2]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d factor: %w", flp.ErrSchema, line, err)
		}
		from, to := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if from == "" || to == "" {
			return nil, fmt.Errorf("%w: line %d has an empty wallet", flp.ErrSchema, line)
		}
		out = append(out, Mapping{WalletFrom: from, WalletTo: to, Factor: uint32(factor)})
	}
	return out, nil
}
