package flp

import (
	"fmt"
	"sort"
	"strings"
)

// Ticker is a value source published by an oracle process.
type Ticker struct {
	Symbol    string
	ProcessID string
	// Decimals is the fixed-point scale of raw amounts: 18 for wei-style tokens, 0 for natural units.
	Decimals int32
}

// knownDecimals lists the scale of the supported value sources.
var knownDecimals = map[string]int32{
	"usds":  18,
	"dai":   18,
	"steth": 18,
}

// Tickers maps lowercase ticker symbols to their oracle.
type Tickers map[string]Ticker

// NewTickers builds a registry from ticker -> oracle process id pairs.
// Unknown symbols use a scale of 1.
func NewTickers(processIDs map[string]string) Tickers {
	t := make(Tickers, len(processIDs))
	for symbol, pid := range processIDs {
		key := strings.ToLower(strings.TrimSpace(symbol))
		if key == "" {
			continue
		}
		t[key] = Ticker{Symbol: key, ProcessID: strings.TrimSpace(pid), Decimals: knownDecimals[key]}
	}
	return t
}

// Lookup resolves a ticker symbol case-insensitively.
func (t Tickers) Lookup(symbol string) (Ticker, error) {
	ticker, ok := t[strings.ToLower(strings.TrimSpace(symbol))]
	if !ok || ticker.ProcessID == "" {
		return Ticker{}, fmt.Errorf("%w: unknown ticker %q", ErrValidation, symbol)
	}
	return ticker, nil
}

// Symbols returns the registered symbols in sorted order.
func (t Tickers) Symbols() []string {
	out := make([]string, 0, len(t))
	for s := range t {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
