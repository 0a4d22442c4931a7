// Package config holds the ledger settings shared by every binary.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/screwyprof/atlas/delegation"
	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/oracle"
	"github.com/screwyprof/atlas/pkg/arweave"
)

var (
	ErrNoOracleTickers  = errors.New("no oracle tickers configured")
	ErrMissingOraclePID = errors.New("oracle process id is not configured")
)

// Ledger describes how to reach and interpret the external message log.
type Ledger struct {
	GatewayURL        string            `env:"ATLAS_GATEWAY_URL" envDefault:"https://arweave.net"`
	HTTPClientTimeout time.Duration     `env:"ATLAS_HTTP_CLIENT_TIMEOUT" envDefault:"30s"`
	Authority         string            `env:"ATLAS_AO_AUTHORITY" envDefault:"fcoN_xJeisVsPXA-trzVAuIiqO3ydLQxM-L4XbrQKzY"`
	DelegationPID     string            `env:"ATLAS_DELEGATION_PID,required"`
	FallbackProject   string            `env:"ATLAS_FALLBACK_PROJECT" envDefault:"4hXj_E-5fAKmo4E8KjgQvuDJKAFk9P2grhycVmISDLs"`
	OracleTickers     []string          `env:"ATLAS_ORACLE_TICKERS" envDefault:"usds,dai,steth"`
	OraclePIDs        map[string]string `env:"ATLAS_ORACLE_PIDS" envKeyValSeparator:"="`
	MaxFactor         uint32            `env:"ATLAS_MAX_FACTOR" envDefault:"1000000"`
}

// Load parses and validates the ledger settings alone, for tools without a binary config.
func Load() (Ledger, error) {
	l, err := env.ParseAs[Ledger]()
	if err != nil {
		return Ledger{}, err
	}
	return l, l.Validate()
}

// Validate checks that every selected ticker has an oracle process id.
// Only binaries that read oracle snapshots need to call it.
func (l Ledger) Validate() error {
	tickers := l.Tickers()
	if len(tickers) == 0 {
		return ErrNoOracleTickers
	}
	for _, symbol := range tickers.Symbols() {
		if tickers[symbol].ProcessID == "" {
			return fmt.Errorf("%w: add %s=<pid> to ATLAS_ORACLE_PIDS", ErrMissingOraclePID, symbol)
		}
	}
	return nil
}

// Tickers builds the oracle registry of the selected tickers. Process ids are
// matched case-insensitively; a ticker without one is registered but unusable.
func (l Ledger) Tickers() flp.Tickers {
	pids := make(map[string]string, len(l.OraclePIDs))
	for symbol, pid := range l.OraclePIDs {
		pids[strings.ToLower(strings.TrimSpace(symbol))] = pid
	}

	selected := make(map[string]string, len(l.OracleTickers))
	for _, symbol := range l.OracleTickers {
		key := strings.ToLower(strings.TrimSpace(symbol))
		selected[key] = pids[key]
	}
	return flp.NewTickers(selected)
}

// Client returns a gateway client bounded by the configured timeout.
func (l Ledger) Client() *arweave.Client {
	return arweave.NewClient(&http.Client{Timeout: l.HTTPClientTimeout}, l.GatewayURL)
}

// Resolver builds a profile resolver with the configured trust settings.
func (l Ledger) Resolver(gateway delegation.Gateway) *delegation.Resolver {
	return delegation.NewResolver(gateway, l.DelegationPID,
		delegation.WithAuthority(l.Authority),
		delegation.WithFallbackProject(l.FallbackProject),
		delegation.WithMaxFactor(l.MaxFactor),
	)
}

// Fetcher builds an oracle fetcher over the configured tickers.
func (l Ledger) Fetcher(gateway oracle.Gateway) *oracle.Fetcher {
	return oracle.NewFetcher(gateway, l.Tickers(), oracle.WithAuthority(l.Authority))
}
