// Package oracle locates and decodes balance snapshots published by oracle processes.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/pkg/arweave"
)

// Sentinel errors for failure cases
var (
	ErrSnapshotLookup   = errors.New("snapshot lookup failed")
	ErrSnapshotDownload = errors.New("snapshot download failed")
)

// Ledger tags identifying balance snapshots
const (
	TagAction      = "Action"
	TagFromProcess = "From-Process"

	ActionSetBalances = "Set-Balances"
)

// Gateway queries ledger messages and downloads their payloads
type Gateway interface {
	FindTransactions(ctx context.Context, q arweave.Query) (*arweave.Page, error)
	DownloadPayload(ctx context.Context, txID string) ([]byte, error)
}

// Option configures the Fetcher
type Option func(*Fetcher)

// WithAuthority sets the trusted publisher address
func WithAuthority(address string) Option {
	return func(f *Fetcher) { f.authority = address }
}

// Fetcher finds the latest snapshot of a ticker and decodes it
type Fetcher struct {
	gateway   Gateway
	tickers   flp.Tickers
	authority string
}

// NewFetcher constructs a Fetcher over the given ticker registry
func NewFetcher(gateway Gateway, tickers flp.Tickers, opts ...Option) *Fetcher {
	f := &Fetcher{
		gateway:   gateway,
		tickers:   tickers,
		authority: flp.DefaultAuthority,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Tickers returns the registry the fetcher was built with
func (f *Fetcher) Tickers() flp.Tickers {
	return f.tickers
}

// LatestTxID returns the id of the most recent balances message for ticker.
// Unknown tickers fail with flp.ErrValidation; tickers without any snapshot with flp.ErrNotFound.
func (f *Fetcher) LatestTxID(ctx context.Context, ticker string) (string, error) {
	t, err := f.tickers.Lookup(ticker)
	if err != nil {
		return "", err
	}

	page, err := f.gateway.FindTransactions(ctx, arweave.Latest(f.authority,
		arweave.Tag{Name: TagAction, Value: ActionSetBalances},
		arweave.Tag{Name: TagFromProcess, Value: t.ProcessID},
	))
	if err != nil {
		return "", fmt.Errorf("%w: %w: %w", flp.ErrTransport, ErrSnapshotLookup, err)
	}

	tx, ok := page.First()
	if !ok {
		return "", fmt.Errorf("%w: no %s snapshot from %s", flp.ErrNotFound, t.Symbol, t.ProcessID)
	}
	return tx.ID, nil
}

// Snapshot downloads the latest snapshot of ticker
func (f *Fetcher) Snapshot(ctx context.Context, ticker string) (flp.OracleSnapshot, error) {
	txID, err := f.LatestTxID(ctx, ticker)
	if err != nil {
		return flp.OracleSnapshot{}, err
	}
	return f.SnapshotAt(ctx, ticker, txID)
}

// SnapshotAt downloads a specific snapshot message
func (f *Fetcher) SnapshotAt(ctx context.Context, ticker, txID string) (flp.OracleSnapshot, error) {
	t, err := f.tickers.Lookup(ticker)
	if err != nil {
		return flp.OracleSnapshot{}, err
	}

	data, err := f.gateway.DownloadPayload(ctx, txID)
	if err != nil {
		return flp.OracleSnapshot{}, fmt.Errorf("%w: %w: %w", flp.ErrTransport, ErrSnapshotDownload, err)
	}

	entries, err := DecodeBalances(data)
	if err != nil {
		return flp.OracleSnapshot{}, fmt.Errorf("snapshot %s: %w", txID, err)
	}

	return flp.OracleSnapshot{Ticker: t.Symbol, TxID: txID, Entries: entries}, nil
}
