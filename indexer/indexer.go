// Package indexer periodically turns the latest oracle snapshots into stored
// per-project positions.
package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/screwyprof/atlas/delegation"
	"github.com/screwyprof/atlas/flp"
)

// Sentinel errors for failure cases
var (
	ErrSnapshotLookup  = errors.New("snapshot lookup failed")
	ErrResolution      = errors.New("wallet resolution failed")
	ErrPersist         = errors.New("persisting cycle failed")
	ErrMarkerLookup    = errors.New("snapshot marker lookup failed")
	ErrNoTickers       = errors.New("no tickers configured")
	ErrZeroConcurrency = errors.New("concurrency must be positive")
)

// Default configuration values
const (
	DefaultInterval    = 300 * time.Second
	DefaultConcurrency = 16
)

// Resolver resolves the active delegation profile of a wallet
// ------------------------------------------------------------
type Resolver interface {
	Resolve(ctx context.Context, wallet flp.WalletAddress) (delegation.Resolution, error)
}

// Oracle locates and downloads balance snapshots
type Oracle interface {
	LatestTxID(ctx context.Context, ticker string) (string, error)
	SnapshotAt(ctx context.Context, ticker, txID string) (flp.OracleSnapshot, error)
}

// Store persists the outcome of a cycle. Writes are upserts, so a cycle that
// fails half way can be replayed.
type Store interface {
	// HasSnapshot reports whether the snapshot marker was written
	HasSnapshot(ctx context.Context, ticker, txID string) (bool, error)
	SaveBalances(ctx context.Context, ts time.Time, snap flp.OracleSnapshot) error
	SaveDelegations(ctx context.Context, ts time.Time, ticker, txID string, profiles []flp.Profile) error
	SavePositions(ctx context.Context, txID string, positions []flp.Position) error
	// MarkSnapshot is written last and makes the snapshot count as indexed
	MarkSnapshot(ctx context.Context, ts time.Time, ticker, txID string, entries int) error
}

// SkipReason tells why a ticker was not indexed this cycle
type SkipReason string

const (
	SkipNoSnapshot     SkipReason = "no_snapshot"
	SkipAlreadyIndexed SkipReason = "already_indexed"
)

// Resolutions counts per-wallet outcomes of one ticker
type Resolutions struct {
	Found        int
	Defaulted    int
	Inconsistent int
	Invalid      int
}

// Skipped is the number of wallets left out of the distribution
func (r Resolutions) Skipped() int {
	return r.Inconsistent + r.Invalid
}

// Event represents a service lifecycle event
// ------------------------------------------
type Event any

type IndexerStarted struct {
	Interval time.Duration
	Tickers  []string
}

type CycleStarted struct {
	Cycle     int
	StartedAt time.Time
}

type TickerIndexed struct {
	Ticker      string
	TxID        string
	Entries     int
	Positions   int
	Resolutions Resolutions
	Duration    time.Duration
}

type TickerSkipped struct {
	Ticker string
	TxID   string
	Reason SkipReason
}

type TickerFailed struct {
	Ticker string
	Err    error
}

type WalletSkipped struct {
	Ticker string
	Wallet flp.WalletAddress
	Err    error
}

type CycleCompleted struct {
	Cycle    int
	Indexed  int
	Skipped  int
	Failed   int
	Duration time.Duration
}

type IndexerShutdown struct {
	Reason error // Why shutdown occurred (ctx.Err())
}
