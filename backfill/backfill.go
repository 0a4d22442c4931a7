// Package backfill walks historical delegation-mapping snapshots page by page and
// mirrors their rows into a store. Runs are resumable from a persisted cursor.
package backfill

import (
	"context"
	"errors"
	"time"

	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/pkg/arweave"
)

// Sentinel errors for failure cases
var (
	ErrCursorRetrieval = errors.New("cursor retrieval failed")
	ErrCursorSave      = errors.New("cursor save failed")
	// ErrPageFetchFailed aborts a run; the persisted cursor is left untouched.
	ErrPageFetchFailed = errors.New("page fetch failed")
	ErrDownloadFailed  = errors.New("snapshot download failed")
	ErrUpsertFailed    = errors.New("mapping upsert failed")
)

// Default configuration values
const (
	DefaultPageSize       = 100
	DefaultStartHeight    = uint32(1_608_145)
	DefaultTargetHeight   = uint32(1_807_500)
	DefaultPacingInterval = 300 * time.Second
)

// Ledger tags identifying mapping snapshots
const (
	TagAction                = "Action"
	ActionDelegationMappings = "Delegation-Mappings"
)

// Gateway fetches snapshot pages and payloads from the ledger
// -----------------------------------------------------------
type Gateway interface {
	FindTransactions(ctx context.Context, q arweave.Query) (*arweave.Page, error)
	DownloadPayload(ctx context.Context, txID string) ([]byte, error)
}

// Store provides persistence for mapping rows and the traversal cursor
type Store interface {
	// Cursor returns the persisted cursor, or the zero cursor when none exists
	Cursor(ctx context.Context) (flp.IndexCursor, error)
	// SaveCursor replaces the persisted cursor
	SaveCursor(ctx context.Context, c flp.IndexCursor) error
	// HasMappings reports whether rows of the snapshot are already stored
	HasMappings(ctx context.Context, txID string) (bool, error)
	// UpsertMappings writes rows; rows with an existing key are replaced
	UpsertMappings(ctx context.Context, rows []flp.DelegationMapping) error
}

// Pacer spaces out upstream requests
type Pacer interface {
	Pace(ctx context.Context) error
}

// State is a phase of a run
// -------------------------
type State int

const (
	StateIdle State = iota
	StateFetching
	StateProcessing
	StatePacing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateProcessing:
		return "processing"
	case StatePacing:
		return "pacing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// StopReason tells why a run reached StateDone
type StopReason string

const (
	StopEmptyPage     StopReason = "empty_page"
	StopNoNextPage    StopReason = "no_next_page"
	StopMissingCursor StopReason = "missing_cursor"
	StopCanceled      StopReason = "canceled"
	StopFailed        StopReason = "failed"
)

// SkipReason tells why an element was not ingested
type SkipReason string

const (
	SkipOutOfRange     SkipReason = "out_of_range"
	SkipAlreadyIndexed SkipReason = "already_indexed"
)

// Counts summarises a run
type Counts struct {
	Pages      int
	Indexed    int
	OutOfRange int
	Duplicates int
	Failed     int
	Rows       int
}

// Event represents a service lifecycle event
// ------------------------------------------
type Event any

type BackfillStarted struct {
	StartedAt time.Time
	Cursor    flp.IndexCursor
	Window    [2]uint32
}

type PageFetched struct {
	After       string
	Count       int
	HasNextPage bool
}

type ElementSkipped struct {
	TxID   string
	Height uint32
	Reason SkipReason
}

type ElementIndexed struct {
	TxID   string
	Height uint32
	Rows   int
}

type ElementFailed struct {
	TxID   string
	Height uint32
	Err    error
}

type PageCompleted struct {
	Cursor    flp.IndexCursor
	Processed int
}

type BackfillDone struct {
	Reason   StopReason
	Counts   Counts
	Cursor   flp.IndexCursor
	Duration time.Duration
}

type BackfillError struct {
	Err error
}
