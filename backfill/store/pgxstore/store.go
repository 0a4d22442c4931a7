package pgxstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/screwyprof/atlas/backfill/store/dbrow"
	"github.com/screwyprof/atlas/flp"
)

// Sentinel errors for store operations
var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrTempTableFailed   = errors.New("temporary table operation failed")
	ErrCopyFailed        = errors.New("bulk copy operation failed")
	ErrUpsertFailed      = errors.New("upsert operation failed")
	ErrCursorFailed      = errors.New("cursor operation failed")
	ErrLookupFailed      = errors.New("mapping lookup failed")
)

// Store implements backfill.Store using pgx
type Store struct {
	pool  *pgxpool.Pool
	clock clockwork.Clock
}

// New creates a new PostgreSQL store with an existing connection pool
// Returns the store and a closer function
func New(pool *pgxpool.Pool, clock clockwork.Clock) (*Store, func()) {
	store := &Store{pool: pool, clock: clock}
	closer := func() {
		pool.Close()
	}
	return store, closer
}

// Cursor returns the persisted traversal cursor
func (s *Store) Cursor(ctx context.Context) (flp.IndexCursor, error) {
	var (
		after  string
		height int64
	)
	err := s.pool.QueryRow(ctx, "SELECT after_cursor, last_processed_height FROM backfill_cursor").Scan(&after, &height)
	if errors.Is(err, pgx.ErrNoRows) {
		return flp.IndexCursor{}, nil
	}
	if err != nil {
		return flp.IndexCursor{}, fmt.Errorf("%w: %w", ErrCursorFailed, err)
	}
	return flp.IndexCursor{After: after, LastProcessedHeight: uint32(height)}, nil
}

// SaveCursor replaces the traversal cursor (singleton table with proper upsert)
func (s *Store) SaveCursor(ctx context.Context, c flp.IndexCursor) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO backfill_cursor (single_row, after_cursor, last_processed_height, updated_at)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (single_row) DO UPDATE
		SET after_cursor = EXCLUDED.after_cursor,
		    last_processed_height = EXCLUDED.last_processed_height,
		    updated_at = EXCLUDED.updated_at
	`, c.After, int64(c.LastProcessedHeight), s.clock.Now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCursorFailed, err)
	}
	return nil
}

// HasMappings reports whether any row of the snapshot is stored
func (s *Store) HasMappings(ctx context.Context, txID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM delegation_mappings WHERE tx_id = $1)", txID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	return exists, nil
}

// UpsertMappings writes the rows of one snapshot in a single transaction.
// Rows are bulk copied into a temporary table and merged; an existing key is overwritten.
func (s *Store) UpsertMappings(ctx context.Context, mappings []flp.DelegationMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	rows := dbrow.MappingsToRows(dedupe(mappings), s.clock.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // No-op if commit succeeds

	_, err = tx.Exec(ctx, `
		CREATE TEMPORARY TABLE temp_delegation_mappings (
			height INTEGER,
			tx_id TEXT,
			wallet_from TEXT,
			wallet_to TEXT,
			factor BIGINT,
			ts TIMESTAMP WITH TIME ZONE
		) ON COMMIT DROP
	`)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTempTableFailed, err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"temp_delegation_mappings"},
		dbrow.MappingColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCopyFailed, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO delegation_mappings (height, tx_id, wallet_from, wallet_to, factor, ts)
		SELECT height, tx_id, wallet_from, wallet_to, factor, ts
		FROM temp_delegation_mappings
		ON CONFLICT (height, tx_id, wallet_from, wallet_to)
		DO UPDATE SET factor = EXCLUDED.factor, ts = EXCLUDED.ts
	`)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpsertFailed, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	return nil
}

// dedupe keeps the last row per key; ON CONFLICT cannot touch a row twice in one statement.
func dedupe(mappings []flp.DelegationMapping) []flp.DelegationMapping {
	index := make(map[flp.MappingKey]int, len(mappings))
	out := make([]flp.DelegationMapping, 0, len(mappings))
	for _, m := range mappings {
		if i, ok := index[m.Key()]; ok {
			out[i] = m
			continue
		}
		index[m.Key()] = len(out)
		out = append(out, m)
	}
	return out
}
