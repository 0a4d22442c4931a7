package pgxstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/indexer/store/dbrow"
)

// Sentinel errors for store operations
var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrTempTableFailed   = errors.New("temporary table operation failed")
	ErrCopyFailed        = errors.New("bulk copy operation failed")
	ErrUpsertFailed      = errors.New("upsert operation failed")
	ErrMarkerFailed      = errors.New("snapshot marker operation failed")
)

// Store implements indexer.Store using pgx
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL store with an existing connection pool
// Returns the store and a closer function
func New(pool *pgxpool.Pool) (*Store, func()) {
	store := &Store{pool: pool}
	closer := func() {
		pool.Close()
	}
	return store, closer
}

// HasSnapshot reports whether the snapshot was fully indexed
func (s *Store) HasSnapshot(ctx context.Context, ticker, txID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM oracle_snapshots WHERE ticker = $1 AND tx_id = $2)",
		ticker, txID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrMarkerFailed, err)
	}
	return exists, nil
}

// SaveBalances upserts the raw balances of a snapshot
func (s *Store) SaveBalances(ctx context.Context, ts time.Time, snap flp.OracleSnapshot) error {
	return s.upsert(ctx, upsertSpec{
		table:    "wallet_balances",
		columns:  dbrow.BalanceColumns,
		conflict: "ticker, tx_id, wallet, eoa",
		update:   []string{"ts", "amount"},
		temp:     "ts TIMESTAMP WITH TIME ZONE, ticker TEXT, tx_id TEXT, wallet TEXT, eoa TEXT, amount TEXT",
	}, dbrow.BalancesToRows(ts, snap))
}

// SaveDelegations upserts one row per preference of the resolved profiles
func (s *Store) SaveDelegations(ctx context.Context, ts time.Time, ticker, txID string, profiles []flp.Profile) error {
	return s.upsert(ctx, upsertSpec{
		table:    "wallet_delegations",
		columns:  dbrow.DelegationColumns,
		conflict: "ticker, tx_id, wallet, wallet_to",
		update:   []string{"ts", "factor", "last_update"},
		temp:     "ts TIMESTAMP WITH TIME ZONE, ticker TEXT, tx_id TEXT, wallet TEXT, wallet_to TEXT, factor BIGINT, last_update TIMESTAMP WITH TIME ZONE",
	}, dbrow.DelegationsToRows(ts, ticker, txID, profiles))
}

// SavePositions upserts the computed positions of a snapshot
func (s *Store) SavePositions(ctx context.Context, txID string, positions []flp.Position) error {
	return s.upsert(ctx, upsertSpec{
		table:    "flp_positions",
		columns:  dbrow.PositionColumns,
		conflict: "ticker, tx_id, wallet, eoa, project",
		update:   []string{"ts", "factor", "amount"},
		temp:     "ts TIMESTAMP WITH TIME ZONE, ticker TEXT, tx_id TEXT, wallet TEXT, eoa TEXT, project TEXT, factor BIGINT, amount TEXT",
	}, dbrow.PositionsToRows(txID, positions))
}

// MarkSnapshot records the snapshot as indexed
func (s *Store) MarkSnapshot(ctx context.Context, ts time.Time, ticker, txID string, entries int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO oracle_snapshots (ticker, tx_id, ts, entries)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker, tx_id) DO UPDATE
		SET ts = EXCLUDED.ts, entries = EXCLUDED.entries
	`, ticker, txID, ts, entries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarkerFailed, err)
	}
	return nil
}

type upsertSpec struct {
	table    string
	columns  []string
	conflict string
	update   []string
	temp     string
}

// upsert bulk copies rows into a temporary table and merges them into the target in one transaction
func (s *Store) upsert(ctx context.Context, spec upsertSpec, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // No-op if commit succeeds

	tempTable := "temp_" + spec.table
	_, err = tx.Exec(ctx, fmt.Sprintf("CREATE TEMPORARY TABLE %s (%s) ON COMMIT DROP", tempTable, spec.temp))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTempTableFailed, err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{tempTable}, spec.columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCopyFailed, err)
	}

	sets := make([]string, len(spec.update))
	for i, col := range spec.update {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	cols := strings.Join(spec.columns, ", ")

	_, err = tx.Exec(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		spec.table, cols, cols, tempTable, spec.conflict, strings.Join(sets, ", "),
	))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpsertFailed, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	return nil
}
