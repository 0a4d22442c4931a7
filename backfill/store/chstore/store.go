// Package chstore mirrors delegation mappings into ClickHouse.
// Rows land in a ReplacingMergeTree keyed by (height, tx_id, wallet_from, wallet_to),
// so re-ingesting a snapshot collapses onto the existing rows.
package chstore

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jonboulle/clockwork"

	"github.com/screwyprof/atlas/backfill/store/dbrow"
	"github.com/screwyprof/atlas/flp"
)

// Sentinel errors for store operations
var (
	ErrConnectionFailed = errors.New("clickhouse connection failed")
	ErrSchemaFailed     = errors.New("clickhouse schema setup failed")
	ErrCursorFailed     = errors.New("cursor operation failed")
	ErrLookupFailed     = errors.New("mapping lookup failed")
	ErrBatchFailed      = errors.New("batch insert failed")
)

const createMappingsSQL = `
	CREATE TABLE IF NOT EXISTS delegation_mappings (
		height UInt32,
		tx_id String,
		wallet_from String,
		wallet_to String,
		factor UInt32,
		ts DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(ts)
	ORDER BY (height, tx_id, wallet_from, wallet_to)`

const createCursorSQL = `
	CREATE TABLE IF NOT EXISTS backfill_cursor (
		id UInt8,
		after_cursor String,
		last_processed_height UInt32,
		updated_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY id`

// Config describes how to reach ClickHouse
type Config struct {
	Addr        string
	Database    string
	Username    string
	Password    string
	Secure      bool
	DialTimeout time.Duration
}

// Options builds native protocol options. A URL scheme on Addr is ignored.
func (c Config) Options() *clickhouse.Options {
	addr := strings.TrimPrefix(c.Addr, "https://")
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "clickhouse://")

	opts := &clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: c.Database,
			Username: c.Username,
			Password: c.Password,
		},
		DialTimeout: c.DialTimeout,
	}
	if c.Secure {
		opts.TLS = &tls.Config{}
	}
	return opts
}

// Store implements backfill.Store on ClickHouse
type Store struct {
	conn  driver.Conn
	clock clockwork.Clock
}

// Open connects, pings and returns the store with a closer
func Open(ctx context.Context, cfg Config, clock clockwork.Clock) (*Store, func(), error) {
	conn, err := clickhouse.Open(cfg.Options())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	store := New(conn, clock)
	closer := func() {
		_ = conn.Close()
	}
	return store, closer, nil
}

// New wraps an existing connection
func New(conn driver.Conn, clock clockwork.Clock) *Store {
	return &Store{conn: conn, clock: clock}
}

// Ensure creates the tables when missing
func (s *Store) Ensure(ctx context.Context) error {
	for _, stmt := range []string{createMappingsSQL, createCursorSQL} {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", ErrSchemaFailed, err)
		}
	}
	return nil
}

// Cursor returns the latest persisted cursor
func (s *Store) Cursor(ctx context.Context) (flp.IndexCursor, error) {
	var c flp.IndexCursor
	err := s.conn.QueryRow(ctx, `
		SELECT after_cursor, last_processed_height
		FROM backfill_cursor FINAL
		WHERE id = 1`).Scan(&c.After, &c.LastProcessedHeight)
	if errors.Is(err, sql.ErrNoRows) {
		return flp.IndexCursor{}, nil
	}
	if err != nil {
		return flp.IndexCursor{}, fmt.Errorf("%w: %w", ErrCursorFailed, err)
	}
	return c, nil
}

// SaveCursor appends a newer cursor version
func (s *Store) SaveCursor(ctx context.Context, c flp.IndexCursor) error {
	err := s.conn.Exec(ctx,
		"INSERT INTO backfill_cursor (id, after_cursor, last_processed_height, updated_at) VALUES (1, ?, ?, ?)",
		c.After, c.LastProcessedHeight, s.clock.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCursorFailed, err)
	}
	return nil
}

// HasMappings reports whether any row of the snapshot is stored
func (s *Store) HasMappings(ctx context.Context, txID string) (bool, error) {
	var n uint64
	if err := s.conn.QueryRow(ctx, "SELECT count() FROM delegation_mappings WHERE tx_id = ?", txID).Scan(&n); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	return n > 0, nil
}

// UpsertMappings inserts rows in one batch; the engine keeps the newest version per key
func (s *Store) UpsertMappings(ctx context.Context, mappings []flp.DelegationMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx,
		"INSERT INTO delegation_mappings ("+strings.Join(dbrow.MappingColumns, ", ")+")")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}

	ts := s.clock.Now().UTC()
	for _, m := range mappings {
		if err := batch.Append(m.Height, m.TxID, m.WalletFrom, m.WalletTo, m.Factor, ts); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("%w: %w", ErrBatchFailed, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}
	return nil
}
