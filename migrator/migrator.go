package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/peterldowns/pgtestdb"
	"github.com/peterldowns/pgtestdb/migrators/sqlmigrator"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/screwyprof/atlas/backfill"
	backfillstore "github.com/screwyprof/atlas/backfill/store/pgxstore"
	"github.com/screwyprof/atlas/delegation"
	"github.com/screwyprof/atlas/distribution"
	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/indexer"
	indexerstore "github.com/screwyprof/atlas/indexer/store/pgxstore"
	"github.com/screwyprof/atlas/oracle"
	"github.com/screwyprof/atlas/pkg/clock"
	"github.com/screwyprof/atlas/pkg/pgxdb"
)

// Migration constants
const (
	migrationsTableName = "schema_migrations"
	schemaHashPrefix    = "schema_only_"
	seededHashPrefix    = "seeded_demo_v1_"
)

// SQL queries
const (
	initCursorSQL = `
		INSERT INTO backfill_cursor (single_row, after_cursor, last_processed_height, updated_at)
		VALUES (TRUE, $1, $2, NOW())
		ON CONFLICT (single_row) DO NOTHING`

	setCursorSQL = `
		INSERT INTO backfill_cursor (single_row, after_cursor, last_processed_height, updated_at)
		VALUES (TRUE, $1, $2, NOW())
		ON CONFLICT (single_row) DO UPDATE
		SET after_cursor = EXCLUDED.after_cursor,
		    last_processed_height = EXCLUDED.last_processed_height,
		    updated_at = EXCLUDED.updated_at`
)

// Migration-related errors
var (
	ErrMigrationExecution = errors.New("migration execution failed")
	ErrCursorOperation    = errors.New("cursor operation failed")
	ErrSeedFailed         = errors.New("demo seeding failed")
)

// SchemaMigrator applies only database schema migrations
// Used for production and tests that need schema-only setup
type SchemaMigrator struct {
	migrationsDir string
}

// NewSchemaMigrator creates a migrator that applies schema migrations only
func NewSchemaMigrator(migrationsDir string) *SchemaMigrator {
	return &SchemaMigrator{
		migrationsDir: migrationsDir,
	}
}

func (m *SchemaMigrator) Hash() (string, error) {
	baseHash, err := migrationsHash(m.migrationsDir)
	if err != nil {
		return "", err
	}
	return schemaHashPrefix + baseHash, nil
}

func (m *SchemaMigrator) Migrate(ctx context.Context, db *sql.DB, conf pgtestdb.Config) error {
	return applyMigrations(db, m.migrationsDir)
}

// SeededMigrator applies schema migrations and seeds the demo ledger by running
// the backfill and one indexer cycle against it.
// Used for web API tests that need realistic data to test against
type SeededMigrator struct {
	migrationsDir string
	seedTimeout   time.Duration
}

// NewSeededMigrator creates a migrator that applies schema + seeds demo data
func NewSeededMigrator(migrationsDir string, seedTimeout time.Duration) *SeededMigrator {
	return &SeededMigrator{
		migrationsDir: migrationsDir,
		seedTimeout:   seedTimeout,
	}
}

func (m *SeededMigrator) Hash() (string, error) {
	baseHash, err := migrationsHash(m.migrationsDir)
	if err != nil {
		return "", err
	}
	return seededHashPrefix + baseHash, nil
}

func (m *SeededMigrator) Migrate(ctx context.Context, db *sql.DB, conf pgtestdb.Config) error {
	if err := applyMigrations(db, m.migrationsDir); err != nil {
		return err
	}
	return m.seedDemoData(ctx, conf.URL())
}

// seedDemoData fills the template database from the in-memory demo ledger
func (m *SeededMigrator) seedDemoData(ctx context.Context, dbURL string) error {
	slog.InfoContext(ctx, "🌱 Seeding demo database", "timeout", m.seedTimeout)

	seedCtx, cancel := context.WithTimeout(ctx, m.seedTimeout)
	defer cancel()

	pool, err := pgxdb.NewConnection(seedCtx, dbURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	ledger := DemoLedger()

	if err := seedMappings(seedCtx, pool, ledger); err != nil {
		return err
	}
	if err := seedPositions(seedCtx, pool, ledger); err != nil {
		return err
	}

	slog.InfoContext(ctx, "✅ Demo database seeding completed successfully")
	return nil
}

func seedMappings(ctx context.Context, pool *pgxpool.Pool, gateway backfill.Gateway) error {
	store, _ := backfillstore.New(pool, clock.Real())
	svc := backfill.NewService(gateway, store, backfill.WithPacer(clock.NoPacing{}))

	events, done := svc.Start(ctx)

	var runErr error
	closer := backfill.NewSubscriber(events,
		backfill.OnBackfillError(func(e backfill.BackfillError) { runErr = e.Err }),
		backfill.OnBackfillDone(func(e backfill.BackfillDone) {
			if e.Reason == backfill.StopCanceled {
				runErr = ctx.Err()
			}
		}),
	)
	<-done
	closer()

	if runErr != nil {
		return fmt.Errorf("%w: %w", ErrSeedFailed, runErr)
	}
	return nil
}

func seedPositions(ctx context.Context, pool *pgxpool.Pool, gateway delegation.Gateway) error {
	calc, err := distribution.NewCalculator(flp.DefaultMaxFactor)
	if err != nil {
		return err
	}

	tickers := DemoTickers()
	resolver := delegation.NewResolver(gateway, DemoDelegationPID)
	fetcher := oracle.NewFetcher(gateway, tickers)
	store, _ := indexerstore.New(pool)

	list := make([]flp.Ticker, 0, len(tickers))
	for _, symbol := range tickers.Symbols() {
		list = append(list, tickers[symbol])
	}

	svc, err := indexer.NewService(resolver, fetcher, store, calc, list)
	if err != nil {
		return err
	}

	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, done := svc.Start(cycleCtx)

	var failures []error
	closer := indexer.NewSubscriber(events,
		indexer.OnTickerFailed(func(e indexer.TickerFailed) { failures = append(failures, e.Err) }),
		indexer.OnCycleCompleted(func(indexer.CycleCompleted) { cancel() }),
	)
	<-done
	closer()

	if err := errors.Join(failures...); err != nil {
		return fmt.Errorf("%w: %w", ErrSeedFailed, err)
	}
	return ctx.Err()
}

// ApplyMigrations applies database migrations using sql-migrate with the provided pgx pool
func ApplyMigrations(pool *pgxpool.Pool, migrationsDir string) error {
	// Create sql.DB from the pgx pool for sql-migrate
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return applyMigrations(db, migrationsDir)
}

// InitializeCursor stores the initial backfill cursor if none is set
func InitializeCursor(ctx context.Context, pool *pgxpool.Pool, cursor flp.IndexCursor) error {
	_, err := pool.Exec(ctx, initCursorSQL, cursor.After, int64(cursor.LastProcessedHeight))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCursorOperation, err)
	}
	return nil
}

// SetCursor sets the backfill cursor, overwriting any existing value
func SetCursor(ctx context.Context, pool *pgxpool.Pool, cursor flp.IndexCursor) error {
	_, err := pool.Exec(ctx, setCursorSQL, cursor.After, int64(cursor.LastProcessedHeight))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCursorOperation, err)
	}
	return nil
}

func migrationsHash(migrationsDir string) (string, error) {
	source := &migrate.FileMigrationSource{Dir: migrationsDir}
	migrationSet := &migrate.MigrationSet{TableName: migrationsTableName}

	hash, err := sqlmigrator.New(source, migrationSet).Hash()
	if err != nil {
		return "", fmt.Errorf("failed to calculate migration hash for %s: %w", migrationsDir, err)
	}
	return hash, nil
}

// applyMigrations applies database migrations using sql-migrate
func applyMigrations(db *sql.DB, migrationsDir string) error {
	source := &migrate.FileMigrationSource{Dir: migrationsDir}
	migrationSet := &migrate.MigrationSet{TableName: migrationsTableName}

	_, err := migrationSet.Exec(db, "postgres", source, migrate.Up)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationExecution, err)
	}
	return nil
}
