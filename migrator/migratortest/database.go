package migratortest

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for pgtestdb
	"github.com/peterldowns/pgtestdb"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/migrator"
)

// CreateTestDatabase creates a test database with schema migrations applied.
// Returns the connection pool ready for use.
func CreateTestDatabase(t *testing.T, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	return createTestDatabaseWithMigrator(t, migrator.NewSchemaMigrator(migrationsDir))
}

// CreateBackfillTestDatabase creates a test database with migrations applied + backfill cursor initialized.
// This mirrors the production pattern: schema first, then cursor initialization.
func CreateBackfillTestDatabase(t *testing.T, migrationsDir string, cursor flp.IndexCursor) *pgxpool.Pool {
	t.Helper()

	pool := CreateTestDatabase(t, migrationsDir)

	err := migrator.InitializeCursor(t.Context(), pool, cursor)
	require.NoError(t, err)

	return pool
}

// CreateSeededTestDatabase creates a test database with migrations and the demo ledger seeded.
// Returns the connection pool ready for use.
func CreateSeededTestDatabase(t *testing.T, migrationsDir string, seedTimeout time.Duration) *pgxpool.Pool {
	t.Helper()

	return createTestDatabaseWithMigrator(t, migrator.NewSeededMigrator(migrationsDir, seedTimeout))
}

// createTestDatabaseWithMigrator creates a test database using the provided migrator
func createTestDatabaseWithMigrator(t *testing.T, migratorInstance pgtestdb.Migrator) *pgxpool.Pool {
	t.Helper()

	config := createTestDatabaseConfig()

	// Create test database and get its config
	dbConfig := pgtestdb.Custom(t, config, migratorInstance)

	// Connect to the test database using test context for proper lifecycle management
	pool, err := pgxpool.New(t.Context(), dbConfig.URL())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	// Log the database URL for debugging
	t.Logf("testdbconf: %s", dbConfig.URL())

	return pool
}

// createTestDatabaseConfig creates the standard pgtestdb configuration for atlas tests
func createTestDatabaseConfig() pgtestdb.Config {
	return pgtestdb.Config{
		DriverName: "pgx",
		User:       "atlas",
		Password:   "atlas",
		Host:       "localhost",
		Port:       "5432",
		Options:    "sslmode=disable",
	}
}
