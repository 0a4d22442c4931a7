// Package pgxdb opens tuned pgx connection pools.
package pgxdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors for pgxdb package operations
var (
	ErrInvalidConnectionString = errors.New("invalid database connection string")
	ErrConnectionPoolCreation  = errors.New("failed to create database connection pool")
	ErrDatabaseConnection      = errors.New("failed to connect to database")
)

// Pool defaults. The indexer writes from one goroutine per cycle and the web
// façade mostly reads, so a small pool is enough for every binary.
const (
	DefaultMinConns          = 2
	DefaultMaxConns          = 10
	DefaultMaxConnLifetime   = 30 * time.Minute
	DefaultMaxConnIdleTime   = 5 * time.Minute
	DefaultHealthCheckPeriod = time.Minute
	DefaultConnectTimeout    = 10 * time.Second
)

// Option tunes the pool configuration
type Option func(*pgxpool.Config)

// WithMaxConns caps the pool size
func WithMaxConns(n int32) Option {
	return func(c *pgxpool.Config) { c.MaxConns = n }
}

// WithMinConns keeps n connections warm
func WithMinConns(n int32) Option {
	return func(c *pgxpool.Config) { c.MinConns = n }
}

// WithConnectTimeout bounds dialing a new connection
func WithConnectTimeout(d time.Duration) Option {
	return func(c *pgxpool.Config) { c.ConnConfig.ConnectTimeout = d }
}

// ParseConfig parses connectionString and applies the defaults, then opts
func ParseConfig(connectionString string, opts ...Option) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConnectionString, err)
	}

	// See: https://blog.cloudflare.com/how-hyperdrive-speeds-up-database-access/
	config.MinConns = DefaultMinConns
	config.MaxConns = DefaultMaxConns
	config.MaxConnLifetime = DefaultMaxConnLifetime
	config.MaxConnIdleTime = DefaultMaxConnIdleTime
	config.HealthCheckPeriod = DefaultHealthCheckPeriod
	config.ConnConfig.ConnectTimeout = DefaultConnectTimeout

	for _, opt := range opts {
		opt(config)
	}

	if config.MinConns > config.MaxConns {
		config.MinConns = config.MaxConns
	}

	return config, nil
}

// NewConnection creates a pgx pool and verifies it with a ping
func NewConnection(ctx context.Context, connectionString string, opts ...Option) (*pgxpool.Pool, error) {
	config, err := ParseConfig(connectionString, opts...)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionPoolCreation, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", ErrDatabaseConnection, err)
	}

	return pool, nil
}
