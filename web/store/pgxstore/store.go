package pgxstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mappingrow "github.com/screwyprof/atlas/backfill/store/dbrow"
	"github.com/screwyprof/atlas/flp"
	positionrow "github.com/screwyprof/atlas/indexer/store/dbrow"
	"github.com/screwyprof/atlas/web/lookup"
	"github.com/screwyprof/atlas/web/store/dbrow"
)

// Sentinel errors for store operations
var (
	ErrQueryFailed = errors.New("lookup query failed")
)

// latestPositionsQuery picks, per ticker, the most recently indexed snapshot that touched the project
const latestPositionsQuery = `
WITH latest AS (
	SELECT ticker, max(ts) AS ts
	FROM flp_positions
	WHERE project = $1
	GROUP BY ticker
)
SELECT p.ts, p.ticker, p.tx_id, p.wallet, p.eoa, p.project, p.factor, p.amount
FROM flp_positions p
JOIN latest l ON p.ticker = l.ticker AND p.ts = l.ts
WHERE p.project = $1
ORDER BY p.ticker, p.amount::numeric DESC, p.wallet, p.eoa`

// Finder serves the read side of the façade from Postgres
type Finder struct {
	pool *pgxpool.Pool
}

// New creates a finder with an existing connection pool.
// Returns the finder and a closer function
func New(pool *pgxpool.Pool) (*Finder, func()) {
	finder := &Finder{pool: pool}
	closer := func() {
		pool.Close()
	}
	return finder, closer
}

// LatestPositions returns the project's positions from the latest indexed snapshot of every ticker
func (f *Finder) LatestPositions(ctx context.Context, project string) ([]flp.Position, error) {
	rows, err := f.pool.Query(ctx, latestPositionsQuery, project)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	stored, err := pgx.CollectRows(rows, pgx.RowToStructByName[positionrow.Position])
	if err != nil {
		return nil, fmt.Errorf("%w: scan failed: %w", ErrQueryFailed, err)
	}

	positions := make([]flp.Position, 0, len(stored))
	for _, row := range stored {
		p, err := row.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: position %s/%s: %w", ErrQueryFailed, row.TxID, row.Wallet, err)
		}
		positions = append(positions, p)
	}
	return positions, nil
}

// LinksByWallet pages through the identity links recorded for wallet
func (f *Finder) LinksByWallet(ctx context.Context, wallet flp.WalletAddress, criteria lookup.HistoryCriteria) (*lookup.ResultPage[flp.IdentityLink], error) {
	query, args := NewIdentityQuery().ForWallet(wallet.String()).Build(criteria)
	return f.links(ctx, query, args, criteria)
}

// LinksByEOA pages through the identity links recorded for eoa
func (f *Finder) LinksByEOA(ctx context.Context, eoa string, criteria lookup.HistoryCriteria) (*lookup.ResultPage[flp.IdentityLink], error) {
	query, args := NewIdentityQuery().ForEOA(eoa).Build(criteria)
	return f.links(ctx, query, args, criteria)
}

func (f *Finder) links(ctx context.Context, query string, args []any, criteria lookup.HistoryCriteria) (*lookup.ResultPage[flp.IdentityLink], error) {
	rows, err := f.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (flp.IdentityLink, error) {
		link, err := pgx.RowToStructByName[dbrow.IdentityLink](row)
		return link.ToDomain(), err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan failed: %w", ErrQueryFailed, err)
	}

	return lookup.NewResultPage(links, criteria), nil
}

// MappingsFrom pages through the backfilled mappings delegating from wallet
func (f *Finder) MappingsFrom(ctx context.Context, wallet flp.WalletAddress, criteria lookup.HistoryCriteria) (*lookup.ResultPage[flp.DelegationMapping], error) {
	query, args := NewMappingsQuery().FromWallet(wallet.String()).Build(criteria)

	rows, err := f.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	mappings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (flp.DelegationMapping, error) {
		m, err := pgx.RowToStructByName[mappingrow.Mapping](row)
		return m.ToDomain(), err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan failed: %w", ErrQueryFailed, err)
	}

	return lookup.NewResultPage(mappings, criteria), nil
}
