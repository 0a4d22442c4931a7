// Package lookup describes the read side of the serving façade: what can be
// queried, with which criteria, and what comes back.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/screwyprof/atlas/delegation"
	"github.com/screwyprof/atlas/flp"
)

// Sentinel errors for criteria construction
var (
	ErrInvalidPage    = errors.New("invalid page")
	ErrInvalidPerPage = errors.New("invalid per_page")
)

// Resolver resolves a wallet's active profile against the live ledger
type Resolver interface {
	Resolve(ctx context.Context, wallet flp.WalletAddress) (delegation.Resolution, error)
}

// OracleLocator finds the latest snapshot of a ticker on the live ledger
type OracleLocator interface {
	LatestTxID(ctx context.Context, ticker string) (string, error)
}

// DistributionFinder reads stored positions
type DistributionFinder interface {
	// LatestPositions returns the positions of project from the latest indexed snapshot of every ticker
	LatestPositions(ctx context.Context, project string) ([]flp.Position, error)
}

// IdentityFinder reads wallet to EOA links recorded from oracle snapshots
type IdentityFinder interface {
	LinksByWallet(ctx context.Context, wallet flp.WalletAddress, criteria HistoryCriteria) (*ResultPage[flp.IdentityLink], error)
	LinksByEOA(ctx context.Context, eoa string, criteria HistoryCriteria) (*ResultPage[flp.IdentityLink], error)
}

// MappingsFinder reads backfilled delegation mappings
type MappingsFinder interface {
	// MappingsFrom returns the rows delegating from wallet, most recent height first
	MappingsFrom(ctx context.Context, wallet flp.WalletAddress, criteria HistoryCriteria) (*ResultPage[flp.DelegationMapping], error)
}

// HistoryCriteria specifies which page of a history to read
type HistoryCriteria struct {
	Page Page    // 1-based page number
	Size PerPage // Items per page
}

// ItemsPerPage returns the number of items requested per page
func (c HistoryCriteria) ItemsPerPage() uint64 {
	return c.Size.Uint64()
}

// ItemsToSkip returns the number of items to skip for pagination
func (c HistoryCriteria) ItemsToSkip() uint64 {
	return (c.Page.Uint64() - 1) * c.Size.Uint64()
}

// NewHistoryCriteria creates HistoryCriteria from uint64 values with validation.
// Zero values select the defaults.
func NewHistoryCriteria(page, perPage uint64) (HistoryCriteria, error) {
	pp, err := ParsePerPageFromUint64(perPage)
	if err != nil {
		return HistoryCriteria{}, fmt.Errorf("%w: %w", ErrInvalidPerPage, err)
	}

	// OFFSET plus the LIMIT n+1 look-ahead row must fit a signed 64-bit bigint.
	p := ParsePageFromUint64(page)
	if p.Uint64()-1 > (math.MaxInt64-pp.Uint64()-1)/pp.Uint64() {
		return HistoryCriteria{}, fmt.Errorf("%w: %w", ErrInvalidPage, ErrPageTooLarge)
	}

	return HistoryCriteria{
		Page: p,
		Size: pp,
	}, nil
}

// ProjectSnapshot is the current stored distribution of one project
type ProjectSnapshot struct {
	Project   flp.Project
	Totals    []flp.ProjectDistribution
	Positions []flp.Position
}
