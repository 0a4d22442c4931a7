// Package distribution splits balances among projects according to delegation profiles.
package distribution

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/screwyprof/atlas/flp"
)

// ErrZeroMaxFactor is returned when a calculator is configured without a scale.
var ErrZeroMaxFactor = errors.New("max factor must be positive")

// Precision is the number of fractional digits kept by the factor division.
const Precision = 36

// Allocation is the part of one balance routed to one project
type Allocation struct {
	Project string
	Factor  uint32
	Amount  decimal.Decimal
}

// Calculator computes allocations with exact decimal arithmetic.
// The result depends only on its inputs.
type Calculator struct {
	maxFactor decimal.Decimal
}

// NewCalculator constructs a Calculator where maxFactor represents 100%
func NewCalculator(maxFactor uint32) (*Calculator, error) {
	if maxFactor == 0 {
		return nil, ErrZeroMaxFactor
	}
	return &Calculator{maxFactor: decimal.NewFromInt(int64(maxFactor))}, nil
}

// Normalize converts a raw integer amount in base units to whole units.
func Normalize(rawAmount string, decimals int32) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: amount %q: %w", flp.ErrSchema, rawAmount, err)
	}
	if amount.IsNegative() || !amount.Equal(amount.Truncate(0)) {
		return decimal.Decimal{}, fmt.Errorf("%w: amount %q is not an unsigned integer", flp.ErrSchema, rawAmount)
	}
	return amount.Shift(-decimals), nil
}

// Compute returns one allocation per preference of profile with a non-zero result.
// Preferences that do not sum to the max factor leave the remainder unallocated.
func (c *Calculator) Compute(entry flp.BalanceEntry, profile flp.Profile, decimals int32) ([]Allocation, error) {
	amount, err := Normalize(entry.RawAmount, decimals)
	if err != nil {
		return nil, err
	}

	out := make([]Allocation, 0, len(profile.Preferences))
	for _, pref := range profile.Preferences {
		delegated := c.apply(amount, pref.Factor)
		if delegated.IsZero() {
			continue
		}
		out = append(out, Allocation{Project: pref.Target, Factor: pref.Factor, Amount: delegated})
	}
	return out, nil
}

// ComputeFor is Compute restricted to a single project.
func (c *Calculator) ComputeFor(project string, entry flp.BalanceEntry, profile flp.Profile, decimals int32) ([]Allocation, error) {
	all, err := c.Compute(entry, profile, decimals)
	if err != nil {
		return nil, err
	}

	out := all[:0]
	for _, a := range all {
		if a.Project == project {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *Calculator) apply(amount decimal.Decimal, factor uint32) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(factor))).DivRound(c.maxFactor, Precision)
}

// Aggregate sums positions per project and ticker. Delegators counts distinct wallets.
// The result is ordered by project, then ticker.
func Aggregate(positions []flp.Position) []flp.ProjectDistribution {
	type key struct{ project, ticker string }

	totals := make(map[key]decimal.Decimal)
	wallets := make(map[key]map[flp.WalletAddress]struct{})
	for _, p := range positions {
		k := key{p.Project, p.Ticker}
		totals[k] = totals[k].Add(p.Amount)
		if wallets[k] == nil {
			wallets[k] = make(map[flp.WalletAddress]struct{})
		}
		wallets[k][p.Wallet] = struct{}{}
	}

	out := make([]flp.ProjectDistribution, 0, len(totals))
	for k, total := range totals {
		out = append(out, flp.ProjectDistribution{
			Project:     k.project,
			Ticker:      k.ticker,
			TotalAmount: total,
			Delegators:  len(wallets[k]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Project != out[j].Project {
			return out[i].Project < out[j].Project
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}
