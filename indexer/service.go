package indexer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/jonboulle/clockwork"

	"github.com/screwyprof/atlas/delegation"
	"github.com/screwyprof/atlas/distribution"
	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/pkg/clock"
)

// Option configures the Service
// ------------------------------------------------
type Option func(*Service)

// WithClock injects a custom clock (e.g., for testing)
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithInterval sets the pause between cycles
func WithInterval(d time.Duration) Option {
	return func(s *Service) { s.interval = d }
}

// WithConcurrency bounds the number of wallets resolved at once
func WithConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = n }
}

// Service runs distribution cycles over a fixed set of tickers
// ------------------------------------------------------------
type Service struct {
	resolver    Resolver
	oracle      Oracle
	store       Store
	calc        *distribution.Calculator
	tickers     []flp.Ticker
	clock       clockwork.Clock
	interval    time.Duration
	concurrency int
	pool        pond.ResultPool[resolved]
	events      chan Event
}

// NewService constructs a Service with required dependencies and options
// ---------------------------------------------------------------------
// By default, it uses a real clock, a 300s interval and 16 concurrent resolutions.
func NewService(resolver Resolver, oracle Oracle, store Store, calc *distribution.Calculator, tickers []flp.Ticker, opts ...Option) (*Service, error) {
	s := &Service{
		resolver:    resolver,
		oracle:      oracle,
		store:       store,
		calc:        calc,
		tickers:     tickers,
		clock:       clock.Real(),
		interval:    DefaultInterval,
		concurrency: DefaultConcurrency,
		events:      make(chan Event, 10),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.tickers) == 0 {
		return nil, ErrNoTickers
	}
	if s.concurrency <= 0 {
		return nil, ErrZeroConcurrency
	}

	s.pool = pond.NewResultPool[resolved](s.concurrency)
	return s, nil
}

// Start launches the indexer and returns the events channel and done channel.
//
// The first cycle runs immediately. Cancel ctx to stop; the service emits
// IndexerShutdown and closes the events channel before done is closed.
func (s *Service) Start(ctx context.Context) (<-chan Event, <-chan struct{}) {
	done := make(chan struct{})
	go func() {
		defer close(s.events)
		defer close(done)
		s.run(ctx)
	}()
	return s.events, done
}

func (s *Service) run(ctx context.Context) {
	defer s.pool.StopAndWait()

	symbols := make([]string, len(s.tickers))
	for i, t := range s.tickers {
		symbols[i] = t.Symbol
	}
	s.events <- IndexerStarted{Interval: s.interval, Tickers: symbols}

	for cycle := 1; ; cycle++ {
		s.runCycle(ctx, cycle)

		select {
		case <-ctx.Done():
			s.events <- IndexerShutdown{Reason: ctx.Err()}
			return
		case <-s.clock.After(s.interval):
		}
	}
}

// runCycle indexes every ticker once and reports a CycleCompleted summary
func (s *Service) runCycle(ctx context.Context, cycle int) {
	start := s.clock.Now()
	s.events <- CycleStarted{Cycle: cycle, StartedAt: start}

	summary := CycleCompleted{Cycle: cycle}
	for _, ticker := range s.tickers {
		if ctx.Err() != nil {
			break
		}

		switch ev := s.indexTicker(ctx, ticker, start).(type) {
		case TickerIndexed:
			summary.Indexed++
			s.events <- ev
		case TickerSkipped:
			summary.Skipped++
			s.events <- ev
		case TickerFailed:
			summary.Failed++
			s.events <- ev
		}
	}

	summary.Duration = s.clock.Since(start)
	s.events <- summary
}

// indexTicker returns TickerIndexed, TickerSkipped or TickerFailed
func (s *Service) indexTicker(ctx context.Context, ticker flp.Ticker, now time.Time) Event {
	txID, err := s.oracle.LatestTxID(ctx, ticker.Symbol)
	if errors.Is(err, flp.ErrNotFound) {
		return TickerSkipped{Ticker: ticker.Symbol, Reason: SkipNoSnapshot}
	}
	if err != nil {
		return TickerFailed{Ticker: ticker.Symbol, Err: fmt.Errorf("%w: %w", ErrSnapshotLookup, err)}
	}

	indexed, err := s.store.HasSnapshot(ctx, ticker.Symbol, txID)
	if err != nil {
		return TickerFailed{Ticker: ticker.Symbol, Err: fmt.Errorf("%w: %w", ErrMarkerLookup, err)}
	}
	if indexed {
		return TickerSkipped{Ticker: ticker.Symbol, TxID: txID, Reason: SkipAlreadyIndexed}
	}

	snap, err := s.oracle.SnapshotAt(ctx, ticker.Symbol, txID)
	if err != nil {
		return TickerFailed{Ticker: ticker.Symbol, Err: fmt.Errorf("%w: %w", ErrSnapshotLookup, err)}
	}

	profiles, counts, err := s.resolveAll(ctx, ticker.Symbol, snap.Entries, s.emitSkip)
	if err != nil {
		return TickerFailed{Ticker: ticker.Symbol, Err: fmt.Errorf("%w: %w", ErrResolution, err)}
	}

	positions := s.positions(ticker, "", snap, profiles, now, s.emitSkip)

	if err := s.persist(ctx, now, snap, sortedProfiles(profiles), positions); err != nil {
		return TickerFailed{Ticker: ticker.Symbol, Err: fmt.Errorf("%w: %w", ErrPersist, err)}
	}

	return TickerIndexed{
		Ticker:      ticker.Symbol,
		TxID:        txID,
		Entries:     len(snap.Entries),
		Positions:   len(positions),
		Resolutions: counts,
		Duration:    s.clock.Since(now),
	}
}

type resolved struct {
	wallet     flp.WalletAddress
	resolution delegation.Resolution
	err        error
}

// resolveAll resolves every distinct wallet of the snapshot on the pool.
// Transport failures abort the ticker; any other per-wallet failure skips the wallet.
func (s *Service) resolveAll(ctx context.Context, ticker string, entries []flp.BalanceEntry, skip func(WalletSkipped)) (map[flp.WalletAddress]flp.Profile, Resolutions, error) {
	// The result group does not expose its context, so in-flight
	// resolutions share one that the first transport failure cancels.
	// The failure is the cause, which is what group.Wait reports.
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	group := s.pool.NewGroupContext(ctx)

	seen := make(map[flp.WalletAddress]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Wallet]; ok {
			continue
		}
		seen[e.Wallet] = struct{}{}

		wallet := e.Wallet
		group.SubmitErr(func() (resolved, error) {
			res, err := s.resolver.Resolve(ctx, wallet)
			if errors.Is(err, flp.ErrTransport) {
				cancel(err)
				return resolved{}, err
			}
			return resolved{wallet: wallet, resolution: res, err: err}, nil
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, Resolutions{}, err
	}

	var counts Resolutions
	profiles := make(map[flp.WalletAddress]flp.Profile, len(results))
	for _, r := range results {
		if r.err != nil {
			if errors.Is(r.err, flp.ErrInconsistentState) {
				counts.Inconsistent++
			} else {
				counts.Invalid++
			}
			skip(WalletSkipped{Ticker: ticker, Wallet: r.wallet, Err: r.err})
			continue
		}

		switch r.resolution.Outcome {
		case delegation.OutcomeDefaulted:
			counts.Defaulted++
		default:
			counts.Found++
		}
		profiles[r.wallet] = r.resolution.Profile
	}

	return profiles, counts, nil
}

// positions computes the allocations of every resolved entry. An empty project keeps all of them.
func (s *Service) positions(ticker flp.Ticker, project string, snap flp.OracleSnapshot, profiles map[flp.WalletAddress]flp.Profile, now time.Time, skip func(WalletSkipped)) []flp.Position {
	var out []flp.Position
	for _, entry := range snap.Entries {
		profile, ok := profiles[entry.Wallet]
		if !ok {
			continue
		}

		allocs, err := s.allocate(project, entry, profile, ticker.Decimals)
		if err != nil {
			skip(WalletSkipped{Ticker: ticker.Symbol, Wallet: entry.Wallet, Err: err})
			continue
		}

		for _, a := range allocs {
			out = append(out, flp.Position{
				Timestamp: now,
				Ticker:    ticker.Symbol,
				Wallet:    entry.Wallet,
				EOA:       entry.EOA,
				Project:   a.Project,
				Factor:    a.Factor,
				Amount:    a.Amount,
			})
		}
	}
	return out
}

func (s *Service) allocate(project string, entry flp.BalanceEntry, profile flp.Profile, decimals int32) ([]distribution.Allocation, error) {
	if project == "" {
		return s.calc.Compute(entry, profile, decimals)
	}
	return s.calc.ComputeFor(project, entry, profile, decimals)
}

func (s *Service) persist(ctx context.Context, now time.Time, snap flp.OracleSnapshot, profiles []flp.Profile, positions []flp.Position) error {
	if err := s.store.SaveBalances(ctx, now, snap); err != nil {
		return err
	}
	if err := s.store.SaveDelegations(ctx, now, snap.Ticker, snap.TxID, profiles); err != nil {
		return err
	}
	if err := s.store.SavePositions(ctx, snap.TxID, positions); err != nil {
		return err
	}
	return s.store.MarkSnapshot(ctx, now, snap.Ticker, snap.TxID, len(snap.Entries))
}

func (s *Service) emitSkip(ev WalletSkipped) {
	s.events <- ev
}

func sortedProfiles(profiles map[flp.WalletAddress]flp.Profile) []flp.Profile {
	out := make([]flp.Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b flp.Profile) int {
		return strings.Compare(string(a.Wallet), string(b.Wallet))
	})
	return out
}

// Preview computes the positions of one snapshot without persisting anything.
// A non-empty project keeps only the positions routed to it, and an empty txID
// previews the latest snapshot. Skipped wallets are returned alongside. A service
// that has shut down cannot preview, because its resolution pool is stopped.
func (s *Service) Preview(ctx context.Context, symbol, project, txID string) ([]flp.Position, []WalletSkipped, error) {
	var ticker flp.Ticker
	for _, t := range s.tickers {
		if t.Symbol == symbol {
			ticker = t
		}
	}
	if ticker.Symbol == "" {
		return nil, nil, fmt.Errorf("%w: ticker %q is not indexed", flp.ErrValidation, symbol)
	}

	var err error
	if txID == "" {
		if txID, err = s.oracle.LatestTxID(ctx, ticker.Symbol); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrSnapshotLookup, err)
		}
	}

	snap, err := s.oracle.SnapshotAt(ctx, ticker.Symbol, txID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSnapshotLookup, err)
	}

	var skipped []WalletSkipped
	collect := func(ev WalletSkipped) { skipped = append(skipped, ev) }

	profiles, _, err := s.resolveAll(ctx, ticker.Symbol, snap.Entries, collect)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrResolution, err)
	}

	return s.positions(ticker, project, snap, profiles, s.clock.Now(), collect), skipped, nil
}
