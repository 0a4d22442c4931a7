package backfill

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/pkg/arweave"
	"github.com/screwyprof/atlas/pkg/clock"
)

// Option configures the Service
// ------------------------------------------------
type Option func(*Service)

// WithClock injects a custom clock (e.g., for testing)
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithPacer replaces the default pacer
func WithPacer(p Pacer) Option {
	return func(s *Service) { s.pacer = p }
}

// WithPageSize sets the number of snapshots requested per page
func WithPageSize(n int) Option {
	return func(s *Service) { s.pageSize = n }
}

// WithWindow restricts ingestion to snapshots with start <= height <= target
func WithWindow(start, target uint32) Option {
	return func(s *Service) {
		s.startHeight = start
		s.targetHeight = target
	}
}

// WithMaxFactor sets the largest accepted mapping factor
func WithMaxFactor(maxFactor uint32) Option {
	return func(s *Service) { s.maxFactor = maxFactor }
}

// WithAuthority sets the owner of mapping snapshots
func WithAuthority(address string) Option {
	return func(s *Service) { s.authority = address }
}

// Service runs a single backfill pass
// -----------------------------------
type Service struct {
	gateway      Gateway
	store        Store
	clock        clockwork.Clock
	pacer        Pacer
	pageSize     int
	startHeight  uint32
	targetHeight uint32
	maxFactor    uint32
	authority    string
	events       chan Event
}

// NewService constructs a Service with required dependencies and options
// ---------------------------------------------------------------------
// By default, it uses a real clock, a 300s pacer, pages of 100 and the
// [1608145, 1807500] height window.
func NewService(gateway Gateway, store Store, opts ...Option) *Service {
	s := &Service{
		gateway:      gateway,
		store:        store,
		clock:        clock.Real(),
		pageSize:     DefaultPageSize,
		startHeight:  DefaultStartHeight,
		targetHeight: DefaultTargetHeight,
		maxFactor:    flp.DefaultMaxFactor,
		authority:    flp.DefaultAuthority,
		events:       make(chan Event, 10),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pacer == nil {
		s.pacer = clock.NewPacer(s.clock, DefaultPacingInterval)
	}
	return s
}

// Start launches the backfill and returns the events channel and done channel.
//
// The run ends with exactly one BackfillDone or BackfillError event, after which
// the events channel is closed. Cancelling ctx ends the run with StopCanceled.
//
// Example:
//
//	events, done := service.Start(ctx)
//	closer := backfill.NewSubscriber(events, backfill.OnBackfillDone(...))
//	defer closer()
//	<-done
func (s *Service) Start(ctx context.Context) (<-chan Event, <-chan struct{}) {
	done := make(chan struct{})
	go func() {
		defer close(s.events)
		defer close(done)
		s.run(ctx)
	}()
	return s.events, done
}

// run is the state machine loop. Each step performs the work of the
// current state and returns the next one.
type run struct {
	state  State
	after  string
	page   *arweave.Page
	next   int
	cursor flp.IndexCursor
	counts Counts
	reason StopReason
	err    error
}

func (s *Service) run(ctx context.Context) {
	start := s.clock.Now()
	r := &run{state: StateIdle}

	for r.state != StateDone {
		switch r.state {
		case StateIdle:
			s.begin(ctx, r)
		case StateFetching:
			s.fetch(ctx, r)
		case StateProcessing:
			s.process(ctx, r)
		case StatePacing:
			s.pace(ctx, r)
		}
	}

	if r.err != nil {
		s.events <- BackfillError{Err: r.err}
		return
	}

	s.events <- BackfillDone{
		Reason:   r.reason,
		Counts:   r.counts,
		Cursor:   r.cursor,
		Duration: s.clock.Since(start),
	}
}

func (s *Service) begin(ctx context.Context, r *run) {
	cursor, err := s.store.Cursor(ctx)
	if err != nil {
		r.fail(fmt.Errorf("%w: %w", ErrCursorRetrieval, err))
		return
	}

	r.cursor = cursor
	r.after = cursor.After
	r.state = StateFetching

	s.events <- BackfillStarted{
		StartedAt: s.clock.Now(),
		Cursor:    cursor,
		Window:    [2]uint32{s.startHeight, s.targetHeight},
	}
}

func (s *Service) fetch(ctx context.Context, r *run) {
	if ctx.Err() != nil {
		r.stop(StopCanceled)
		return
	}

	page, err := s.gateway.FindTransactions(ctx, arweave.Query{
		Owners: []string{s.authority},
		Tags:   []arweave.Tag{{Name: TagAction, Value: ActionDelegationMappings}},
		First:  s.pageSize,
		After:  r.after,
		Sort:   arweave.SortHeightDesc,
	})
	if err != nil {
		if ctx.Err() != nil {
			r.stop(StopCanceled)
			return
		}
		r.fail(fmt.Errorf("%w: %w: %w", ErrPageFetchFailed, flp.ErrTransport, err))
		return
	}

	s.events <- PageFetched{After: r.after, Count: len(page.Transactions), HasNextPage: page.HasNextPage}

	if len(page.Transactions) == 0 {
		r.stop(StopEmptyPage)
		return
	}

	r.page = page
	r.next = 0
	r.counts.Pages++
	r.state = StateProcessing
}

func (s *Service) process(ctx context.Context, r *run) {
	if r.next >= len(r.page.Transactions) {
		s.completePage(ctx, r)
		return
	}

	tx := r.page.Transactions[r.next]
	r.next++

	if tx.BlockHeight < s.startHeight || tx.BlockHeight > s.targetHeight {
		r.counts.OutOfRange++
		s.events <- ElementSkipped{TxID: tx.ID, Height: tx.BlockHeight, Reason: SkipOutOfRange}
		return
	}

	// a failed lookup falls through to ingestion, which is idempotent
	if exists, err := s.store.HasMappings(ctx, tx.ID); err == nil && exists {
		r.counts.Duplicates++
		s.events <- ElementSkipped{TxID: tx.ID, Height: tx.BlockHeight, Reason: SkipAlreadyIndexed}
		return
	}

	rows, err := s.ingest(ctx, tx)
	if err != nil {
		r.counts.Failed++
		s.events <- ElementFailed{TxID: tx.ID, Height: tx.BlockHeight, Err: err}
	} else {
		r.counts.Indexed++
		r.counts.Rows += rows
		s.events <- ElementIndexed{TxID: tx.ID, Height: tx.BlockHeight, Rows: rows}
	}

	r.state = StatePacing
}

func (s *Service) ingest(ctx context.Context, tx arweave.Transaction) (int, error) {
	data, err := s.gateway.DownloadPayload(ctx, tx.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %w", ErrDownloadFailed, flp.ErrTransport, err)
	}

	decoded, err := DecodeMappings(data, s.maxFactor)
	if err != nil {
		return 0, err
	}

	rows := make([]flp.DelegationMapping, len(decoded))
	for i, m := range decoded {
		rows[i] = flp.DelegationMapping{
			TxID:       tx.ID,
			Height:     tx.BlockHeight,
			WalletFrom: m.WalletFrom,
			WalletTo:   m.WalletTo,
			Factor:     m.Factor,
		}
	}

	if err := s.store.UpsertMappings(ctx, rows); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUpsertFailed, err)
	}
	return len(rows), nil
}

func (s *Service) pace(ctx context.Context, r *run) {
	if err := s.pacer.Pace(ctx); err != nil {
		r.stop(StopCanceled)
		return
	}
	r.state = StateProcessing
}

func (s *Service) completePage(ctx context.Context, r *run) {
	txs := r.page.Transactions
	cursor := flp.IndexCursor{
		After:               r.page.EndCursor(),
		LastProcessedHeight: txs[len(txs)-1].BlockHeight,
	}

	if cursor.HasAfter() {
		if err := s.store.SaveCursor(ctx, cursor); err != nil {
			r.fail(fmt.Errorf("%w: %w", ErrCursorSave, err))
			return
		}
		r.cursor = cursor
	}

	s.events <- PageCompleted{Cursor: r.cursor, Processed: len(txs)}

	switch {
	case !r.page.HasNextPage:
		r.stop(StopNoNextPage)
	case !cursor.HasAfter():
		r.stop(StopMissingCursor)
	default:
		r.after = cursor.After
		r.state = StateFetching
	}
}

func (r *run) stop(reason StopReason) {
	r.reason = reason
	r.state = StateDone
}

func (r *run) fail(err error) {
	r.err = err
	r.reason = StopFailed
	r.state = StateDone
}

// IsRetryable reports whether a failed run may be restarted from its cursor
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPageFetchFailed)
}
