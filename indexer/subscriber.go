package indexer

// Subscriber handles event subscriptions.
type Subscriber struct {
	done            chan struct{}
	startedHandler  func(IndexerStarted)
	cycleStarted    func(CycleStarted)
	tickerIndexed   func(TickerIndexed)
	tickerSkipped   func(TickerSkipped)
	tickerFailed    func(TickerFailed)
	walletSkipped   func(WalletSkipped)
	cycleCompleted  func(CycleCompleted)
	shutdownHandler func(IndexerShutdown)
}

// OnIndexerStarted sets the handler for IndexerStarted events
func OnIndexerStarted(fn func(IndexerStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.startedHandler = fn }
}

// OnCycleStarted sets the handler for CycleStarted events
func OnCycleStarted(fn func(CycleStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.cycleStarted = fn }
}

// OnTickerIndexed sets the handler for TickerIndexed events
func OnTickerIndexed(fn func(TickerIndexed)) func(*Subscriber) {
	return func(s *Subscriber) { s.tickerIndexed = fn }
}

// OnTickerSkipped sets the handler for TickerSkipped events
func OnTickerSkipped(fn func(TickerSkipped)) func(*Subscriber) {
	return func(s *Subscriber) { s.tickerSkipped = fn }
}

// OnTickerFailed sets the handler for TickerFailed events
func OnTickerFailed(fn func(TickerFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.tickerFailed = fn }
}

// OnWalletSkipped sets the handler for WalletSkipped events
func OnWalletSkipped(fn func(WalletSkipped)) func(*Subscriber) {
	return func(s *Subscriber) { s.walletSkipped = fn }
}

// OnCycleCompleted sets the handler for CycleCompleted events
func OnCycleCompleted(fn func(CycleCompleted)) func(*Subscriber) {
	return func(s *Subscriber) { s.cycleCompleted = fn }
}

// OnIndexerShutdown sets the handler for IndexerShutdown events
func OnIndexerShutdown(fn func(IndexerShutdown)) func(*Subscriber) {
	return func(s *Subscriber) { s.shutdownHandler = fn }
}

// NewSubscriber creates a Subscriber with the given options and starts the dispatch loop.
// Returns a closer function that waits for all events to be processed.
func NewSubscriber(events <-chan Event, opts ...func(*Subscriber)) func() {
	s := &Subscriber{
		done:            make(chan struct{}),
		startedHandler:  func(IndexerStarted) {},
		cycleStarted:    func(CycleStarted) {},
		tickerIndexed:   func(TickerIndexed) {},
		tickerSkipped:   func(TickerSkipped) {},
		tickerFailed:    func(TickerFailed) {},
		walletSkipped:   func(WalletSkipped) {},
		cycleCompleted:  func(CycleCompleted) {},
		shutdownHandler: func(IndexerShutdown) {},
	}

	for _, opt := range opts {
		opt(s)
	}

	go func() {
		defer close(s.done)
		for ev := range events {
			switch e := ev.(type) {
			case IndexerStarted:
				s.startedHandler(e)
			case CycleStarted:
				s.cycleStarted(e)
			case TickerIndexed:
				s.tickerIndexed(e)
			case TickerSkipped:
				s.tickerSkipped(e)
			case TickerFailed:
				s.tickerFailed(e)
			case WalletSkipped:
				s.walletSkipped(e)
			case CycleCompleted:
				s.cycleCompleted(e)
			case IndexerShutdown:
				s.shutdownHandler(e)
			}
		}
	}()

	return func() {
		<-s.done
	}
}
