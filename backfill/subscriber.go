package backfill

// Subscriber handles event subscriptions.
type Subscriber struct {
	done                 chan struct{}
	startedHandler       func(BackfillStarted)
	pageFetchedHandler   func(PageFetched)
	skippedHandler       func(ElementSkipped)
	indexedHandler       func(ElementIndexed)
	failedHandler        func(ElementFailed)
	pageCompletedHandler func(PageCompleted)
	doneHandler          func(BackfillDone)
	errorHandler         func(BackfillError)
}

// OnBackfillStarted sets the handler for BackfillStarted events
func OnBackfillStarted(fn func(BackfillStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.startedHandler = fn }
}

// OnPageFetched sets the handler for PageFetched events
func OnPageFetched(fn func(PageFetched)) func(*Subscriber) {
	return func(s *Subscriber) { s.pageFetchedHandler = fn }
}

// OnElementSkipped sets the handler for ElementSkipped events
func OnElementSkipped(fn func(ElementSkipped)) func(*Subscriber) {
	return func(s *Subscriber) { s.skippedHandler = fn }
}

// OnElementIndexed sets the handler for ElementIndexed events
func OnElementIndexed(fn func(ElementIndexed)) func(*Subscriber) {
	return func(s *Subscriber) { s.indexedHandler = fn }
}

// OnElementFailed sets the handler for ElementFailed events
func OnElementFailed(fn func(ElementFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.failedHandler = fn }
}

// OnPageCompleted sets the handler for PageCompleted events
func OnPageCompleted(fn func(PageCompleted)) func(*Subscriber) {
	return func(s *Subscriber) { s.pageCompletedHandler = fn }
}

// OnBackfillDone sets the handler for BackfillDone events
func OnBackfillDone(fn func(BackfillDone)) func(*Subscriber) {
	return func(s *Subscriber) { s.doneHandler = fn }
}

// OnBackfillError sets the handler for BackfillError events
func OnBackfillError(fn func(BackfillError)) func(*Subscriber) {
	return func(s *Subscriber) { s.errorHandler = fn }
}

// NewSubscriber creates a Subscriber with the given options and starts the dispatch loop.
// Returns a closer function that waits for all events to be processed.
//
// Example:
//
//	closer := backfill.NewSubscriber(events,
//	  backfill.OnBackfillDone(func(e backfill.BackfillDone) { ... }),
//	)
//	defer closer()  // Ensures all events processed before exit
func NewSubscriber(events <-chan Event, opts ...func(*Subscriber)) func() {
	s := &Subscriber{
		done:                 make(chan struct{}),
		startedHandler:       func(BackfillStarted) {},
		pageFetchedHandler:   func(PageFetched) {},
		skippedHandler:       func(ElementSkipped) {},
		indexedHandler:       func(ElementIndexed) {},
		failedHandler:        func(ElementFailed) {},
		pageCompletedHandler: func(PageCompleted) {},
		doneHandler:          func(BackfillDone) {},
		errorHandler:         func(BackfillError) {},
	}

	for _, opt := range opts {
		opt(s)
	}

	go func() {
		defer close(s.done)
		for ev := range events {
			switch e := ev.(type) {
			case BackfillStarted:
				s.startedHandler(e)
			case PageFetched:
				s.pageFetchedHandler(e)
			case ElementSkipped:
				s.skippedHandler(e)
			case ElementIndexed:
				s.indexedHandler(e)
			case ElementFailed:
				s.failedHandler(e)
			case PageCompleted:
				s.pageCompletedHandler(e)
			case BackfillDone:
				s.doneHandler(e)
			case BackfillError:
				s.errorHandler(e)
			}
		}
	}()

	return func() {
		<-s.done
	}
}
