package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/joho/godotenv"

	"github.com/screwyprof/atlas/backfill"
	"github.com/screwyprof/atlas/backfill/store/chstore"
	"github.com/screwyprof/atlas/backfill/store/pgxstore"
	"github.com/screwyprof/atlas/cmd/backfill/config"
	"github.com/screwyprof/atlas/pkg/clock"
	"github.com/screwyprof/atlas/pkg/logger"
	"github.com/screwyprof/atlas/pkg/metrics"
	"github.com/screwyprof/atlas/pkg/pgxdb"
)

// These values are overridden at build time using -ldflags
var (
	version = "dev"
	date    = "unknown"
)

func main() {
	// A missing .env is fine: the environment may be set by the deployment
	_ = godotenv.Load()

	cfg := config.New()

	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)
	metrics.BuildInfo.WithLabelValues("backfill", version, date).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, storeCloser, err := openStore(ctx, cfg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to open mapping store", slog.String("sink", cfg.Sink), slog.Any("error", err))
		os.Exit(1)
	}
	defer storeCloser()

	if cfg.MetricsAddr != "" {
		metricsServer := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			log.InfoContext(ctx, "Metrics server started", slog.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.ErrorContext(ctx, "Metrics server failed", slog.Any("error", err))
			}
		}()
		defer metricsServer.Close()
	}

	gateway := cfg.Ledger.Client()
	opts := []backfill.Option{
		backfill.WithPageSize(cfg.PageSize),
		backfill.WithWindow(cfg.StartHeight, cfg.TargetHeight),
		backfill.WithPacer(clock.NewPacer(clock.Real(), cfg.PacingInterval)),
		backfill.WithMaxFactor(cfg.Ledger.MaxFactor),
		backfill.WithAuthority(cfg.Ledger.Authority),
	}

	log.InfoContext(ctx, "Starting delegation mappings backfill",
		slog.String("sink", cfg.Sink),
		slog.Int("pageSize", cfg.PageSize),
		slog.Any("startHeight", cfg.StartHeight),
		slog.Any("targetHeight", cfg.TargetHeight),
		slog.Duration("pacing", cfg.PacingInterval),
		slog.String("version", version),
		slog.String("date", date),
	)

	// Each attempt is a fresh run resuming from the persisted cursor
	attempt := func() (backfill.BackfillDone, error) {
		svc := backfill.NewService(gateway, store, opts...)
		events, done := svc.Start(ctx)

		var outcome runOutcome
		subCloser := setupEventLogging(ctx, events, log, &outcome)
		<-done
		subCloser()

		switch {
		case outcome.err == nil:
			return outcome.done, nil
		case backfill.IsRetryable(outcome.err):
			return outcome.done, outcome.err
		default:
			return outcome.done, backoff.Permanent(outcome.err)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.RetryInitialInterval
	bo.MaxInterval = cfg.RetryMaxInterval

	result, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(cfg.RetryMaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.WarnContext(ctx, "Backfill run failed, retrying", slog.Any("error", err), slog.Duration("in", next))
		}),
	)
	if errors.Is(err, context.Canceled) {
		log.InfoContext(ctx, "Backfill interrupted")
		return
	}
	if err != nil {
		log.ErrorContext(ctx, "Backfill gave up", slog.Any("error", err))
		os.Exit(1)
	}

	log.InfoContext(ctx, "Backfill finished", slog.String("reason", string(result.Reason)))
}

// openStore opens the configured mapping sink
func openStore(ctx context.Context, cfg config.Config) (backfill.Store, func(), error) {
	switch cfg.Sink {
	case config.SinkPostgres:
		db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store, closer := pgxstore.New(db, clock.Real())
		return store, closer, nil
	case config.SinkClickHouse:
		store, closer, err := chstore.Open(ctx, chstore.Config{
			Addr:        cfg.ClickHouseAddr,
			Database:    cfg.ClickHouseDatabase,
			Username:    cfg.ClickHouseUsername,
			Password:    cfg.ClickHousePassword,
			Secure:      cfg.ClickHouseSecure,
			DialTimeout: cfg.ClickHouseDialTimeout,
		}, clock.Real())
		if err != nil {
			return nil, nil, err
		}
		if err := store.Ensure(ctx); err != nil {
			closer()
			return nil, nil, err
		}
		return store, closer, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}

// runOutcome captures how a single run ended
type runOutcome struct {
	done backfill.BackfillDone
	err  error
}

// setupEventLogging configures event handlers using slog directly and feeds the metrics
func setupEventLogging(ctx context.Context, events <-chan backfill.Event, log *slog.Logger, outcome *runOutcome) func() {
	return backfill.NewSubscriber(events,
		backfill.OnBackfillStarted(func(event backfill.BackfillStarted) {
			log.InfoContext(ctx, "Backfill started",
				slog.String("startedAt", event.StartedAt.Format(logger.BritishTimeFormat)),
				slog.String("after", event.Cursor.After),
				slog.Any("lastProcessedHeight", event.Cursor.LastProcessedHeight),
				slog.Any("window", event.Window),
			)
		}),
		backfill.OnPageFetched(func(event backfill.PageFetched) {
			metrics.BackfillPages.Inc()
			log.DebugContext(ctx, "Page fetched",
				slog.String("after", event.After),
				slog.Int("count", event.Count),
				slog.Bool("hasNextPage", event.HasNextPage),
			)
		}),
		backfill.OnElementSkipped(func(event backfill.ElementSkipped) {
			metrics.BackfillElements.WithLabelValues(string(event.Reason)).Inc()
			log.DebugContext(ctx, "Mapping snapshot skipped",
				slog.String("txID", event.TxID),
				slog.Any("height", event.Height),
				slog.String("reason", string(event.Reason)),
			)
		}),
		backfill.OnElementIndexed(func(event backfill.ElementIndexed) {
			metrics.BackfillElements.WithLabelValues("indexed").Inc()
			metrics.BackfillRows.Add(float64(event.Rows))
			log.InfoContext(ctx, "Mapping snapshot indexed",
				slog.String("txID", event.TxID),
				slog.Any("height", event.Height),
				slog.Int("rows", event.Rows),
			)
		}),
		backfill.OnElementFailed(func(event backfill.ElementFailed) {
			metrics.BackfillElements.WithLabelValues("failed").Inc()
			log.WarnContext(ctx, "Mapping snapshot failed",
				slog.String("txID", event.TxID),
				slog.Any("height", event.Height),
				slog.Any("error", event.Err),
			)
		}),
		backfill.OnPageCompleted(func(event backfill.PageCompleted) {
			metrics.BackfillLastHeight.Set(float64(event.Cursor.LastProcessedHeight))
			log.InfoContext(ctx, "Page completed",
				slog.Int("processed", event.Processed),
				slog.Any("lastProcessedHeight", event.Cursor.LastProcessedHeight),
			)
		}),
		backfill.OnBackfillDone(func(event backfill.BackfillDone) {
			outcome.done = event
			metrics.BackfillRuns.WithLabelValues(string(event.Reason)).Inc()
			log.InfoContext(ctx, "Backfill completed",
				slog.String("reason", string(event.Reason)),
				slog.Int("pages", event.Counts.Pages),
				slog.Int("indexed", event.Counts.Indexed),
				slog.Int("outOfRange", event.Counts.OutOfRange),
				slog.Int("duplicates", event.Counts.Duplicates),
				slog.Int("failed", event.Counts.Failed),
				slog.Int("rows", event.Counts.Rows),
				slog.Duration("duration", event.Duration),
			)
		}),
		backfill.OnBackfillError(func(event backfill.BackfillError) {
			outcome.err = event.Err
			metrics.BackfillRuns.WithLabelValues(string(backfill.StopFailed)).Inc()
			log.ErrorContext(ctx, "Backfill failed", slog.Any("error", event.Err))
		}),
	)
}
