package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/screwyprof/atlas/cmd/indexer/config"
	"github.com/screwyprof/atlas/distribution"
	"github.com/screwyprof/atlas/flp"
	"github.com/screwyprof/atlas/indexer"
	"github.com/screwyprof/atlas/indexer/store/pgxstore"
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
	metrics.BuildInfo.WithLabelValues("indexer", version, date).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL, pgxdb.WithMaxConns(cfg.DatabaseMaxConns))
	if err != nil {
		log.ErrorContext(ctx, "Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	store, storeCloser := pgxstore.New(db)
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

	calc, err := distribution.NewCalculator(cfg.Ledger.MaxFactor)
	if err != nil {
		log.ErrorContext(ctx, "Invalid max factor", slog.Any("error", err))
		os.Exit(1)
	}

	registry := cfg.Ledger.Tickers()
	tickers := make([]flp.Ticker, 0, len(registry))
	for _, symbol := range registry.Symbols() {
		tickers = append(tickers, registry[symbol])
	}

	gateway := cfg.Ledger.Client()
	svc, err := indexer.NewService(
		cfg.Ledger.Resolver(gateway),
		cfg.Ledger.Fetcher(gateway),
		store,
		calc,
		tickers,
		indexer.WithInterval(cfg.Interval),
		indexer.WithConcurrency(cfg.Concurrency),
	)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create indexer", slog.Any("error", err))
		os.Exit(1)
	}

	log.InfoContext(ctx, "Starting FLP indexer",
		slog.Any("tickers", registry.Symbols()),
		slog.Duration("interval", cfg.Interval),
		slog.Int("concurrency", cfg.Concurrency),
		slog.String("version", version),
		slog.String("date", date),
	)
	events, done := svc.Start(ctx)

	subCloser := setupEventLogging(ctx, events, log)
	defer subCloser()

	<-done
	log.InfoContext(ctx, "Indexer stopped gracefully")
}

// setupEventLogging configures event handlers using slog directly and feeds the metrics
func setupEventLogging(ctx context.Context, events <-chan indexer.Event, log *slog.Logger) func() {
	return indexer.NewSubscriber(events,
		indexer.OnIndexerStarted(func(event indexer.IndexerStarted) {
			log.InfoContext(ctx, "Indexer started",
				slog.Duration("interval", event.Interval),
				slog.Any("tickers", event.Tickers),
			)
		}),
		indexer.OnCycleStarted(func(event indexer.CycleStarted) {
			log.InfoContext(ctx, "Cycle started",
				slog.Int("cycle", event.Cycle),
				slog.String("startedAt", event.StartedAt.Format(logger.BritishTimeFormat)),
			)
		}),
		indexer.OnTickerIndexed(func(event indexer.TickerIndexed) {
			metrics.IndexerTickers.WithLabelValues(event.Ticker, "indexed").Inc()
			metrics.IndexerPositions.WithLabelValues(event.Ticker).Add(float64(event.Positions))
			res := event.Resolutions
			for outcome, n := range map[string]int{
				"found":        res.Found,
				"defaulted":    res.Defaulted,
				"inconsistent": res.Inconsistent,
				"invalid":      res.Invalid,
			} {
				metrics.IndexerResolutions.WithLabelValues(event.Ticker, outcome).Add(float64(n))
			}
			log.InfoContext(ctx, "Ticker indexed",
				slog.String("ticker", event.Ticker),
				slog.String("txID", event.TxID),
				slog.Int("entries", event.Entries),
				slog.Int("positions", event.Positions),
				slog.Int("found", res.Found),
				slog.Int("defaulted", res.Defaulted),
				slog.Int("skipped", res.Skipped()),
				slog.Duration("duration", event.Duration),
			)
		}),
		indexer.OnTickerSkipped(func(event indexer.TickerSkipped) {
			metrics.IndexerTickers.WithLabelValues(event.Ticker, string(event.Reason)).Inc()
			log.InfoContext(ctx, "Ticker skipped",
				slog.String("ticker", event.Ticker),
				slog.String("txID", event.TxID),
				slog.String("reason", string(event.Reason)),
			)
		}),
		indexer.OnTickerFailed(func(event indexer.TickerFailed) {
			metrics.IndexerTickers.WithLabelValues(event.Ticker, "failed").Inc()
			log.ErrorContext(ctx, "Ticker failed",
				slog.String("ticker", event.Ticker),
				slog.Any("error", event.Err),
			)
		}),
		indexer.OnWalletSkipped(func(event indexer.WalletSkipped) {
			log.WarnContext(ctx, "Wallet skipped",
				slog.String("ticker", event.Ticker),
				slog.String("wallet", event.Wallet.String()),
				slog.Any("error", event.Err),
			)
		}),
		indexer.OnCycleCompleted(func(event indexer.CycleCompleted) {
			metrics.IndexerCycleDuration.Observe(event.Duration.Seconds())
			log.InfoContext(ctx, "Cycle completed",
				slog.Int("cycle", event.Cycle),
				slog.Int("indexed", event.Indexed),
				slog.Int("skipped", event.Skipped),
				slog.Int("failed", event.Failed),
				slog.Duration("duration", event.Duration),
			)
		}),
		indexer.OnIndexerShutdown(func(event indexer.IndexerShutdown) {
			log.InfoContext(ctx, "Indexer stopped",
				slog.String("reason", event.Reason.Error()),
			)
		}),
	)
}
