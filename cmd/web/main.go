package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/screwyprof/atlas/pkg/logger"
	"github.com/screwyprof/atlas/pkg/metrics"
	"github.com/screwyprof/atlas/pkg/pgxdb"
	"github.com/screwyprof/atlas/web"
	"github.com/screwyprof/atlas/web/config"
	"github.com/screwyprof/atlas/web/store/pgxstore"
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
	metrics.BuildInfo.WithLabelValues("web", version, date).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.InfoContext(ctx, "Atlas Web API Service starting",
		slog.String("version", version),
		slog.String("date", date),
	)

	db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL, pgxdb.WithMaxConns(cfg.DatabaseMaxConns))
	if err != nil {
		log.ErrorContext(ctx, "Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	store, storeCloser := pgxstore.New(db)
	defer storeCloser()

	gateway := cfg.Ledger.Client()
	fetcher := cfg.Ledger.Fetcher(gateway)

	mux := http.NewServeMux()
	web.AddRoutes(mux, web.Dependencies{
		Version:  version,
		Tickers:  fetcher.Tickers().Symbols(),
		Resolver: cfg.Ledger.Resolver(gateway),
		Oracles:  fetcher,
		Store:    store,
	})
	mux.Handle("GET /metrics", metrics.Handler())

	addr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           logger.NewMiddleware(log)(mux),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	go func() {
		log.InfoContext(ctx, "Server started", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Server failed to start", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	log.InfoContext(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(ctx, "Server forced to shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	log.InfoContext(ctx, "Server exited gracefully")
}
