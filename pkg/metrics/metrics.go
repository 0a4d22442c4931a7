// Package metrics holds the Prometheus collectors shared by the binaries.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "atlas_build_info",
		Help: "Build information of the running binary",
	}, []string{"binary", "version", "date"})

	BackfillPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_backfill_pages_total",
		Help: "Number of mapping pages fetched by the backfill",
	})
	BackfillElements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_backfill_elements_total",
		Help: "Number of mapping snapshots handled by the backfill, by outcome",
	}, []string{"outcome"})
	BackfillRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_backfill_rows_total",
		Help: "Number of mapping rows upserted by the backfill",
	})
	BackfillRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_backfill_runs_total",
		Help: "Number of finished backfill runs, by stop reason",
	}, []string{"reason"})
	BackfillLastHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atlas_backfill_last_processed_height",
		Help: "Height of the last element of the most recent completed page",
	})

	IndexerCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "atlas_indexer_cycle_duration_seconds",
		Help:    "Duration of an indexer cycle",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
	IndexerTickers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_indexer_tickers_total",
		Help: "Number of ticker runs, by result",
	}, []string{"ticker", "result"})
	IndexerResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_indexer_resolutions_total",
		Help: "Number of wallet resolutions, by outcome",
	}, []string{"ticker", "outcome"})
	IndexerPositions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_indexer_positions_total",
		Help: "Number of positions written",
	}, []string{"ticker"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_http_requests_total",
		Help: "Number of HTTP requests served",
	}, []string{"method", "route", "status"})
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atlas_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer returns a server that only serves /metrics on addr
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
