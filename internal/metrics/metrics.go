// Package metrics exposes Prometheus collectors for the scheduler and
// consolidator, plus an optional listener for scraping during long runs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics bundles the collectors on a private registry so two instances
// never fight over global registration.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal      *prometheus.CounterVec
	QueueSize          prometheus.Gauge
	SearchDuration     prometheus.Histogram
	MergeWinnersTotal  *prometheus.CounterVec
	SnapshotsReadTotal prometheus.Counter
}

// New builds the collector set.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schwordcloud_searches_total",
				Help: "Search attempts by outcome.",
			},
			[]string{"status"},
		),
		QueueSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "schwordcloud_queue_size",
				Help: "Number of eligible certification numbers in the current run.",
			},
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "schwordcloud_search_duration_seconds",
				Help:    "Latency of individual search calls.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		MergeWinnersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schwordcloud_merge_winners_total",
				Help: "Consolidation winners by origin.",
			},
			[]string{"origin"},
		),
		SnapshotsReadTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "schwordcloud_snapshots_read_total",
				Help: "Shared snapshots read during consolidation.",
			},
		),
	}
	registry.MustRegister(
		m.SearchesTotal,
		m.QueueSize,
		m.SearchDuration,
		m.MergeWinnersTotal,
		m.SnapshotsReadTotal,
	)
	return m
}

// Handler returns the scrape handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs a /metrics listener until the context ends. Listener errors
// are logged, not fatal: metrics are an aid, not a dependency of the run.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics listener shutdown", zap.Error(err))
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics listener failed", zap.Error(err))
	}
}
