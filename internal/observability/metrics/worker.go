package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	syncTotal        *prometheus.CounterVec
	syncDuration     *prometheus.HistogramVec
	syncInFlight     prometheus.Gauge
	recipesParsed    prometheus.Counter
	recipesEnriched  prometheus.Counter
	enrichFailures   prometheus.Counter
	cacheLookupTotal *prometheus.CounterVec
	providerCalls    prometheus.Counter
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	syncTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipeagent",
			Subsystem: "worker",
			Name:      "sync_pass_total",
			Help:      "Total sync passes by outcome.",
		},
		[]string{"service", "status"},
	)
	syncDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recipeagent",
			Subsystem: "worker",
			Name:      "sync_pass_duration_seconds",
			Help:      "Sync pass duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	syncInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "recipeagent",
			Subsystem: "worker",
			Name:      "sync_pass_in_flight",
			Help:      "Number of in-flight sync passes.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	recipesParsed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipeagent",
			Subsystem: "worker",
			Name:      "recipes_parsed_total",
			Help:      "Total recipes produced by the block parser.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	recipesEnriched := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipeagent",
			Subsystem: "worker",
			Name:      "recipes_enriched_total",
			Help:      "Total recipes successfully enriched.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	enrichFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipeagent",
			Subsystem: "worker",
			Name:      "enrichment_failures_total",
			Help:      "Total recipes left incomplete after the provider chain.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	cacheLookupTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipeagent",
			Subsystem: "worker",
			Name:      "enrichment_cache_lookups_total",
			Help:      "Enrichment cache lookups by result.",
		},
		[]string{"service", "result"},
	)
	providerCalls := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipeagent",
			Subsystem: "worker",
			Name:      "provider_calls_total",
			Help:      "Total upstream enrichment provider calls.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(syncTotal, syncDuration, syncInFlight, recipesParsed, recipesEnriched, enrichFailures, cacheLookupTotal, providerCalls)

	return &WorkerMetrics{
		registry:         registry,
		syncTotal:        syncTotal,
		syncDuration:     syncDuration,
		syncInFlight:     syncInFlight,
		recipesParsed:    recipesParsed,
		recipesEnriched:  recipesEnriched,
		enrichFailures:   enrichFailures,
		cacheLookupTotal: cacheLookupTotal,
		providerCalls:    providerCalls,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartSyncPass() {
	m.syncInFlight.Inc()
}

func (m *WorkerMetrics) FinishSyncPass(service string, duration time.Duration, err error) {
	m.syncInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.syncTotal.WithLabelValues(service, status).Inc()
	m.syncDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

// RecordSyncReport folds one finished pass into the counters.
func (m *WorkerMetrics) RecordSyncReport(service string, report *domain.SyncReport) {
	if report == nil {
		return
	}
	m.recipesParsed.Add(float64(report.Parsed))
	m.recipesEnriched.Add(float64(report.Enriched))
	m.enrichFailures.Add(float64(report.Failed))
	m.providerCalls.Add(float64(report.ProviderCalls))
	m.cacheLookupTotal.WithLabelValues(service, "hit").Add(float64(report.CacheHits))
	misses := report.ProviderCalls
	if misses > 0 {
		m.cacheLookupTotal.WithLabelValues(service, "miss").Add(float64(misses))
	}
}
