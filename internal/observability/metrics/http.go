package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	planRequestsTotal *prometheus.CounterVec
	planResultCount   *prometheus.HistogramVec
	planNoMatchTotal  *prometheus.CounterVec
	planDuration      *prometheus.HistogramVec
	chatIntentsTotal  *prometheus.CounterVec
	syncRequestsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipeagent",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recipeagent",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "recipeagent",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	planRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipeagent",
			Subsystem: "plan",
			Name:      "requests_total",
			Help:      "Total successful plan requests.",
		},
		[]string{"service", "endpoint"},
	)
	planResultCount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recipeagent",
			Subsystem: "plan",
			Name:      "result_count",
			Help:      "Distribution of ranked results per successful plan request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service", "endpoint"},
	)
	planNoMatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipeagent",
			Subsystem: "plan",
			Name:      "no_match_total",
			Help:      "Total plan requests with an empty result list.",
		},
		[]string{"service", "endpoint"},
	)
	planDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recipeagent",
			Subsystem: "plan",
			Name:      "duration_seconds",
			Help:      "Plan execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	chatIntentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipeagent",
			Subsystem: "chat",
			Name:      "intents_total",
			Help:      "Total chat requests by routed intent.",
		},
		[]string{"service", "intent"},
	)
	syncRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipeagent",
			Subsystem: "sync",
			Name:      "requests_total",
			Help:      "Total sync pass requests accepted by the API.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		planRequestsTotal,
		planResultCount,
		planNoMatchTotal,
		planDuration,
		chatIntentsTotal,
		syncRequestsTotal,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		planRequestsTotal: planRequestsTotal,
		planResultCount:   planResultCount,
		planNoMatchTotal:  planNoMatchTotal,
		planDuration:      planDuration,
		chatIntentsTotal:  chatIntentsTotal,
		syncRequestsTotal: syncRequestsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/recipes/"):
		return "/v1/recipes/{recipe_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordPlanObservation(service, endpoint string, resultCount int, duration time.Duration) {
	m.planRequestsTotal.WithLabelValues(service, endpoint).Inc()
	m.planResultCount.WithLabelValues(service, endpoint).Observe(float64(resultCount))
	m.planDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())

	if resultCount == 0 {
		m.planNoMatchTotal.WithLabelValues(service, endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordChatIntent(service, intent string) {
	if intent == "" {
		intent = "unknown"
	}
	m.chatIntentsTotal.WithLabelValues(service, intent).Inc()
}

func (m *HTTPServerMetrics) RecordSyncRequest(service string) {
	m.syncRequestsTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
