package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "render_engine",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "render_engine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "render_engine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	routeResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "render_engine",
			Subsystem: "router",
			Name:      "resolutions_total",
			Help:      "Total number of route resolutions by outcome.",
		},
		[]string{"outcome"},
	)

	renderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "render_engine",
			Subsystem: "render",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of full render pipelines.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"outcome"},
	)

	dynamicDataFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "render_engine",
			Subsystem: "dyndata",
			Name:      "fetches_total",
			Help:      "Total number of dynamic-data fetches.",
		},
		[]string{"provider", "success"},
	)

	cacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "render_engine",
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Total number of catalog cache hits and misses.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		routeResolutions,
		renderDuration,
		dynamicDataFetches,
		cacheOps,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordResolution records the outcome of one route resolution.
func RecordResolution(outcome string) {
	routeResolutions.WithLabelValues(outcome).Inc()
}

// RecordRender records the outcome and duration of one full render pipeline.
func RecordRender(outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	renderDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordDynamicDataFetch records one dynamic-data provider dispatch.
func RecordDynamicDataFetch(provider string, success bool) {
	if provider == "" {
		provider = "unknown"
	}
	result := "false"
	if success {
		result = "true"
	}
	dynamicDataFetches.WithLabelValues(provider, result).Inc()
}

// RecordCacheOp records a catalog cache hit or miss.
func RecordCacheOp(result string) {
	cacheOps.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "v1" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/v1"
	}
	// Collapse IDs and slugs so label cardinality stays bounded.
	if len(parts) == 2 {
		return "/v1/" + parts[1]
	}
	return "/v1/" + parts[1] + "/:id"
}
