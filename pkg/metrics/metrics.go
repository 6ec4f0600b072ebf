// Package metrics provides Prometheus instrumentation.
//
// It pre-defines the standard HTTP metrics plus the store's business
// counters (logins, registrations, orders, stock conflicts).
//
// Wire it up once in the server:
//
//	r.Use(metrics.Middleware())
//	r.Get("/metrics", "metrics", metrics.Handler())
//
// Then scrape http://localhost:8080/metrics from Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bazario"

func counter(sub, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: sub, Name: name, Help: help,
	})
}

func counterVec(sub, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: sub, Name: name, Help: help,
	}, labels)
}

func histogramVec(sub, name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: sub, Name: name, Help: help,
		Buckets: prometheus.DefBuckets,
	}, labels)
}

var (
	// RequestDuration tracks how long each HTTP request takes,
	// broken down by method, route path, and status code.
	RequestDuration = histogramVec("http", "request_duration_seconds",
		"Duration of HTTP requests in seconds.", "method", "path", "status")

	// RequestTotal counts all HTTP requests.
	RequestTotal = counterVec("http", "requests_total",
		"Total number of HTTP requests.", "method", "path", "status")

	// RequestInFlight tracks how many requests are currently being served.
	RequestInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
		Help: "Number of HTTP requests currently being served.",
	})

	// LoginsTotal counts password login attempts; result is "success" or
	// "failure".
	LoginsTotal = counterVec("auth", "logins_total",
		"Total password login attempts.", "result")

	// RegistrationsTotal counts successful account creations.
	RegistrationsTotal = counter("auth", "registrations_total",
		"Total accounts created.")

	// OrdersPlacedTotal counts successfully committed orders.
	OrdersPlacedTotal = counter("orders", "placed_total",
		"Total orders committed.")

	// OrderConflictsTotal counts stock races that forced a placement retry.
	OrderConflictsTotal = counter("orders", "conflicts_total",
		"Total stock conflicts hit during order placement.")

	// QueueJobsProcessed counts processed queue jobs; status is "success"
	// or "failed".
	QueueJobsProcessed = counterVec("queue", "jobs_processed_total",
		"Total queue jobs processed.", "status")

	// QueueJobDuration tracks how long queue jobs take.
	QueueJobDuration = histogramVec("queue", "job_duration_seconds",
		"Duration of queue job processing in seconds.", "job_type")

	// CacheHits / CacheMisses track cache effectiveness per driver.
	CacheHits = counterVec("cache", "hits_total",
		"Total cache hits.", "driver")
	CacheMisses = counterVec("cache", "misses_total",
		"Total cache misses.", "driver")
)

// DefaultRegistry is the Prometheus registry used by the app.
// Register your own metrics against this.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RequestDuration, RequestTotal, RequestInFlight,
		LoginsTotal, RegistrationsTotal,
		OrdersPlacedTotal, OrderConflictsTotal,
		QueueJobsProcessed, QueueJobDuration,
		CacheHits, CacheMisses,
	)
}

// Register adds a prometheus.Collector to the registry.
func Register(c prometheus.Collector) error {
	return DefaultRegistry.Register(c)
}

// MustRegister panics if registration fails.
func MustRegister(c ...prometheus.Collector) {
	DefaultRegistry.MustRegister(c...)
}

// responseRecorder wraps http.ResponseWriter to capture status and size.
type responseRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// Middleware records the duration histogram, total counter, and in-flight
// gauge for every request.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			// Raw path; normalize first in high-cardinality APIs.
			path := r.URL.Path

			RequestInFlight.Inc()
			defer RequestInFlight.Dec()

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			code := strconv.Itoa(rec.status)
			RequestDuration.WithLabelValues(r.Method, path, code).Observe(time.Since(began).Seconds())
			RequestTotal.WithLabelValues(r.Method, path, code).Inc()
		})
	}
}

// Handler serves the Prometheus metrics page. Mount it on GET /metrics.
func Handler() http.HandlerFunc {
	h := promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	return h.ServeHTTP
}

// RecordQueueJob records one queue job outcome.
func RecordQueueJob(jobType, status string, start time.Time) {
	QueueJobsProcessed.WithLabelValues(status).Inc()
	QueueJobDuration.WithLabelValues(jobType).Observe(time.Since(start).Seconds())
}
