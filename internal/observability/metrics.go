package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the prometheus collectors for the HTTP surface and the build domain. Each
// instance registers into its own registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	httpInflight  prometheus.Gauge
	specsImported *prometheus.CounterVec
	buildStatus   *prometheus.CounterVec
	cascades      prometheus.Counter
	upsertRetries *prometheus.CounterVec
	writeOps      *prometheus.HistogramVec
	writeFailures *prometheus.CounterVec
	logsParsed    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spackmon", Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spackmon", Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spackmon", Name: "http_inflight_requests",
			Help: "Requests currently being served.",
		}),
		specsImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spackmon", Name: "specs_imported_total",
			Help: "Configuration imports by whether the root spec was created.",
		}, []string{"created"}),
		buildStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spackmon", Name: "build_status_total",
			Help: "Build status transitions by target status.",
		}, []string{"status"}),
		cascades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spackmon", Name: "cascade_cancellations_total",
			Help: "Dependency builds cancelled by a failing dependent.",
		}),
		upsertRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spackmon", Name: "upsert_conflict_retries_total",
			Help: "find-or-insert calls that lost an insert race and re-fetched.",
		}, []string{"table"}),
		writeOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spackmon", Name: "write_operation_duration_seconds",
			Help:    "Transactional write latency by operation and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		writeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spackmon", Name: "write_failures_total",
			Help: "Transactional writes that failed, by operation and error class.",
		}, []string{"op", "class"}),
		logsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spackmon", Name: "log_events_parsed_total",
			Help: "Errors and warnings extracted from phase output.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.httpRequests, m.httpLatency, m.httpInflight, m.specsImported, m.buildStatus,
		m.cascades, m.upsertRetries, m.writeOps, m.writeFailures, m.logsParsed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) IncInflight() {
	if m != nil {
		m.httpInflight.Inc()
	}
}

func (m *Metrics) DecInflight() {
	if m != nil {
		m.httpInflight.Dec()
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) IncSpecImport(created bool) {
	if m != nil {
		m.specsImported.WithLabelValues(strconv.FormatBool(created)).Inc()
	}
}

func (m *Metrics) IncBuildStatus(status string) {
	if m != nil {
		m.buildStatus.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) AddCascadeCancellations(n int) {
	if m != nil && n > 0 {
		m.cascades.Add(float64(n))
	}
}

func (m *Metrics) IncUpsertRetry(table string) {
	if m != nil {
		m.upsertRetries.WithLabelValues(table).Inc()
	}
}

func (m *Metrics) ObserveWrite(op, status string, dur time.Duration) {
	if m != nil {
		m.writeOps.WithLabelValues(op, status).Observe(dur.Seconds())
	}
}

func (m *Metrics) IncWriteFailure(op, class string) {
	if m != nil {
		m.writeFailures.WithLabelValues(op, class).Inc()
	}
}

func (m *Metrics) AddLogEvents(kind string, n int) {
	if m != nil && n > 0 {
		m.logsParsed.WithLabelValues(kind).Add(float64(n))
	}
}
