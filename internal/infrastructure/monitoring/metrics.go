package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of one bridge instance. Each
// instance owns its registry so several bridges can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Route metrics
	RoutesActive prometheus.Gauge
	RoutesTotal  prometheus.Counter

	// WebSocket metrics
	SocketsActive prometheus.Gauge
	WSMessages    *prometheus.CounterVec
	SendFailures  *prometheus.CounterVec

	// Resource metrics
	ResourcesServed prometheus.Counter
	ResourcesDenied prometheus.Counter

	// Binding metrics
	BindAttempts prometheus.Counter

	startTime time.Time
	snapshot  Snapshot
	mu        sync.RWMutex
}

// Snapshot holds current metric values for tests and status output.
type Snapshot struct {
	TotalRequests   int64
	ActiveRoutes    int64
	ActiveSockets   int64
	ResourcesServed int64
	ResourcesDenied int64
	SendFailures    int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webview_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webview_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),

		RoutesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webview_routes_active",
				Help: "Number of live routes",
			},
		),
		RoutesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webview_routes_total",
				Help: "Total number of routes created",
			},
		),

		SocketsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webview_sockets_active",
				Help: "Number of registered browser sockets",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webview_ws_messages_total",
				Help: "Total number of WebSocket events",
			},
			[]string{"direction", "event"},
		),
		SendFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webview_ws_send_failures_total",
				Help: "Fan-out legs that failed to reach a socket",
			},
			[]string{"event"},
		),

		ResourcesServed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webview_resources_served_total",
				Help: "Local resources served",
			},
		),
		ResourcesDenied: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webview_resources_denied_total",
				Help: "Resource requests rejected by the allow-list",
			},
		),

		BindAttempts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webview_bind_attempts_total",
				Help: "Ports tried while binding the bridge",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "webview_uptime_seconds",
			Help: "Bridge uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler serves this instance's registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, e.g. for testutil.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket event. direction is "in" or "out".
func (m *Metrics) RecordWSMessage(direction, event string) {
	m.WSMessages.WithLabelValues(direction, event).Inc()
}

// RecordSendFailure records a failed fan-out leg.
func (m *Metrics) RecordSendFailure(event string) {
	m.SendFailures.WithLabelValues(event).Inc()
	m.mu.Lock()
	m.snapshot.SendFailures++
	m.mu.Unlock()
}

// SetRoutesActive sets the number of live routes
func (m *Metrics) SetRoutesActive(count int) {
	m.RoutesActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveRoutes = int64(count)
	m.mu.Unlock()
}

// IncRoutesTotal increments the created routes counter
func (m *Metrics) IncRoutesTotal() {
	m.RoutesTotal.Inc()
}

// AddSockets adjusts the registered socket gauge by delta.
func (m *Metrics) AddSockets(delta int) {
	m.SocketsActive.Add(float64(delta))
	m.mu.Lock()
	m.snapshot.ActiveSockets += int64(delta)
	m.mu.Unlock()
}

// IncResourcesServed counts a served resource.
func (m *Metrics) IncResourcesServed() {
	m.ResourcesServed.Inc()
	m.mu.Lock()
	m.snapshot.ResourcesServed++
	m.mu.Unlock()
}

// IncResourcesDenied counts a forbidden resource request.
func (m *Metrics) IncResourcesDenied() {
	m.ResourcesDenied.Inc()
	m.mu.Lock()
	m.snapshot.ResourcesDenied++
	m.mu.Unlock()
}

// IncBindAttempts counts one listen attempt.
func (m *Metrics) IncBindAttempts() {
	m.BindAttempts.Inc()
}

// Snapshot returns the current values.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
