package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/resolver"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Resolution metrics
	ResolveTotal    *prometheus.CounterVec
	ResolveDuration *prometheus.HistogramVec
	InterceptTotal  *prometheus.CounterVec

	// Update metrics
	UpdateActive    prometheus.Gauge
	VersionSwitches prometheus.Counter
	InstallsTotal   *prometheus.CounterVec

	// HTTP bridge metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the admin JSON API
type Snapshot struct {
	Served      int64 `json:"served"`
	FellThrough int64 `json:"fell_through"`
	Unbound     int64 `json:"unbound"`
	Panics      int64 `json:"panics"`
}

// Intercept results recorded by RecordIntercept.
const (
	InterceptServed      = "served"
	InterceptFallthrough = "fallthrough"
	InterceptUnbound     = "unbound"
)

// NewMetrics creates a metrics collector registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ResolveTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webshell_resolve_total",
				Help: "Resolver outcomes per consulted resolver",
			},
			[]string{"resolver", "outcome"},
		),
		ResolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webshell_resolve_duration_seconds",
				Help:    "Time spent in a single resolver",
				Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
			},
			[]string{"resolver"},
		),
		InterceptTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webshell_intercept_total",
				Help: "Intercepted requests by result",
			},
			[]string{"result"},
		),
		UpdateActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webshell_update_active",
				Help: "1 when an update bundle is active",
			},
		),
		VersionSwitches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webshell_version_switches_total",
				Help: "Number of active update bundle changes",
			},
		),
		InstallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webshell_update_installs_total",
				Help: "Update bundle installs by status",
			},
			[]string{"status"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webshell_http_requests_total",
				Help: "Total number of bridge HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webshell_http_request_duration_seconds",
				Help:    "Bridge HTTP request duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveResolve implements resolver.Observer.
func (m *Metrics) ObserveResolve(name string, outcome resolver.Outcome, elapsed time.Duration) {
	m.ResolveTotal.WithLabelValues(name, string(outcome)).Inc()
	m.ResolveDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if outcome == resolver.OutcomePanic {
		m.mu.Lock()
		m.snapshot.Panics++
		m.mu.Unlock()
	}
}

// RecordIntercept records the final result of one intercepted request.
func (m *Metrics) RecordIntercept(result string) {
	m.InterceptTotal.WithLabelValues(result).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	switch result {
	case InterceptServed:
		m.snapshot.Served++
	case InterceptFallthrough:
		m.snapshot.FellThrough++
	case InterceptUnbound:
		m.snapshot.Unbound++
	}
}

// SetActiveVersion records whether an update bundle is active.
func (m *Metrics) SetActiveVersion(version string) {
	if version == "" {
		m.UpdateActive.Set(0)
	} else {
		m.UpdateActive.Set(1)
	}
	m.VersionSwitches.Inc()
}

// RecordInstall records the result of an update bundle install.
func (m *Metrics) RecordInstall(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.InstallsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records bridge request metrics
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Snapshot returns the current counters for the admin API.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
