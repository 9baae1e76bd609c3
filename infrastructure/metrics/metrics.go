// Package metrics provides Prometheus metrics collection and a small
// alert-rule engine that evaluates gauges/counters on a schedule and emits
// domain events when thresholds are crossed.
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/careerhub/hub/infrastructure/runtime"
)

// Metrics holds all Prometheus metrics exposed by the Hub.
type Metrics struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Energy ledger metrics (4.F)
	EnergyTransactionsTotal *prometheus.CounterVec
	EnergyBalanceGauge      *prometheus.GaugeVec
	EnergyTransactionAmount *prometheus.HistogramVec

	// Action Gate metrics (4.I)
	GateDecisionsTotal *prometheus.CounterVec

	// Resilience metrics (4.B / 4.C)
	CircuitBreakerState   *prometheus.GaugeVec
	RateLimitRejections   *prometheus.CounterVec
	UpstreamCallDuration  *prometheus.HistogramVec
	UpstreamCallsTotal    *prometheus.CounterVec

	// Fallback metrics (cache tier / rate limiter degrading to in-process mode)
	CacheFallbackTotal      prometheus.Counter
	RateLimitFallbackTotal  *prometheus.CounterVec

	// Database metrics
	DatabaseQueriesTotal    *prometheus.CounterVec
	DatabaseQueryDuration   *prometheus.HistogramVec
	DatabaseConnectionsOpen prometheus.Gauge

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a new Metrics instance with all collectors registered against
// the default Prometheus registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry.
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors",
			},
			[]string{"service", "type", "operation"},
		),

		EnergyTransactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energy_transactions_total",
				Help: "Total number of energy ledger transactions",
			},
			[]string{"action", "status"},
		),
		EnergyBalanceGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "energy_balance_last_observed",
				Help: "Most recently observed energy balance for a sampled user bucket",
			},
			[]string{"bucket"},
		),
		EnergyTransactionAmount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "energy_transaction_amount",
				Help:    "Distribution of energy transaction amounts",
				Buckets: []float64{1, 5, 10, 15, 25, 35, 50, 100},
			},
			[]string{"action"},
		),

		GateDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gate_decisions_total",
				Help: "Total number of Action Gate authorization decisions",
			},
			[]string{"action", "allowed", "reason"},
		),

		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"circuit"},
		),
		RateLimitRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_rejections_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"scope", "algorithm"},
		),
		UpstreamCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_call_duration_seconds",
				Help:    "Duration of calls to upstream providers (AI, payment)",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"target", "operation"},
		),
		UpstreamCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_calls_total",
				Help: "Total number of calls to upstream providers",
			},
			[]string{"target", "operation", "status"},
		),

		CacheFallbackTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_fallback_total",
				Help: "Total number of reads served by the in-process LRU fallback instead of Redis",
			},
		),
		RateLimitFallbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_fallback_total",
				Help: "Total number of rate-limit checks served by the in-process fallback instead of Redis",
			},
			[]string{"scope"},
		),

		DatabaseQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_queries_total",
				Help: "Total number of database queries",
			},
			[]string{"service", "operation", "status"},
		),
		DatabaseQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "database_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"service", "operation"},
		),
		DatabaseConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "database_connections_open",
				Help: "Current number of open database connections",
			},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "service_info",
				Help: "Service information",
			},
			[]string{"service", "version", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.ErrorsTotal,
			m.EnergyTransactionsTotal,
			m.EnergyBalanceGauge,
			m.EnergyTransactionAmount,
			m.GateDecisionsTotal,
			m.CircuitBreakerState,
			m.RateLimitRejections,
			m.UpstreamCallDuration,
			m.UpstreamCallsTotal,
			m.CacheFallbackTotal,
			m.RateLimitFallbackTotal,
			m.DatabaseQueriesTotal,
			m.DatabaseQueryDuration,
			m.DatabaseConnectionsOpen,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0", getEnvironment()).Set(1)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordError records an error
func (m *Metrics) RecordError(service, errorType, operation string) {
	m.ErrorsTotal.WithLabelValues(service, errorType, operation).Inc()
}

// RecordEnergyTransaction records an energy ledger mutation (consume/refund/purchase/bonus).
func (m *Metrics) RecordEnergyTransaction(action, status string, amount int) {
	m.EnergyTransactionsTotal.WithLabelValues(action, status).Inc()
	if amount > 0 {
		m.EnergyTransactionAmount.WithLabelValues(action).Observe(float64(amount))
	}
}

// ObserveEnergyBalance samples a user's balance into a coarse bucket gauge
// (e.g. "0-10", "11-25") used for dashboard distribution panels.
func (m *Metrics) ObserveEnergyBalance(bucket string, balance int) {
	m.EnergyBalanceGauge.WithLabelValues(bucket).Set(float64(balance))
}

// RecordGateDecision records an Action Gate authorization decision.
func (m *Metrics) RecordGateDecision(action string, allowed bool, reason string) {
	m.GateDecisionsTotal.WithLabelValues(action, boolLabel(allowed), reason).Inc()
}

// SetCircuitBreakerState records the current state of a named circuit breaker.
func (m *Metrics) SetCircuitBreakerState(circuit string, state int) {
	m.CircuitBreakerState.WithLabelValues(circuit).Set(float64(state))
}

// IncCacheFallback records a cache read served by the in-process LRU
// fallback because Redis was unreachable.
func (m *Metrics) IncCacheFallback() {
	m.CacheFallbackTotal.Inc()
}

// IncRateLimitFallback records a rate-limit check served by the
// in-process fallback for scope because Redis was unreachable.
func (m *Metrics) IncRateLimitFallback(scope string) {
	m.RateLimitFallbackTotal.WithLabelValues(scope).Inc()
}

// RecordRateLimitRejection records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimitRejection(scope, algorithm string) {
	m.RateLimitRejections.WithLabelValues(scope, algorithm).Inc()
}

// RecordUpstreamCall records a call to an upstream dependency (AI provider, payment provider).
func (m *Metrics) RecordUpstreamCall(target, operation, status string, duration time.Duration) {
	m.UpstreamCallsTotal.WithLabelValues(target, operation, status).Inc()
	m.UpstreamCallDuration.WithLabelValues(target, operation).Observe(duration.Seconds())
}

// RecordDatabaseQuery records a database query
func (m *Metrics) RecordDatabaseQuery(service, operation, status string, duration time.Duration) {
	m.DatabaseQueriesTotal.WithLabelValues(service, operation, status).Inc()
	m.DatabaseQueryDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// SetDatabaseConnections sets the number of open database connections
func (m *Metrics) SetDatabaseConnections(count int) {
	m.DatabaseConnectionsOpen.Set(float64(count))
}

// UpdateUptime updates the service uptime
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

// IncrementInFlight increments the in-flight requests counter
func (m *Metrics) IncrementInFlight() {
	m.RequestsInFlight.Inc()
}

// DecrementInFlight decrements the in-flight requests counter
func (m *Metrics) DecrementInFlight() {
	m.RequestsInFlight.Dec()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Helper functions

func getEnvironment() string {
	return string(runtime.Env())
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults:
// - production: disabled unless explicitly enabled via METRICS_ENABLED
// - non-production: enabled unless explicitly disabled via METRICS_ENABLED
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return !runtime.IsProduction()
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Global metrics instance
var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
