package session

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backend label values.
const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

// Operation label values.
const (
	opSave   = "save"
	opRemove = "remove"
	opFind   = "find"
	opList   = "list"
	opPing   = "ping"
)

// Metrics holds Prometheus metrics for session repository operations.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	scavengedTotal    prometheus.Counter
	corruptTotal      prometheus.Counter
	memorySessions    prometheus.Gauge
	breakerState      *prometheus.GaugeVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton session metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics()
	})
	return metricsInstance
}

// MustRegister registers the session collectors with registry, for
// processes that serve /metrics from a registry other than the default.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.operationsTotal,
		m.errorsTotal,
		m.operationDuration,
		m.scavengedTotal,
		m.corruptTotal,
		m.memorySessions,
		m.breakerState,
	)
}

// Init pre-creates every label combination so series appear at zero.
func (m *Metrics) Init() {
	for _, backend := range []string{backendMemory, backendRedis} {
		for _, op := range []string{opSave, opRemove, opFind, opList, opPing} {
			m.operationsTotal.WithLabelValues(backend, op)
			m.errorsTotal.WithLabelValues(backend, op)
			m.operationDuration.WithLabelValues(backend, op)
		}
	}
}

func newMetrics() *Metrics {
	return &Metrics{
		operationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sessiongate",
				Subsystem: "sessions",
				Name:      "operations_total",
				Help:      "Total number of session repository operations",
			},
			[]string{"backend", "operation"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sessiongate",
				Subsystem: "sessions",
				Name:      "errors_total",
				Help:      "Total number of failed session repository operations",
			},
			[]string{"backend", "operation"},
		),
		operationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sessiongate",
				Subsystem: "sessions",
				Name:      "operation_duration_seconds",
				Help:      "Duration of session repository operations",
				Buckets: []float64{
					.0001, .0005, .001, .005,
					.01, .025, .05, .1, .5,
				},
			},
			[]string{"backend", "operation"},
		),
		scavengedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sessiongate",
				Subsystem: "sessions",
				Name:      "scavenged_total",
				Help:      "Total number of expired in-process sessions removed by the scavenger",
			},
		),
		corruptTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sessiongate",
				Subsystem: "sessions",
				Name:      "corrupt_records_total",
				Help:      "Total number of undecodable remote session records deleted on read",
			},
		),
		memorySessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sessiongate",
				Subsystem: "sessions",
				Name:      "memory_sessions",
				Help:      "Number of sessions held by in-process repositories, expired ones included",
			},
		),
		breakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sessiongate",
				Subsystem: "sessions",
				Name:      "circuit_breaker_state",
				Help:      "Current state of the session store circuit breaker (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}
}
