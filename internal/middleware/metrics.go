package middleware

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Subject state label values.
const (
	stateAuthenticated = "authenticated"
	stateAnonymous     = "anonymous"
)

// MiddlewareMetrics holds Prometheus metrics for the request boundary.
type MiddlewareMetrics struct {
	subjectsInstalled *prometheus.CounterVec
	enterFailures     prometheus.Counter
	exitFailures      prometheus.Counter
	enterDuration     prometheus.Histogram
	panicsRecovered   prometheus.Counter
}

var (
	middlewareMetrics     *MiddlewareMetrics
	middlewareMetricsOnce sync.Once
)

// GetMiddlewareMetrics returns the singleton middleware metrics
// instance.
func GetMiddlewareMetrics() *MiddlewareMetrics {
	middlewareMetricsOnce.Do(func() {
		middlewareMetrics = newMiddlewareMetrics()
	})
	return middlewareMetrics
}

// MustRegister registers the middleware collectors with registry.
func (m *MiddlewareMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.subjectsInstalled,
		m.enterFailures,
		m.exitFailures,
		m.enterDuration,
		m.panicsRecovered,
	)
}

// Init pre-creates every label combination so series appear at zero.
func (m *MiddlewareMetrics) Init() {
	m.subjectsInstalled.WithLabelValues(stateAuthenticated)
	m.subjectsInstalled.WithLabelValues(stateAnonymous)
}

func newMiddlewareMetrics() *MiddlewareMetrics {
	return &MiddlewareMetrics{
		subjectsInstalled: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sessiongate",
				Subsystem: "boundary",
				Name:      "subjects_installed_total",
				Help: "Total number of subjects installed " +
					"by the request boundary",
			},
			[]string{"state"},
		),
		enterFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sessiongate",
				Subsystem: "boundary",
				Name:      "enter_failures_total",
				Help: "Total number of requests rejected " +
					"because their sessions could not be resolved",
			},
		),
		exitFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sessiongate",
				Subsystem: "boundary",
				Name:      "exit_failures_total",
				Help: "Total number of panics recovered " +
					"while clearing a subject registry",
			},
		),
		enterDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "sessiongate",
				Subsystem: "boundary",
				Name:      "enter_duration_seconds",
				Help:      "Duration of subject installation",
				Buckets: []float64{
					.0001, .0005, .001, .005,
					.01, .025, .05, .1, .5,
				},
			},
		),
		panicsRecovered: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sessiongate",
				Subsystem: "middleware",
				Name:      "panics_recovered_total",
				Help: "Total number of panics " +
					"recovered",
			},
		),
	}
}
