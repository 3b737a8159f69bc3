package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireCounter tracks the number of successful lock acquisitions.
	AcquireCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_acquire_total",
		Help: "Total number of successful guard acquisitions",
	})
	// ReleaseCounter tracks the number of lock releases.
	ReleaseCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_release_total",
		Help: "Total number of guard releases",
	})
	// ContentionCounter tracks acquisition attempts that found the lock held.
	ContentionCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_contention_total",
		Help: "Total number of acquisition attempts that hit a held lock",
	})
	// ActiveGauge reports the number of currently live accessors.
	ActiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guard_active_accessors",
		Help: "Current number of live accessors",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterGuardMetrics registers the guard metrics on the provided registry.
func RegisterGuardMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AcquireCounter, ReleaseCounter, ContentionCounter, ActiveGauge)
}
