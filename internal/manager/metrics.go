package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	launchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localcode",
			Subsystem: "manager",
			Name:      "launch_attempts_total",
			Help:      "Container launch attempts by variant and result",
		},
		[]string{"variant", "result"}, // variant: gpu|cpu, result: ok|error
	)

	fallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "localcode",
			Subsystem: "manager",
			Name:      "accelerator_fallbacks_total",
			Help:      "Launches retried without accelerator after a driver failure",
		},
	)

	stopsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localcode",
			Subsystem: "manager",
			Name:      "stops_total",
			Help:      "Stop requests by result",
		},
		[]string{"result"}, // removed|absent|error
	)
)

func init() {
	prometheus.MustRegister(launchAttemptsTotal, fallbacksTotal, stopsTotal)
}
