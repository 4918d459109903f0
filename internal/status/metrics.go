package status

import "github.com/prometheus/client_golang/prometheus"

var phaseEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "localcode",
		Subsystem: "status",
		Name:      "phase_events_total",
		Help:      "Phase events classified from server logs",
	},
	[]string{"kind"},
)

func init() {
	prometheus.MustRegister(phaseEventsTotal)
}
