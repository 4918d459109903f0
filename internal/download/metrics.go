package download

import "github.com/prometheus/client_golang/prometheus"

var (
	filesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localcode",
			Subsystem: "download",
			Name:      "files_total",
			Help:      "Model files processed by the download orchestrator",
		},
		[]string{"result"}, // complete|cached|skipped|failed
	)

	bytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "localcode",
			Subsystem: "download",
			Name:      "bytes_total",
			Help:      "Bytes fetched from the hub",
		},
	)
)

func init() {
	prometheus.MustRegister(filesTotal, bytesTotal)
}
