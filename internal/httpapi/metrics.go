package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localcode",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Status surface requests by route, method and code",
		},
		[]string{"route", "method", "code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "localcode",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status surface request latency; /events counts the whole stream",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	sseClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "localcode",
			Subsystem: "http",
			Name:      "event_stream_clients",
			Help:      "Connected /events subscribers",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, sseClients)
}

// MetricsMiddleware records request counts and latency per chi route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		route := routeLabel(r)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(code)).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// routeLabel keeps label cardinality bounded: unmatched paths share one label.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
