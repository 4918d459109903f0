package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"localcode/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() ([]types.Model, error)
	Status(ctx context.Context) (types.StatusResponse, error)
	Ready() bool
	// Subscribe delivers future phase events until cancel is called.
	Subscribe(buf int) (<-chan types.PhaseEvent, func())
}

// sseKeepAlive is the interval between comment frames on /events.
var sseKeepAlive = 15 * time.Second

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	if o := corsOpts; o != nil {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: o.Origins,
			AllowedMethods: o.Methods,
			AllowedHeaders: o.Headers,
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		models, err := svc.ListModels()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"models": models})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Status(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, st)
	})

	r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}
		ctx, cancel := streamContext(r)
		defer cancel()
		events, unsubscribe := svc.Subscribe(32)
		defer unsubscribe()
		sseClients.Inc()
		defer sseClients.Dec()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		tick := time.NewTicker(sseKeepAlive)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case ev, ok := <-events:
				if !ok {
					return
				}
				b, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, b)
				flusher.Flush()
			}
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
