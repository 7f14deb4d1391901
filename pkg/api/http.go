package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adntgv/gptree/pkg/api/handlers"
	"github.com/adntgv/gptree/pkg/logger"
	"github.com/adntgv/gptree/pkg/notify"
)

// RateLimitConfig holds per-client request limiting knobs. Zero values
// disable limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Router assembles the full HTTP surface: versioned API routes, the
// websocket push endpoint, health and metrics.
func Router(a *handlers.API, hub *notify.Hub, rl RateLimitConfig) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/v1/events", hub)

	v1 := r.PathPrefix("/v1").Subrouter()
	a.Register(v1)

	var h http.Handler = r
	if rl.RPS > 0 {
		h = rateLimitMiddleware(rl)(h)
	}
	return logMiddleware(h)
}

// logMiddleware logs a concise summary of each incoming request.
func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("incoming_request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
