package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/pkg/api/handlers"
	"github.com/marmos91/pushstore/pkg/metrics"
)

// NewRouter creates the chi router.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe: every ACTIVE service is UP
//   - GET /services - Status of every registered service
//   - GET /services/{name} - Status of one service
//   - GET /metrics - Prometheus metrics, when metrics are enabled
func NewRouter(registry handlers.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	health := handlers.NewHealthHandler(registry)
	services := handlers.NewServicesHandler(registry)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})
	r.Route("/services", func(r chi.Router) {
		r.Get("/", services.List)
		r.Get("/{name}", services.Get)
	})
	if metrics.IsEnabled() {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs each request through the internal logger: start at
// DEBUG, completion at DEBUG for probes and INFO otherwise.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("HTTP request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log := logger.Info
		if r.URL.Path == "/metrics" || r.URL.Path == "/health" || r.URL.Path == "/health/ready" {
			log = logger.Debug
		}
		log("HTTP request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start),
		)
	})
}
