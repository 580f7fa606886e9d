package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghostlink/bridge-stack/collector/internal/handlers"
	"github.com/ghostlink/bridge-stack/common/middleware"
)

// NewRouter constructs a ServeMux with all collector routes registered.
func NewRouter(bridge *handlers.BridgeHandler, worker *handlers.WorkerHandler, events *handlers.EventsHandler, dlq *handlers.DLQHandler, health *handlers.HealthHandler) http.Handler {
	mux := http.NewServeMux()

	// Public collector endpoints, called by the tracking script
	mux.HandleFunc("GET /api/bridge/{script_id}/token", bridge.HandleToken)
	mux.HandleFunc("GET /api/bridge/{script_id}/event", bridge.HandleLegacyEvent)
	mux.HandleFunc("POST /api/bridge/{script_id}/events", bridge.HandleBatch)

	// Operator endpoints
	mux.HandleFunc("POST /api/worker/run", worker.HandleRun)
	mux.HandleFunc("GET /api/events", events.HandleList)
	mux.HandleFunc("GET /api/dlq", dlq.HandleList)
	mux.HandleFunc("GET /api/dlq/stats", dlq.HandleStats)
	mux.HandleFunc("DELETE /api/dlq", dlq.HandlePurge)

	// Health endpoints
	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("GET /readyz", health.Ready)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	// Beacons arrive from arbitrary customer origins; auth is the event
	// token, not cookies, so no credentials are allowed.
	cors := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: false,
	})

	return middleware.RequestID(cors(mux))
}
