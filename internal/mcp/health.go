package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the JSON body of the health check endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Qdrant     string `json:"qdrant"`
	Collection string `json:"collection"`
	Timestamp  string `json:"timestamp"`
}

// HealthChecker is the store surface the health endpoint probes.
// *storage.QdrantStore satisfies it.
type HealthChecker interface {
	Health(ctx context.Context) error
	Collection() string
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// It reports Qdrant connectivity and the serving collection, with a 503
// when the store is unreachable so orchestrators restart or reroute.
func NewHealthHandler(store HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Collection: store.Collection(),
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}
		w.Header().Set("Content-Type", "application/json")

		if err := store.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Qdrant = "disconnected"
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(response)
			return
		}

		response.Status = "healthy"
		response.Qdrant = "connected"
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}
