package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/radpushman/ct-knowledge/internal/storage"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Index     string `json:"index,omitempty"`
	Documents int    `json:"documents"`
	Timestamp string `json:"timestamp"`
}

// StoreChecker is the document store as seen by the health check.
type StoreChecker interface {
	Health() error
	Stats() storage.Stats
}

// IndexChecker is the optional semantic index.
type IndexChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// An unwritable store is unhealthy (503); an unreachable index only
// degrades the status since search falls back to keywords.
func NewHealthHandler(store StoreChecker, index IndexChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Create context with 3-second timeout for health check
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Store:     "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK

		if err := store.Health(); err != nil {
			response.Status = "unhealthy"
			response.Store = "unwritable"
			status = http.StatusServiceUnavailable
		} else {
			response.Documents = store.Stats().Total
		}

		if index != nil {
			response.Index = "connected"
			if err := index.Health(ctx); err != nil {
				response.Index = "disconnected"
				if status == http.StatusOK {
					response.Status = "degraded"
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}
}
