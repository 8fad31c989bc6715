package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status         string `json:"status"`
	Store          string `json:"store"`
	Backend        string `json:"backend"`
	Chunks         int    `json:"chunks"`
	EmbeddingModel string `json:"embedding_model"`
	Timestamp      string `json:"timestamp"`
}

// handleHealth checks vector store connectivity and reports index stats.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Store:     "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if err := s.store.Health(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		response.Status = "unhealthy"
		response.Store = "disconnected"
		status = http.StatusServiceUnavailable
	}

	if stats, err := s.store.Stats(ctx); err == nil {
		response.Backend = stats.Backend
		response.Chunks = stats.Chunks
		response.EmbeddingModel = stats.EmbeddingModel
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
