package server

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse represents a readiness check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady handles GET /ready
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.isReady() {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not_ready",
			Timestamp: time.Now().UTC(),
			Reason:    "server is not serving",
		})
		return
	}

	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.ReadyTimeout)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:    "not_ready",
				Timestamp: time.Now().UTC(),
				Reason:    "cache backend unreachable",
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
	})
}
