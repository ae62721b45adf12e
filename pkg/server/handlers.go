package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/pokecache/pkg/logging"
	"github.com/Sternrassler/pokecache/pkg/pipeline"
	"github.com/Sternrassler/pokecache/pkg/pokeapi"
)

// WelcomeMessage is returned by GET /.
const WelcomeMessage = "Welcome to pokecache!"

// ChartsCreatedMessage is returned after a successful comparison.
const ChartsCreatedMessage = "Height comparison charts created."

// handleWelcome handles GET /
func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, WelcomeMessage)
}

// handleIngest handles GET /pokemon/{name}
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	doc, err := s.pipeline.Ingest(r.Context(), name)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			s.respondNotFound(w, fmt.Sprintf("Failed to fetch data for %s from the Pokemon API.", pokeapi.Capitalize(name)))
			return
		}
		s.respondPipelineError(w, r, err)
		return
	}

	respondRaw(w, http.StatusOK, doc)
}

// handleCompare handles GET /pokemon/{name}/height_comparison
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if _, err := s.pipeline.CompareHeights(r.Context(), name); err != nil {
		if errors.Is(err, pipeline.ErrNoCachedData) {
			s.respondNotFound(w, fmt.Sprintf("Data for %s does not exist in Redis.", pokeapi.Capitalize(name)))
			return
		}
		s.respondPipelineError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: ChartsCreatedMessage})
}

// respondNotFound writes a message body with 200, or 404 in strict mode.
func (s *Server) respondNotFound(w http.ResponseWriter, message string) {
	status := http.StatusOK
	if s.config.StrictStatusCodes {
		status = http.StatusNotFound
	}
	respondJSON(w, status, MessageResponse{Message: message})
}

func (s *Server) respondPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, retryable := errorStatus(err)
	logging.FromContext(r.Context()).Error().
		Err(err).
		Int("status", status).
		Str("code", code).
		Msg("Request failed")
	WriteError(w, r, status, code, errorMessage(code), retryable)
}
