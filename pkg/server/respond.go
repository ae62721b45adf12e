package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// respondJSON encodes v and writes it with statusCode. The body is buffered
// so an encoding failure never produces a partial response.
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeBody(w, statusCode, buf.Bytes())
}

// respondRaw writes an already encoded JSON document.
func respondRaw(w http.ResponseWriter, statusCode int, doc []byte) {
	writeBody(w, statusCode, doc)
}

func writeBody(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// MessageResponse is the body of informational answers.
type MessageResponse struct {
	Message string `json:"message"`
}
