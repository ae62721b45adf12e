package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/Sternrassler/pokecache/pkg/pipeline"
	"github.com/Sternrassler/pokecache/pkg/pokeapi"
	"github.com/google/uuid"
)

// Error codes returned in ErrorResponse.Code.
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeMalformedRecord    = "MALFORMED_RECORD"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeUpstreamError      = "UPSTREAM_ERROR"
	ErrCodeRenderFailed       = "RENDER_FAILED"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every hard-failure answer.
type ErrorResponse struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
	Retryable bool      `json:"retryable"`
}

// WriteError writes an ErrorResponse.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string, retryable bool) {
	requestID := RequestIDFromContext(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	respondJSON(w, statusCode, ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	})
}

// errorStatus maps a pipeline error to an HTTP status, code and retry hint.
func errorStatus(err error) (int, string, bool) {
	switch {
	case errors.Is(err, pokeapi.ErrInvalidName):
		return http.StatusBadRequest, ErrCodeInvalidRequest, false
	case errors.Is(err, pipeline.ErrMalformedRecord):
		return http.StatusUnprocessableEntity, ErrCodeMalformedRecord, false
	case errors.Is(err, pipeline.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable, true
	case errors.Is(err, pipeline.ErrUpstreamUnreachable):
		return http.StatusBadGateway, ErrCodeUpstreamError, true
	case errors.Is(err, pipeline.ErrRenderFailed):
		return http.StatusInternalServerError, ErrCodeRenderFailed, false
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, true
	}
}

// errorMessage returns the client-facing text for a mapped error code.
func errorMessage(code string) string {
	switch code {
	case ErrCodeInvalidRequest:
		return "Invalid creature name."
	case ErrCodeMalformedRecord:
		return "Cached record has no usable height."
	case ErrCodeServiceUnavailable:
		return "Cache store is unavailable."
	case ErrCodeUpstreamError:
		return "Pokemon API is unreachable."
	case ErrCodeRenderFailed:
		return "Chart rendering failed."
	default:
		return "Internal server error."
	}
}
