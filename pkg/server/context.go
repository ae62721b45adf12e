package server

import "context"

type contextKey string

const contextKeyRequestID contextKey = "request-id"

// RequestIDFromContext returns the request ID set by the middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}
