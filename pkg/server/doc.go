// Package server exposes the pipeline over HTTP.
//
// Routes:
//
//	GET /                                   welcome message
//	GET /pokemon/{name}                     ingest the creature, return its document
//	GET /pokemon/{name}/height_comparison   render height charts from the cache
//	GET /health                             liveness
//	GET /ready                              readiness (cache backend reachable)
//	GET /metrics                            Prometheus exposition
//
// The two "not found" answers keep HTTP 200 unless Config.StrictStatusCodes
// is set, in which case they return 404. Hard failures return an
// ErrorResponse with a matching status code.
//
// API routes pass through a middleware chain: metrics, request ID, panic
// recovery, rate limiting and access logging.
package server
