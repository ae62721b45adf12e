package pipeline

import "errors"

// Errors returned by the Coordinator. Match them with errors.Is.
var (
	// ErrNotFound means the upstream API did not return the creature.
	ErrNotFound = errors.New("creature not found upstream")

	// ErrNoCachedData means a comparison was requested before any ingest.
	ErrNoCachedData = errors.New("no cached data")

	// ErrMalformedRecord means the cached document lacks a usable height.
	ErrMalformedRecord = errors.New("malformed creature record")

	// ErrStoreUnavailable means the cache backend failed.
	ErrStoreUnavailable = errors.New("cache store unavailable")

	// ErrUpstreamUnreachable means the upstream API could not be reached or
	// answered with something other than a JSON document.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrRenderFailed means a chart could not be rendered.
	ErrRenderFailed = errors.New("chart rendering failed")
)
