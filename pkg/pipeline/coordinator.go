// Package pipeline coordinates the fetch, cache and render steps behind the
// HTTP endpoints.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/pokecache/pkg/cache"
	"github.com/Sternrassler/pokecache/pkg/chart"
	"github.com/Sternrassler/pokecache/pkg/pokeapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var pipelineOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pokecache_pipeline_operations_total",
	Help: "Total pipeline operations by operation and result",
}, []string{"operation", "result"})

// Fetcher retrieves creature documents from the upstream API.
type Fetcher interface {
	FetchByName(ctx context.Context, name string) (json.RawMessage, error)
}

// Store persists creature documents.
type Store interface {
	Get(ctx context.Context, key cache.Key) (json.RawMessage, error)
	Set(ctx context.Context, key cache.Key, doc json.RawMessage) error
}

// Result is the outcome of a height comparison.
type Result struct {
	Name         string           `json:"name" yaml:"name"`
	DisplayName  string           `json:"displayName" yaml:"displayName"`
	HeightMeters float64          `json:"heightMeters" yaml:"heightMeters"`
	Comparisons  []Comparison     `json:"comparisons" yaml:"comparisons"`
	Charts       []chart.Spec     `json:"charts" yaml:"charts"`
	Artifacts    []chart.Artifact `json:"artifacts" yaml:"artifacts"`
}

// Coordinator runs Ingest and CompareHeights over injected collaborators.
type Coordinator struct {
	fetcher  Fetcher
	store    Store
	renderer chart.Renderer
	logger   zerolog.Logger
}

// New creates a Coordinator. A nil renderer discards charts after
// validating them.
func New(fetcher Fetcher, store Store, renderer chart.Renderer, logger zerolog.Logger) *Coordinator {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if renderer == nil {
		renderer = chart.Discard{}
	}
	return &Coordinator{
		fetcher:  fetcher,
		store:    store,
		renderer: renderer,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// Ingest fetches the named creature and stores it under pokemon:<name>.
//
// ErrNotFound is returned, and nothing is written, when upstream does not
// return the creature.
func (c *Coordinator) Ingest(ctx context.Context, name string) (json.RawMessage, error) {
	normalized := pokeapi.NormalizeName(name)
	if normalized == "" {
		c.record("ingest", "invalid_name")
		return nil, fmt.Errorf("ingest: %w", pokeapi.ErrInvalidName)
	}

	doc, err := c.fetcher.FetchByName(ctx, normalized)
	if err != nil {
		switch {
		case errors.Is(err, pokeapi.ErrNotFound):
			c.record("ingest", "not_found")
			c.logger.Warn().Str("name", normalized).Msg("Creature not found upstream")
			return nil, fmt.Errorf("ingest %s: %w", normalized, ErrNotFound)
		case errors.Is(err, pokeapi.ErrInvalidName):
			c.record("ingest", "invalid_name")
			return nil, fmt.Errorf("ingest %s: %w", normalized, err)
		default:
			c.record("ingest", "upstream_error")
			c.logger.Error().Err(err).Str("name", normalized).Msg("Upstream fetch failed")
			return nil, fmt.Errorf("ingest %s: %w: %w", normalized, ErrUpstreamUnreachable, err)
		}
	}

	key := cache.NewKey(normalized)
	if err := c.store.Set(ctx, key, doc); err != nil {
		if errors.Is(err, cache.ErrInvalidEntry) {
			c.record("ingest", "upstream_error")
			return nil, fmt.Errorf("ingest %s: %w: %w", normalized, ErrUpstreamUnreachable, err)
		}
		c.record("ingest", "store_error")
		c.logger.Error().Err(err).Str("key", key.String()).Msg("Cache write failed")
		return nil, fmt.Errorf("ingest %s: %w: %w", normalized, ErrStoreUnavailable, err)
	}

	c.record("ingest", "ok")
	c.logger.Info().Str("name", normalized).Str("key", key.String()).Int("bytes", len(doc)).Msg("Creature ingested")

	return doc, nil
}

// CompareHeights reads the cached record for name once and renders one chart
// per reference subject. It never contacts the upstream API.
func (c *Coordinator) CompareHeights(ctx context.Context, name string) (*Result, error) {
	normalized := pokeapi.NormalizeName(name)
	if normalized == "" {
		c.record("compare", "invalid_name")
		return nil, fmt.Errorf("compare: %w", pokeapi.ErrInvalidName)
	}

	key := cache.NewKey(normalized)
	doc, err := c.store.Get(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, cache.ErrCacheMiss):
			c.record("compare", "no_cached_data")
			c.logger.Warn().Str("key", key.String()).Msg("Comparison requested before ingest")
			return nil, fmt.Errorf("compare %s: %w", normalized, ErrNoCachedData)
		case errors.Is(err, cache.ErrInvalidEntry):
			c.record("compare", "malformed")
			c.logger.Error().Err(err).Str("key", key.String()).Msg("Cached record is corrupted")
			return nil, fmt.Errorf("compare %s: %w: %w", normalized, ErrMalformedRecord, err)
		default:
			c.record("compare", "store_error")
			c.logger.Error().Err(err).Str("key", key.String()).Msg("Cache read failed")
			return nil, fmt.Errorf("compare %s: %w: %w", normalized, ErrStoreUnavailable, err)
		}
	}

	heightM, err := HeightMeters(doc)
	if err != nil {
		c.record("compare", "malformed")
		c.logger.Error().Err(err).Str("key", key.String()).Msg("Cached record has no usable height")
		return nil, fmt.Errorf("compare %s: %w", normalized, err)
	}

	display := pokeapi.Capitalize(normalized)
	result := &Result{
		Name:         normalized,
		DisplayName:  display,
		HeightMeters: heightM,
		Comparisons:  BuildComparisons(heightM),
	}

	for _, cmp := range result.Comparisons {
		spec := ChartSpec(cmp, display)
		artifact, err := c.renderer.Render(ctx, spec)
		if err != nil {
			c.record("compare", "render_error")
			c.logger.Error().Err(err).Str("title", spec.Title).Msg("Chart rendering failed")
			return nil, fmt.Errorf("compare %s: %w: %w", normalized, ErrRenderFailed, err)
		}
		result.Charts = append(result.Charts, spec)
		result.Artifacts = append(result.Artifacts, artifact)
	}

	c.record("compare", "ok")
	c.logger.Info().
		Str("name", normalized).
		Float64("height_m", heightM).
		Int("charts", len(result.Charts)).
		Msg("Height comparison rendered")

	return result, nil
}

func (c *Coordinator) record(operation, result string) {
	pipelineOperationsTotal.WithLabelValues(operation, result).Inc()
}
