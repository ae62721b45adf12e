package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Manager stores JSON documents in a Backend.
type Manager struct {
	backend Backend
	ttl     time.Duration
}

// NewManager creates a cache manager. A ttl of zero stores entries without
// expiry.
func NewManager(backend Backend, ttl time.Duration) *Manager {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Manager{backend: backend, ttl: ttl}
}

// Backend returns the underlying backend.
func (m *Manager) Backend() Backend {
	return m.backend
}

// Get retrieves the document stored under key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired, and
// ErrInvalidEntry if the stored value is not valid JSON.
func (m *Manager) Get(ctx context.Context, key Key) (json.RawMessage, error) {
	name := m.backend.Name()

	data, err := m.backend.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.WithLabelValues(name).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	if !json.Valid(data) {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %s does not hold JSON", ErrInvalidEntry, key)
	}

	CacheHits.WithLabelValues(name).Inc()
	return json.RawMessage(data), nil
}

// Set stores doc under key, replacing any previous value.
// The document is stored in its compact encoding.
func (m *Manager) Set(ctx context.Context, key Key, doc json.RawMessage) error {
	if len(doc) == 0 {
		return fmt.Errorf("cache document cannot be empty")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, doc); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if err := m.backend.Set(ctx, key.String(), buf.Bytes(), m.ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	name := m.backend.Name()
	CacheWrites.WithLabelValues(name).Inc()
	CacheSize.WithLabelValues(name).Add(float64(buf.Len()))

	return nil
}

// Ping checks that the backend is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.backend.Ping(ctx); err != nil {
		CacheErrors.WithLabelValues("ping").Inc()
		return err
	}
	return nil
}

// Close releases the backend.
func (m *Manager) Close() error {
	return m.backend.Close()
}
