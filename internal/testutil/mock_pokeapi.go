// Package testutil provides testing utilities for pokecache.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// PokemonPath is the upstream path prefix served by MockPokeAPI.
const PokemonPath = "/api/v2/pokemon"

// MockResponse defines the behavior for a mock upstream response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPokeAPI is a configurable mock PokeAPI server for testing.
//
// Unknown names answer 404 with a plain-text body, like the real API.
type MockPokeAPI struct {
	server    *httptest.Server
	mu        sync.RWMutex
	responses map[string]MockResponse

	// Tracking
	requestCount      int
	requestsByName    map[string]int
	lastRequestHeader http.Header
}

// NewMockPokeAPI creates and starts a new mock PokeAPI server.
func NewMockPokeAPI() *MockPokeAPI {
	mock := &MockPokeAPI{
		responses:      make(map[string]MockResponse),
		requestsByName: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

func (m *MockPokeAPI) handle(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, PokemonPath+"/")

	m.mu.Lock()
	m.requestCount++
	m.requestsByName[name]++
	m.lastRequestHeader = r.Header.Clone()
	resp, exists := m.responses[name]
	m.mu.Unlock()

	if !strings.HasPrefix(r.URL.Path, PokemonPath+"/") || !exists {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not Found"))
		return
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// URL returns the mock server root URL.
func (m *MockPokeAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the URL to configure as the upstream base.
func (m *MockPokeAPI) BaseURL() string {
	return m.server.URL + PokemonPath
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockPokeAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.requestsByName = make(map[string]int)
	m.lastRequestHeader = nil
}

// SetResponse configures the response for a lowercase name.
func (m *MockPokeAPI) SetResponse(name string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[name] = resp
}

// AddCreature serves body with 200 OK for name.
func (m *MockPokeAPI) AddCreature(name, body string) {
	m.SetResponse(name, NewCreatureResponse(body))
}

// RequestCount returns the number of requests made to the server.
func (m *MockPokeAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// RequestsFor returns the number of requests made for one name.
func (m *MockPokeAPI) RequestsFor(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestsByName[name]
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockPokeAPI) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// NewCreatureResponse creates a standard 200 OK JSON response.
func NewCreatureResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
			"Retry-After":  "30",
		},
	}
}

// PikachuJSON is a trimmed PokeAPI record for pikachu.
const PikachuJSON = `{"id":25,"name":"pikachu","height":4,"weight":60,"base_experience":112,"types":[{"slot":1,"type":{"name":"electric","url":"https://pokeapi.co/api/v2/type/13/"}}]}`

// BulbasaurJSON is a trimmed PokeAPI record for bulbasaur.
const BulbasaurJSON = `{"id":1,"name":"bulbasaur","height":7,"weight":69,"base_experience":64,"types":[{"slot":1,"type":{"name":"grass","url":"https://pokeapi.co/api/v2/type/12/"}}]}`

// OnixJSON is a trimmed PokeAPI record for onix.
const OnixJSON = `{"id":95,"name":"onix","height":88,"weight":2100,"base_experience":77}`
