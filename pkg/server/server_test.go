package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/pokecache/pkg/pipeline"
	"github.com/Sternrassler/pokecache/pkg/pokeapi"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Pipeline = (*pipeline.Coordinator)(nil)

type fakePipeline struct {
	ingestDoc  json.RawMessage
	ingestErr  error
	compareErr error
	panicOn    string
	lastName   string
}

func (f *fakePipeline) Ingest(_ context.Context, name string) (json.RawMessage, error) {
	f.lastName = name
	if f.panicOn == "ingest" {
		panic("boom")
	}
	return f.ingestDoc, f.ingestErr
}

func (f *fakePipeline) CompareHeights(_ context.Context, name string) (*pipeline.Result, error) {
	f.lastName = name
	if f.compareErr != nil {
		return nil, f.compareErr
	}
	return &pipeline.Result{Name: name}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(cfg Config, p Pipeline, pinger Pinger) *Server {
	s := New(cfg, p, pinger, zerolog.Nop())
	s.SetReady(true)
	return s
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestWelcome(t *testing.T) {
	s := newTestServer(DefaultConfig(), &fakePipeline{}, nil)

	rec := do(t, s.Handler(), "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var msg string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, WelcomeMessage, msg)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(DefaultConfig(), &fakePipeline{}, nil)

	rec := do(t, s.Handler(), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngest_Success(t *testing.T) {
	doc := `{"name":"pikachu","height":4}`
	p := &fakePipeline{ingestDoc: json.RawMessage(doc)}
	s := newTestServer(DefaultConfig(), p, nil)

	rec := do(t, s.Handler(), "/pokemon/Pikachu")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, doc, rec.Body.String())
	assert.Equal(t, "Pikachu", p.lastName)
}

func TestIngest_NotFound(t *testing.T) {
	tests := []struct {
		name       string
		strict     bool
		wantStatus int
	}{
		{name: "compatible", strict: false, wantStatus: http.StatusOK},
		{name: "strict", strict: true, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.StrictStatusCodes = tt.strict
			p := &fakePipeline{ingestErr: fmt.Errorf("ingest missingno: %w", pipeline.ErrNotFound)}
			s := newTestServer(cfg, p, nil)

			rec := do(t, s.Handler(), "/pokemon/MISSINGNO")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "Failed to fetch data for Missingno from the Pokemon API.", decodeMessage(t, rec))
		})
	}
}

func TestCompare_Success(t *testing.T) {
	p := &fakePipeline{}
	s := newTestServer(DefaultConfig(), p, nil)

	rec := do(t, s.Handler(), "/pokemon/bulbasaur/height_comparison")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ChartsCreatedMessage, decodeMessage(t, rec))
	assert.Equal(t, "bulbasaur", p.lastName)
}

func TestCompare_NoCachedData(t *testing.T) {
	tests := []struct {
		name       string
		strict     bool
		wantStatus int
	}{
		{name: "compatible", strict: false, wantStatus: http.StatusOK},
		{name: "strict", strict: true, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.StrictStatusCodes = tt.strict
			p := &fakePipeline{compareErr: fmt.Errorf("compare pikachu: %w", pipeline.ErrNoCachedData)}
			s := newTestServer(cfg, p, nil)

			rec := do(t, s.Handler(), "/pokemon/pikachu/height_comparison")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "Data for Pikachu does not exist in Redis.", decodeMessage(t, rec))
		})
	}
}

func TestPipelineErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		pipeline   *fakePipeline
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed record",
			path:       "/pokemon/glitch/height_comparison",
			pipeline:   &fakePipeline{compareErr: fmt.Errorf("compare glitch: %w", pipeline.ErrMalformedRecord)},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   ErrCodeMalformedRecord,
		},
		{
			name:       "store unavailable on compare",
			path:       "/pokemon/pikachu/height_comparison",
			pipeline:   &fakePipeline{compareErr: fmt.Errorf("compare pikachu: %w", pipeline.ErrStoreUnavailable)},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrCodeServiceUnavailable,
		},
		{
			name:       "store unavailable on ingest",
			path:       "/pokemon/pikachu",
			pipeline:   &fakePipeline{ingestErr: fmt.Errorf("ingest pikachu: %w", pipeline.ErrStoreUnavailable)},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrCodeServiceUnavailable,
		},
		{
			name:       "upstream unreachable",
			path:       "/pokemon/pikachu",
			pipeline:   &fakePipeline{ingestErr: fmt.Errorf("ingest pikachu: %w", pipeline.ErrUpstreamUnreachable)},
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeUpstreamError,
		},
		{
			name:       "render failed",
			path:       "/pokemon/pikachu/height_comparison",
			pipeline:   &fakePipeline{compareErr: fmt.Errorf("compare pikachu: %w", pipeline.ErrRenderFailed)},
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeRenderFailed,
		},
		{
			name:       "invalid name",
			path:       "/pokemon/%20",
			pipeline:   &fakePipeline{ingestErr: fmt.Errorf("ingest: %w", pokeapi.ErrInvalidName)},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidRequest,
		},
		{
			name:       "unexpected",
			path:       "/pokemon/pikachu",
			pipeline:   &fakePipeline{ingestErr: errors.New("something else")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(DefaultConfig(), tt.pipeline, nil)

			rec := do(t, s.Handler(), tt.path)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
			assert.Equal(t, rec.Header().Get("X-Request-Id"), body.RequestID)
			assert.False(t, body.Timestamp.IsZero())
		})
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(DefaultConfig(), &fakePipeline{}, nil)

	t.Run("generated", func(t *testing.T) {
		rec := do(t, s.Handler(), "/")
		_, err := uuid.Parse(rec.Header().Get("X-Request-Id"))
		assert.NoError(t, err)
	})

	t.Run("propagated", func(t *testing.T) {
		id := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", id)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, id, rec.Header().Get("X-Request-Id"))
	})

	t.Run("invalid replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "not-a-uuid")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		got := rec.Header().Get("X-Request-Id")
		assert.NotEqual(t, "not-a-uuid", got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	})
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 0.001
	cfg.RateLimitBurst = 1
	s := newTestServer(cfg, &fakePipeline{}, nil)
	h := s.Handler()

	first := do(t, h, "/")
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(t, h, "/")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeRateLimitExceeded, body.Code)
	assert.True(t, body.Retryable)

	// System endpoints are not rate limited.
	assert.Equal(t, http.StatusOK, do(t, h, "/health").Code)
}

func TestPanicRecovery(t *testing.T) {
	s := newTestServer(DefaultConfig(), &fakePipeline{panicOn: "ingest"}, nil)

	rec := do(t, s.Handler(), "/pokemon/pikachu")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeInternalError, body.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(DefaultConfig(), &fakePipeline{}, nil)

	rec := do(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReady(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		s := newTestServer(DefaultConfig(), &fakePipeline{}, fakePinger{})
		rec := do(t, s.Handler(), "/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ready"`)
	})

	t.Run("backend down", func(t *testing.T) {
		s := newTestServer(DefaultConfig(), &fakePipeline{}, fakePinger{err: errors.New("connection refused")})
		rec := do(t, s.Handler(), "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "cache backend unreachable")
	})

	t.Run("not serving", func(t *testing.T) {
		s := New(DefaultConfig(), &fakePipeline{}, nil, zerolog.Nop())
		rec := do(t, s.Handler(), "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(DefaultConfig(), &fakePipeline{}, nil)
	h := s.Handler()

	do(t, h, "/")
	rec := do(t, h, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pokecache_http_requests_total")
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.ShutdownTimeout = 5 * time.Second
	s := New(cfg, &fakePipeline{}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && strings.TrimSpace(string(body)) == "OK"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.False(t, s.isReady())
}

func TestNew_PanicsWithoutPipeline(t *testing.T) {
	assert.Panics(t, func() { New(DefaultConfig(), nil, nil, zerolog.Nop()) })
}
