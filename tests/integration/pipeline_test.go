//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Sternrassler/pokecache/internal/testutil"
	"github.com/Sternrassler/pokecache/pkg/batch"
	"github.com/Sternrassler/pokecache/pkg/cache"
	"github.com/Sternrassler/pokecache/pkg/chart"
	"github.com/Sternrassler/pokecache/pkg/pipeline"
	"github.com/Sternrassler/pokecache/pkg/pokeapi"
	"github.com/Sternrassler/pokecache/pkg/server"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

type stack struct {
	mock        *testutil.MockPokeAPI
	store       *cache.Manager
	coordinator *pipeline.Coordinator
	chartDir    string
}

func newStack(t *testing.T, redisClient *redis.Client, ttl time.Duration) *stack {
	t.Helper()

	mock := testutil.NewMockPokeAPI()
	t.Cleanup(mock.Close)
	mock.AddCreature("pikachu", testutil.PikachuJSON)
	mock.AddCreature("bulbasaur", testutil.BulbasaurJSON)
	mock.AddCreature("onix", testutil.OnixJSON)

	cfg := pokeapi.DefaultConfig()
	cfg.BaseURL = mock.BaseURL()
	client, err := pokeapi.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	chartDir := t.TempDir()
	renderer, err := chart.NewFileRenderer(chartDir, chart.FormatPNG)
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	store := cache.NewManager(cache.NewRedisBackend(redisClient), ttl)

	return &stack{
		mock:        mock,
		store:       store,
		coordinator: pipeline.New(client, store, renderer, zerolog.Nop()),
		chartDir:    chartDir,
	}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

// TestFullRequestFlow tests the complete flow: HTTP → Upstream → Redis → Charts.
func TestFullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	s := newStack(t, redisClient, 0)
	srv := server.New(server.DefaultConfig(), s.coordinator, s.store, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// Comparison before ingest
	status, body := get(t, ts.URL+"/pokemon/pikachu/height_comparison")
	if status != http.StatusOK || body != `{"message":"Data for Pikachu does not exist in Redis."}` {
		t.Fatalf("unexpected pre-ingest response: %d %s", status, body)
	}

	// Ingest
	status, body = get(t, ts.URL+"/pokemon/Pikachu")
	if status != http.StatusOK {
		t.Fatalf("ingest status = %d, body = %s", status, body)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatalf("ingest body is not JSON: %v", err)
	}
	if doc["name"] != "pikachu" {
		t.Errorf("ingested name = %v", doc["name"])
	}

	// Stored under the normalized key without expiry
	ttl, err := redisClient.TTL(context.Background(), "pokemon:pikachu").Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != -1 {
		t.Errorf("expected no expiry, got %v", ttl)
	}

	// Comparison after ingest
	status, body = get(t, ts.URL+"/pokemon/PIKACHU/height_comparison")
	if status != http.StatusOK || body != `{"message":"Height comparison charts created."}` {
		t.Fatalf("unexpected comparison response: %d %s", status, body)
	}

	entries, err := os.ReadDir(s.chartDir)
	if err != nil {
		t.Fatalf("Failed to read chart dir: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 charts, got %d", len(entries))
	}

	// Unknown creature
	status, body = get(t, ts.URL+"/pokemon/missingno")
	if status != http.StatusOK || body != `{"message":"Failed to fetch data for Missingno from the Pokemon API."}` {
		t.Errorf("unexpected not-found response: %d %s", status, body)
	}
	if n, _ := redisClient.Exists(context.Background(), "pokemon:missingno").Result(); n != 0 {
		t.Error("not-found creature was cached")
	}

	// Readiness pings the real backend
	srv.SetReady(true)
	status, body = get(t, ts.URL+"/ready")
	if status != http.StatusOK {
		t.Errorf("expected /ready 200, got %d %s", status, body)
	}
}

// TestCacheTTL verifies expiry against a real Redis.
func TestCacheTTL(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	s := newStack(t, redisClient, time.Second)
	ctx := context.Background()

	if _, err := s.coordinator.Ingest(ctx, "onix"); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	result, err := s.coordinator.CompareHeights(ctx, "onix")
	if err != nil {
		t.Fatalf("CompareHeights failed: %v", err)
	}
	if result.HeightMeters != 8.8 {
		t.Errorf("height = %v, want 8.8", result.HeightMeters)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := s.coordinator.CompareHeights(ctx, "onix"); err == nil {
		t.Fatal("expected cached record to expire")
	}
}

// TestBatchIngest ingests several creatures concurrently into Redis.
func TestBatchIngest(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	s := newStack(t, redisClient, 0)
	ingester := batch.NewIngester(s.coordinator, batch.Config{MaxConcurrency: 2})

	results, err := ingester.IngestAll(context.Background(), []string{"pikachu", "Bulbasaur", "onix", "PIKACHU", "missingno"})
	if err != nil {
		t.Fatalf("IngestAll failed: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}

	// Duplicate names are fetched once.
	if got := s.mock.RequestsFor("pikachu"); got != 1 {
		t.Errorf("pikachu fetched %d times", got)
	}

	keys, err := redisClient.Keys(context.Background(), "pokemon:*").Result()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("expected 3 cached keys, got %v", keys)
	}
}
