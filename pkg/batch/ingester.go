package batch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Sternrassler/pokecache/pkg/pokeapi"
	"github.com/rs/zerolog/log"
)

// Config holds batch ingester configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel ingests.
	MaxConcurrency int

	// Timeout per item.
	Timeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// SingleIngester ingests one creature. *pipeline.Coordinator implements it.
type SingleIngester interface {
	Ingest(ctx context.Context, name string) (json.RawMessage, error)
}

// Result is the outcome for one input name.
type Result struct {
	Input string `json:"input" yaml:"input"`
	Name  string `json:"name" yaml:"name"`
	Bytes int    `json:"bytes" yaml:"bytes"`
	Err   error  `json:"-" yaml:"-"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the item was ingested.
func (r Result) OK() bool {
	return r.Err == nil
}

// Ingester runs a SingleIngester over many names.
type Ingester struct {
	ingester SingleIngester
	config   Config
}

// NewIngester creates a new batch ingester.
func NewIngester(ingester SingleIngester, config Config) *Ingester {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Ingester{
		ingester: ingester,
		config:   config,
	}
}

type job struct {
	name string
}

type outcome struct {
	name  string
	bytes int
	err   error
}

// IngestAll ingests every distinct name and returns one Result per input, in
// input order. Per-item failures are reported in the results; the returned
// error is non-nil only when ctx ends before all items were processed.
func (in *Ingester) IngestAll(ctx context.Context, names []string) ([]Result, error) {
	start := time.Now()

	normalized := make([]string, len(names))
	var distinct []string
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		normalized[i] = pokeapi.NormalizeName(n)
		if !seen[normalized[i]] {
			seen[normalized[i]] = true
			distinct = append(distinct, normalized[i])
		}
	}

	log.Info().
		Int("inputs", len(names)).
		Int("distinct", len(distinct)).
		Int("workers", in.config.MaxConcurrency).
		Msg("Starting batch ingest")

	queue := make(chan job, len(distinct))
	outcomes := make(chan outcome, len(distinct))

	for _, name := range distinct {
		queue <- job{name: name}
	}
	close(queue)

	workers := in.config.MaxConcurrency
	if workers > len(distinct) {
		workers = len(distinct)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go in.worker(ctx, queue, outcomes, &wg, i)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	byName := make(map[string]outcome, len(distinct))
	for o := range outcomes {
		byName[o.name] = o
	}

	results := make([]Result, len(names))
	failed := 0
	for i, n := range names {
		o, ok := byName[normalized[i]]
		if !ok {
			o = outcome{name: normalized[i], err: context.Cause(ctx)}
			if o.err == nil {
				o.err = context.Canceled
			}
		}
		results[i] = Result{Input: n, Name: o.name, Bytes: o.bytes, Err: o.err}
		if o.err != nil {
			results[i].Error = o.err.Error()
			failed++
		}
	}

	log.Info().
		Int("inputs", len(names)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch ingest complete")

	if len(byName) < len(distinct) {
		return results, ctx.Err()
	}
	return results, nil
}

// worker processes names from the queue.
func (in *Ingester) worker(ctx context.Context, queue <-chan job, outcomes chan<- outcome, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for j := range queue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		itemCtx, cancel := context.WithTimeout(ctx, in.config.Timeout)
		doc, err := in.ingester.Ingest(itemCtx, j.name)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Str("name", j.name).
				Msg("Ingest failed")
		}

		// outcomes is buffered for every distinct name.
		outcomes <- outcome{name: j.name, bytes: len(doc), err: err}
		processed++
	}

	if processed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("processed", processed).
			Msg("Worker completed")
	}
}
