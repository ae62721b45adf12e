// Package batch ingests many creatures in parallel.
//
// Names are normalized and de-duplicated, then distributed across a bounded
// worker pool. Each distinct name is ingested exactly once and every input
// gets a result, in input order.
//
// Example usage:
//
//	ingester := batch.NewIngester(coordinator, batch.DefaultConfig())
//	results, err := ingester.IngestAll(ctx, []string{"pikachu", "Bulbasaur", "PIKACHU"})
//
// The ingester:
//   - Normalizes names (trim, lowercase) before de-duplication
//   - Spawns a worker pool (default 4 workers)
//   - Applies a per-item timeout
//   - Records per-item errors without aborting the batch
//   - Stops handing out work when the context is cancelled
package batch
