// Package cache stores creature documents in a key-value backend.
//
// The Manager is the only type the rest of the service talks to. It accepts
// raw JSON documents, stores their compact encoding under a deterministic key
// and hands them back unchanged. Two backends are provided:
//
//   - RedisBackend: go-redis v9 client, the production store
//   - BoltBackend: an embedded bbolt file for single-node or offline use
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(cache.NewRedisBackend(redisClient), 0)
//
//	key := cache.NewKey("pikachu")
//
//	if err := manager.Set(ctx, key, doc); err != nil {
//		return err
//	}
//
//	doc, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// nothing stored under pokemon:pikachu
//	}
//
// # Key Format
//
// Keys render as "<namespace>:<name>", e.g. "pokemon:pikachu". Callers are
// expected to normalize the name before building the key.
//
// # Expiry
//
// A TTL of zero stores entries without expiry. A positive TTL is applied to
// every write; expired entries read as ErrCacheMiss.
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - pokecache_cache_hits_total{backend} - Cache hits
//   - pokecache_cache_misses_total{backend} - Cache misses
//   - pokecache_cache_writes_total{backend} - Successful writes
//   - pokecache_cache_size_bytes{backend} - Bytes written
//   - pokecache_cache_errors_total{operation} - Cache operation errors
package cache
