// Package cache provides the read-through cache layer for catalog reads.
//
// # Overview
//
// The package exports three pieces:
//
//   - Key / ArgsKey and the Kind* constants: a registry of canonical cache
//     key strings shared by the read and invalidation sides
//   - Store: the minimal key-value contract (get/set/delete with TTL)
//     implemented by internal/cacheinfra backends
//   - Service and GetOrLoad: cache-aside reads with msgpack-encoded
//     per-entity snapshots
//
// # Semantics
//
// Cache entries are derived, disposable artifacts. The database is always
// the source of truth; losing every entry changes latency, never behavior.
// Accordingly the Service treats the store as best-effort: store failures
// degrade a read to a direct load and invalidation failures are logged and
// dropped. Only loader errors - genuine data-fetch failures - reach the
// caller.
//
// # Usage
//
//	author, err := cache.GetOrLoad(ctx, svc, cache.Key(cache.KindAuthor, id),
//		func(ctx context.Context) (*catalog.Author, error) {
//			return loadAuthorFromDB(ctx, id)
//		})
package cache
