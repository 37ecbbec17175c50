package cache

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// Store is the process-external key-value store the cache service fronts.
// Implementations live in internal/cacheinfra (Redis, in-process memory).
// Get returns (nil, nil) when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// LoadFn fetches an entity snapshot from the source of truth on a cache
// miss. Returning (nil, nil) means "not found"; that result is handed back
// to the caller without being cached so a later successful write is not
// masked by a stale negative entry.
type LoadFn[T any] func(ctx context.Context) (*T, error)

// Service provides cache-aside reads and best-effort deletes on top of a
// Store. The store is never a hard dependency: any failure talking to it
// degrades the call to a direct load and is logged, not propagated.
type Service struct {
	store Store
	ttl   time.Duration
	log   *log.Entry
}

// New creates a cache service with the given backing store and default TTL.
func New(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store: store,
		ttl:   ttl,
		log:   log.WithField("component", "cache"),
	}
}

// DefaultTTL matches the five-minute entry lifetime the catalog has always
// used for hot-entity snapshots.
const DefaultTTL = 5 * time.Minute

// TTL returns the default entry lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Delete removes the given keys, best-effort. Deleting an absent key is a
// no-op and store failures are swallowed after logging: the entries expire
// by TTL anyway, invalidation only shortens the window.
func (s *Service) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.log.WithError(err).WithField("keys", keys).Warn("cache delete failed")
	}
}

// GetOrLoad implements the cache-aside read path for a single key.
//
// A store hit is returned unconditionally; TTL expiry is enforced by the
// store itself. On a miss the loader runs, and a non-nil result is written
// back with the service TTL. A nil loader result is returned uncached.
// Loader errors propagate to the caller untouched; store errors (get, set,
// or a snapshot that no longer decodes) degrade to the loader.
//
// Concurrent misses on one key may run the loader redundantly. That is
// accepted: loaders are idempotent reads, and serializing them would cost
// more than the duplicate query.
func GetOrLoad[T any](ctx context.Context, s *Service, key string, load LoadFn[T]) (*T, error) {
	if b, err := s.store.Get(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache get failed, loading directly")
	} else if b != nil {
		var v T
		uerr := msgpack.Unmarshal(b, &v)
		if uerr == nil {
			return &v, nil
		}
		s.log.WithError(uerr).WithField("key", key).Warn("cache entry undecodable, reloading")
	}

	v, err := load(ctx)
	if err != nil || v == nil {
		return v, err
	}

	if b, err := msgpack.Marshal(v); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache encode failed")
	} else if err := s.store.Set(ctx, key, b, s.ttl); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache set failed")
	}
	return v, nil
}
