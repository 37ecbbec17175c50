// Package app wires the application together: database, cache backend,
// search service, invalidator, and the entity stores.
package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"bookcatalog/internal/cache"
	"bookcatalog/internal/cacheinfra"
	"bookcatalog/internal/catalog"
	"bookcatalog/internal/config"
	"bookcatalog/internal/search"
)

// Container manages singleton instances of the application's services and
// stores, built once from the configuration.
type Container struct {
	cfg config.Config

	db        *bun.DB
	cacheSvc  *cache.Service
	searchSvc *search.Service
	closers   []func() error

	Authors *catalog.AuthorStore
	Books   *catalog.BookStore
	Reviews *catalog.ReviewStore
	Sales   *catalog.SaleStore
	Stats   *catalog.StatsStore
}

// New builds the container from a validated configuration. The schema is
// created if missing, the cache backend is selected, and search starts in
// whatever state its first probe finds.
func New(ctx context.Context, cfg config.Config) (*Container, error) {
	c := &Container{cfg: cfg}

	db, err := catalog.OpenDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	c.db = db
	c.closers = append(c.closers, db.Close)

	if err := catalog.CreateSchema(ctx, db); err != nil {
		c.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	store, err := c.buildCacheStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.cacheSvc = cache.New(store, cfg.Cache.TTL)

	c.searchSvc = search.New(c.buildIndexClient(), catalog.NewTextSearch(db))

	inv := catalog.NewInvalidator(c.cacheSvc, c.searchSvc)
	c.Authors = catalog.NewAuthorStore(db, c.cacheSvc, inv)
	c.Books = catalog.NewBookStore(db, c.cacheSvc, inv, c.searchSvc)
	c.Reviews = catalog.NewReviewStore(db, c.cacheSvc, inv)
	c.Sales = catalog.NewSaleStore(db, c.Books)
	c.Stats = catalog.NewStatsStore(db, c.cacheSvc)
	return c, nil
}

// buildCacheStore selects the cache backend from the configuration.
func (c *Container) buildCacheStore(ctx context.Context) (cache.Store, error) {
	switch c.cfg.Cache.Backend {
	case config.BackendRedis:
		store := cacheinfra.NewRedisStore(cacheinfra.RedisConfig{
			Addr:     c.cfg.Redis.Addr,
			DB:       c.cfg.Redis.DB,
			Password: c.cfg.Redis.Password,
		})
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		c.closers = append(c.closers, store.Close)
		log.WithField("addr", c.cfg.Redis.Addr).Info("using redis cache backend")
		return store, nil
	default:
		// The memory store expires entries on its own client-wide TTL and
		// ignores the per-call ttl of the Store interface. It must be built
		// with the same TTL the cache service hands to Set, or memory-backed
		// entries would outlive (or undercut) their redis-backed equivalents.
		return cacheinfra.NewMemoryStore(cacheinfra.Config{
			Capacity:           c.cfg.Cache.Capacity,
			NumShards:          c.cfg.Cache.Shards,
			TTL:                c.cfg.Cache.TTL,
			EvictionPercentage: 10,
		})
	}
}

// buildIndexClient returns the Elasticsearch client, or nil when search is
// disabled so the service stays on the database fallback.
func (c *Container) buildIndexClient() search.IndexClient {
	if !c.cfg.Search.Enabled {
		return nil
	}
	client, err := search.NewElasticIndex(search.ElasticConfig{
		Addresses: c.cfg.Search.Addresses,
		Index:     c.cfg.Search.Index,
	})
	if err != nil {
		log.WithError(err).Warn("search client unavailable, using database search")
		return nil
	}
	return client
}

// Search returns the search service, for probing control and status.
func (c *Container) Search() *search.Service {
	return c.searchSvc
}

// Cache returns the cache service.
func (c *Container) Cache() *cache.Service {
	return c.cacheSvc
}

// DB returns the underlying database handle.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Close releases every resource the container opened, last first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.WithError(err).Warn("close failed")
		}
	}
	c.closers = nil
}
