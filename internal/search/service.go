package search

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	log "github.com/sirupsen/logrus"
)

// MaxResults caps how many ids one index query may return.
const MaxResults = 1000

// IndexClient is the external full-text index consumed by the Service.
// The production implementation is Elasticsearch (see elastic.go); tests
// substitute a fake.
type IndexClient interface {
	// Ping reports whether the index is reachable.
	Ping(ctx context.Context) error
	// Index upserts a document by its id.
	Index(ctx context.Context, doc Document) error
	// Delete removes a document by id. An absent document is success.
	Delete(ctx context.Context, id int64) error
	// Search returns matching book ids in relevance order, at most limit.
	Search(ctx context.Context, query string, limit int) ([]int64, error)
	// EnsureIndex creates the index and its mappings if absent.
	EnsureIndex(ctx context.Context) error
	// DropIndex removes the index entirely. An absent index is success.
	DropIndex(ctx context.Context) error
}

// Fallback is the database-native text search used when the external index
// is unavailable or a call to it fails. catalog.TextSearch implements it.
type Fallback interface {
	SearchBookIDs(ctx context.Context, query string, restrict []int64) ([]int64, error)
}

// Service fronts the external index with transparent degradation: when the
// index is unreachable it answers searches from the database and turns
// index writes into no-ops. Availability is a process-wide flag owned by
// the Service instance, probed at construction and optionally re-probed on
// an interval; it is read atomically by every call.
type Service struct {
	client    IndexClient
	fallback  Fallback
	available atomic.Bool
	log       *log.Entry
}

// New builds a search service and probes the index once. A nil client
// (search disabled by configuration) starts and stays in fallback.
func New(client IndexClient, fallback Fallback) *Service {
	s := &Service{
		client:   client,
		fallback: fallback,
		log:      log.WithField("component", "search"),
	}
	if client == nil {
		s.log.Info("no index configured, using database search")
		return s
	}
	if err := s.probe(context.Background()); err != nil {
		s.log.WithError(err).Warn("index unreachable, using database search")
	} else {
		s.log.Info("index connection established")
	}
	return s
}

// probe pings the index with a short retry and swaps the availability flag.
func (s *Service) probe(ctx context.Context) error {
	err := retry.Do(
		func() error { return s.client.Ping(ctx) },
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	s.available.Store(err == nil)
	return err
}

// Available reports whether the external index is currently considered
// reachable.
func (s *Service) Available() bool {
	return s.client != nil && s.available.Load()
}

// StartProbing re-probes the index on the given interval until ctx is
// cancelled, so a transient outage that resolves re-enables indexing
// without a restart. The flag swap is atomic; in-flight calls see either
// the old or the new state, never a torn one.
func (s *Service) StartProbing(ctx context.Context, interval time.Duration) {
	if s.client == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				was := s.available.Load()
				err := s.client.Ping(ctx)
				s.available.Store(err == nil)
				switch {
				case err == nil && !was:
					s.log.Info("index reachable again, resuming indexing")
				case err != nil && was:
					s.log.WithError(err).Warn("index became unreachable, using database search")
				}
			}
		}
	}()
}

// IndexBook upserts a book's document in the external index. Skipped when
// the index is unavailable; failures are logged and never surfaced, so an
// index outage cannot roll back the write that triggered it.
func (s *Service) IndexBook(ctx context.Context, doc Document) {
	if !s.Available() {
		return
	}
	if err := s.client.Index(ctx, doc); err != nil {
		s.log.WithError(err).WithField("book_id", doc.ID).Error("failed to index book")
		return
	}
	s.log.WithField("book_id", doc.ID).Debug("book indexed")
}

// DeleteBook removes a book's document from the external index. Same
// degradation rules as IndexBook; a document that was never indexed counts
// as deleted.
func (s *Service) DeleteBook(ctx context.Context, id int64) {
	if !s.Available() {
		return
	}
	if err := s.client.Delete(ctx, id); err != nil {
		s.log.WithError(err).WithField("book_id", id).Error("failed to delete book from index")
		return
	}
	s.log.WithField("book_id", id).Debug("book removed from index")
}

// Search resolves a free-text query to book ids.
//
// A blank query applies no filter: restrict comes back unchanged (nil
// meaning "all books"). With the index available the query runs there and
// ids return in relevance order, intersected with restrict when given; any
// error on that call falls back to the database search for this call only,
// without flipping the availability flag. In fallback state the database
// search answers directly.
func (s *Service) Search(ctx context.Context, query string, restrict []int64) ([]int64, error) {
	if strings.TrimSpace(query) == "" {
		return restrict, nil
	}
	if s.Available() {
		ids, err := s.client.Search(ctx, query, MaxResults)
		if err == nil {
			return intersect(ids, restrict), nil
		}
		s.log.WithError(err).Warn("index search failed, falling back to database search")
	}
	return s.fallback.SearchBookIDs(ctx, query, restrict)
}

// EnsureIndex creates the index with its mappings if it does not exist.
// No-op when the index is unavailable.
func (s *Service) EnsureIndex(ctx context.Context) error {
	if !s.Available() {
		return nil
	}
	return s.client.EnsureIndex(ctx)
}

// DropIndex removes the index so it can be rebuilt from scratch. No-op
// when the index is unavailable.
func (s *Service) DropIndex(ctx context.Context) error {
	if !s.Available() {
		return nil
	}
	return s.client.DropIndex(ctx)
}

// intersect filters ids down to those present in restrict, preserving the
// relevance order of ids. A nil restrict means no filtering.
func intersect(ids, restrict []int64) []int64 {
	if restrict == nil {
		return ids
	}
	allowed := make(map[int64]struct{}, len(restrict))
	for _, id := range restrict {
		allowed[id] = struct{}{}
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := allowed[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
