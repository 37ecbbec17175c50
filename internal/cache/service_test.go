package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeStore is an in-memory Store with switchable failure modes.
type fakeStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	delErr  error
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.data[key], nil
}

func (f *fakeStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = val
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys...)
	if f.delErr != nil {
		return f.delErr
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

type snapshot struct {
	Name  string
	Count int
}

func TestGetOrLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := New(store, time.Minute)

	calls := 0
	first, err := GetOrLoad(ctx, svc, "book:1", func(ctx context.Context) (*snapshot, error) {
		calls++
		return &snapshot{Name: "Dune", Count: 1}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == nil || first.Name != "Dune" {
		t.Fatalf("unexpected first result: %+v", first)
	}

	// Second call must be served from cache even though the loader would
	// now return something else.
	second, err := GetOrLoad(ctx, svc, "book:1", func(ctx context.Context) (*snapshot, error) {
		calls++
		return &snapshot{Name: "changed", Count: 2}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Name != "Dune" || second.Count != 1 {
		t.Errorf("expected cached value, got %+v", second)
	}
	if calls != 1 {
		t.Errorf("expected loader to run exactly once across two calls, ran %d times", calls)
	}
}

func TestGetOrLoad_NilNotCached(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := New(store, time.Minute)

	v, err := GetOrLoad(ctx, svc, "book:404", func(ctx context.Context) (*snapshot, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil result, got %+v", v)
	}
	if len(store.data) != 0 {
		t.Fatal("nil loader result must not be written to the store")
	}

	// The entity now exists; the next read must see it, not a cached
	// negative.
	v, err = GetOrLoad(ctx, svc, "book:404", func(ctx context.Context) (*snapshot, error) {
		return &snapshot{Name: "late arrival"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v == nil || v.Name != "late arrival" {
		t.Errorf("expected fresh value after miss, got %+v", v)
	}
}

func TestGetOrLoad_LoaderErrorPropagates(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := New(store, time.Minute)

	boom := errors.New("db down")
	_, err := GetOrLoad(ctx, svc, "book:1", func(ctx context.Context) (*snapshot, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected loader error to propagate, got %v", err)
	}
	if len(store.data) != 0 {
		t.Fatal("loader errors must not be cached")
	}
}

func TestGetOrLoad_StoreFailureDegradesToLoader(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	svc := New(store, time.Minute)

	calls := 0
	v, err := GetOrLoad(ctx, svc, "book:1", func(ctx context.Context) (*snapshot, error) {
		calls++
		return &snapshot{Name: "Dune"}, nil
	})
	if err != nil {
		t.Fatalf("store failure must not surface to the caller, got %v", err)
	}
	if v == nil || v.Name != "Dune" {
		t.Fatalf("unexpected result: %+v", v)
	}
	if calls != 1 {
		t.Fatalf("expected direct load, loader ran %d times", calls)
	}
}

func TestGetOrLoad_UndecodableEntryReloads(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.data["book:1"] = []byte{0xc1} // never valid msgpack
	svc := New(store, time.Minute)

	v, err := GetOrLoad(ctx, svc, "book:1", func(ctx context.Context) (*snapshot, error) {
		return &snapshot{Name: "Dune"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v == nil || v.Name != "Dune" {
		t.Fatalf("unexpected result: %+v", v)
	}
}

func TestDelete_BestEffort(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := New(store, time.Minute)

	// Deleting absent keys is a no-op, never an error.
	svc.Delete(ctx, "book:1", "books_index:all")
	if len(store.deleted) != 2 {
		t.Fatalf("expected 2 delete attempts, got %d", len(store.deleted))
	}

	// Store failures are swallowed.
	store.delErr = errors.New("connection refused")
	svc.Delete(ctx, "book:2")
}

func TestDelete_ClearsEntry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := New(store, time.Minute)

	calls := 0
	load := func(ctx context.Context) (*snapshot, error) {
		calls++
		return &snapshot{Count: calls}, nil
	}

	if _, err := GetOrLoad(ctx, svc, "book:1", load); err != nil {
		t.Fatal(err)
	}
	svc.Delete(ctx, "book:1")
	v, err := GetOrLoad(ctx, svc, "book:1", load)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected loader to run again after delete, ran %d times", calls)
	}
	if v.Count != 2 {
		t.Errorf("expected fresh value after delete, got %+v", v)
	}
}
