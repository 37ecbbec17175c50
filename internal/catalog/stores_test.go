package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"bookcatalog/internal/cache"
	"bookcatalog/internal/catalog"
	"bookcatalog/internal/search"
	"bookcatalog/internal/testsupport"
)

// stores bundles every store wired against one test database and one
// recording cache, the way the application container assembles them.
type stores struct {
	db      *bun.DB
	store   *recordingStore
	authors *catalog.AuthorStore
	books   *catalog.BookStore
	reviews *catalog.ReviewStore
	sales   *catalog.SaleStore
	stats   *catalog.StatsStore
}

func newStores(t *testing.T) *stores {
	t.Helper()
	db := testsupport.OpenTestDB(t)
	store := newRecordingStore()
	svc := cache.New(store, time.Minute)
	searchSvc := search.New(nil, catalog.NewTextSearch(db))
	inv := catalog.NewInvalidator(svc, searchSvc)
	books := catalog.NewBookStore(db, svc, inv, searchSvc)
	return &stores{
		db:      db,
		store:   store,
		authors: catalog.NewAuthorStore(db, svc, inv),
		books:   books,
		reviews: catalog.NewReviewStore(db, svc, inv),
		sales:   catalog.NewSaleStore(db, books),
		stats:   catalog.NewStatsStore(db, svc),
	}
}

func TestAuthorStore_GetByID_CacheAside(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	a := testsupport.SeedAuthor(t, s.db, "Frank Herbert")

	got, err := s.authors.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Frank Herbert" {
		t.Errorf("expected Frank Herbert, got %q", got.Name)
	}

	// Change the row behind the cache's back: the second read must still be
	// the cached snapshot.
	if _, err := s.db.NewUpdate().Model((*catalog.Author)(nil)).
		Set("name = ?", "Someone Else").
		Where("id = ?", a.ID).
		Exec(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = s.authors.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Frank Herbert" {
		t.Errorf("expected cached name, got %q", got.Name)
	}

	// A store-level update invalidates, so the next read is fresh.
	got.Name = "Frank Patrick Herbert"
	if err := s.authors.Update(ctx, got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = s.authors.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Frank Patrick Herbert" {
		t.Errorf("expected fresh name after update, got %q", got.Name)
	}
}

func TestAuthorStore_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	if _, err := s.authors.GetByID(ctx, 12345); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// A miss must not leave a poisoned cache entry behind: create the row
	// and the same id must now resolve.
	a := &catalog.Author{Name: "Late Arrival"}
	if _, err := s.db.NewInsert().Model(a).Exec(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.authors.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("expected the new row to load, got %v", err)
	}
	if got.Name != "Late Arrival" {
		t.Errorf("unexpected author: %+v", got)
	}
}

func TestAuthorStore_TotalSalesAnnotation(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	a := testsupport.SeedAuthor(t, s.db, "Frank Herbert")
	b1 := testsupport.SeedBook(t, s.db, a, "Dune")
	b2 := testsupport.SeedBook(t, s.db, a, "Dune Messiah")
	testsupport.SeedSale(t, s.db, b1, 1965, 300)
	testsupport.SeedSale(t, s.db, b1, 1966, 200)
	testsupport.SeedSale(t, s.db, b2, 1969, 100)

	got, err := s.authors.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalSales != 600 {
		t.Errorf("expected total sales 600, got %d", got.TotalSales)
	}
}

func TestAuthorStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	a := testsupport.SeedAuthor(t, s.db, "Frank Herbert")
	b := testsupport.SeedBook(t, s.db, a, "Dune")
	r := testsupport.SeedReview(t, s.db, b, 5)
	testsupport.SeedSale(t, s.db, b, 1965, 300)
	if err := s.reviews.AddUpvote(ctx, r.ID, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.authors.Delete(ctx, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, model := range []any{
		(*catalog.Author)(nil),
		(*catalog.Book)(nil),
		(*catalog.Review)(nil),
		(*catalog.ReviewUpvote)(nil),
		(*catalog.Sale)(nil),
	} {
		n, err := s.db.NewSelect().Model(model).Count(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 0 {
			t.Errorf("expected no %T rows after cascade, got %d", model, n)
		}
	}
}

func TestAuthorStore_BooksCount(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	a := testsupport.SeedAuthor(t, s.db, "Frank Herbert")
	testsupport.SeedBook(t, s.db, a, "Dune")

	n, err := s.authors.BooksCount(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 book, got %d", n)
	}

	// A book write through the store invalidates the count.
	b := &catalog.Book{AuthorID: a.ID, Name: "Dune Messiah", PublishedAt: time.Now()}
	if err := s.books.Create(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, err = s.authors.BooksCount(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected count 2 after create, got %d", n)
	}
}

func TestBookStore_ListWithQueryUsesFallback(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	herbert := testsupport.SeedAuthor(t, s.db, "Frank Herbert")
	leguin := testsupport.SeedAuthor(t, s.db, "Ursula K. Le Guin")
	testsupport.SeedBook(t, s.db, herbert, "Dune")
	testsupport.SeedBook(t, s.db, leguin, "The Dispossessed")

	books, err := s.books.List(ctx, "dune")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(books) != 1 || books[0].Name != "Dune" {
		t.Errorf("expected [Dune], got %+v", books)
	}

	// Matching on the author name works through the fallback join.
	books, err = s.books.List(ctx, "le guin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(books) != 1 || books[0].Name != "The Dispossessed" {
		t.Errorf("expected [The Dispossessed], got %+v", books)
	}

	books, err = s.books.List(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(books) != 2 {
		t.Errorf("expected full listing, got %+v", books)
	}
	if books[0].Author == nil {
		t.Error("expected Author relation loaded in listing")
	}
}

func TestBookStore_UpdateMovesAuthorCount(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	herbert := testsupport.SeedAuthor(t, s.db, "Frank Herbert")
	leguin := testsupport.SeedAuthor(t, s.db, "Ursula K. Le Guin")
	b := testsupport.SeedBook(t, s.db, herbert, "Dune")

	// Warm both counts.
	if _, err := s.authors.BooksCount(ctx, herbert.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.authors.BooksCount(ctx, leguin.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b.AuthorID = leguin.ID
	if err := s.books.Update(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := s.authors.BooksCount(ctx, herbert.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected previous author's count invalidated to 0, got %d", n)
	}
	n, err = s.authors.BooksCount(ctx, leguin.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected new author's count 1, got %d", n)
	}
}

func TestReviewStore_Upvotes(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	a := testsupport.SeedAuthor(t, s.db, "Frank Herbert")
	b := testsupport.SeedBook(t, s.db, a, "Dune")
	r := testsupport.SeedReview(t, s.db, b, 5)

	if err := s.reviews.AddUpvote(ctx, r.ID, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.reviews.AddUpvote(ctx, r.ID, "alice"); !errors.Is(err, catalog.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on a repeat vote, got %v", err)
	}
	if err := s.reviews.AddUpvote(ctx, r.ID, "bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := s.reviews.UpvoteCount(ctx, r.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 upvotes, got %d", n)
	}

	if err := s.reviews.RemoveUpvote(ctx, r.ID, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.reviews.RemoveUpvote(ctx, r.ID, "alice"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing an absent vote, got %v", err)
	}

	n, err = s.reviews.UpvoteCount(ctx, r.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 upvote after removal, got %d", n)
	}

	if err := s.reviews.RecomputeUpVotes(ctx, r.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var persisted int64
	err = s.db.NewSelect().Model((*catalog.Review)(nil)).
		Column("up_votes").
		Where("id = ?", r.ID).
		Scan(ctx, &persisted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if persisted != 1 {
		t.Errorf("expected persisted up_votes 1, got %d", persisted)
	}

	if err := s.reviews.AddUpvote(ctx, 99999, "alice"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound voting on a missing review, got %v", err)
	}
}

func TestSaleStore_WritesRefreshBookTotal(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	a := testsupport.SeedAuthor(t, s.db, "Frank Herbert")
	b := testsupport.SeedBook(t, s.db, a, "Dune")

	sale := &catalog.Sale{BookID: b.ID, Year: 1965, Sales: 300}
	if err := s.sales.Create(ctx, sale); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dup := &catalog.Sale{BookID: b.ID, Year: 1965, Sales: 1}
	if err := s.sales.Create(ctx, dup); !errors.Is(err, catalog.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a repeated year, got %v", err)
	}

	got, err := s.books.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalSales != 300 {
		t.Errorf("expected denormalized total 300, got %d", got.TotalSales)
	}

	sale.Sales = 500
	if err := s.sales.Update(ctx, sale); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = s.books.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalSales != 500 {
		t.Errorf("expected total 500 after update, got %d", got.TotalSales)
	}

	if err := s.sales.Delete(ctx, sale.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = s.books.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalSales != 0 {
		t.Errorf("expected total 0 after delete, got %d", got.TotalSales)
	}
}

func TestStatsStore_Reports(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	herbert := testsupport.SeedAuthor(t, s.db, "Frank Herbert")
	leguin := testsupport.SeedAuthor(t, s.db, "Ursula K. Le Guin")
	dune := testsupport.SeedBook(t, s.db, herbert, "Dune")
	dispossessed := testsupport.SeedBook(t, s.db, leguin, "The Dispossessed")
	testsupport.SeedReview(t, s.db, dune, 5)
	testsupport.SeedReview(t, s.db, dune, 4)
	testsupport.SeedReview(t, s.db, dispossessed, 3)
	testsupport.SeedSale(t, s.db, dune, 1965, 300)
	testsupport.SeedSale(t, s.db, dispossessed, 1974, 150)

	rated, err := s.stats.TopRatedBooks(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rated) != 2 || rated[0].Name != "Dune" {
		t.Fatalf("expected Dune first, got %+v", rated)
	}
	if rated[0].AvgScore != 4.5 || rated[0].ReviewCount != 2 {
		t.Errorf("unexpected aggregates: %+v", rated[0])
	}
	if rated[0].BestReview != "a 5 star review" || rated[0].WorstReview != "a 4 star review" {
		t.Errorf("unexpected review extremes: %+v", rated[0])
	}
	if rated[0].AuthorName != "Frank Herbert" {
		t.Errorf("expected author name annotated, got %q", rated[0].AuthorName)
	}

	byBooks, err := s.stats.AuthorStats(ctx, "total_sales", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byBooks) != 2 || byBooks[0].Name != "Frank Herbert" {
		t.Fatalf("expected Herbert first by sales, got %+v", byBooks)
	}
	if byBooks[0].NumberOfBooks != 1 || byBooks[0].TotalSales != 300 {
		t.Errorf("unexpected author aggregates: %+v", byBooks[0])
	}

	// An unknown sort field falls back to name ordering.
	byName, err := s.stats.AuthorStats(ctx, "drop table authors", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byName) != 2 || byName[0].Name != "Frank Herbert" {
		t.Errorf("expected name ordering, got %+v", byName)
	}

	selling, err := s.stats.TopSellingBooks(ctx, 1965, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selling) != 1 || selling[0].Name != "Dune" || selling[0].YearSales != 300 {
		t.Errorf("expected Dune with 300 sales in 1965, got %+v", selling)
	}
}
