package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"bookcatalog/internal/cache"
	"bookcatalog/internal/search"
)

// BookStore handles book reads and writes. Reads are cache-aside; the
// listing can additionally be narrowed by a search query routed through
// the search service.
type BookStore struct {
	db     *bun.DB
	cache  *cache.Service
	inv    *Invalidator
	search *search.Service
}

// NewBookStore creates a book store.
func NewBookStore(db *bun.DB, c *cache.Service, inv *Invalidator, s *search.Service) *BookStore {
	return &BookStore{db: db, cache: c, inv: inv, search: s}
}

// GetByID returns a book with its author loaded, from cache when fresh.
func (s *BookStore) GetByID(ctx context.Context, id int64) (*Book, error) {
	book, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.KindBook, id),
		func(ctx context.Context) (*Book, error) {
			b := new(Book)
			err := s.db.NewSelect().Model(b).
				Relation("Author").
				Where("book.id = ?", id).
				Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			if err != nil {
				return nil, fmt.Errorf("load book %d: %w", id, err)
			}
			return b, nil
		})
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, ErrNotFound
	}
	return book, nil
}

// List returns books with their authors, ordered by name. The unfiltered
// listing is served from the cache; a non-empty query goes through the
// search service instead, and those results are not cached.
func (s *BookStore) List(ctx context.Context, query string) ([]Book, error) {
	if query == "" {
		books, err := cache.GetOrLoad(ctx, s.cache, cache.KeyBooksIndex,
			func(ctx context.Context) (*[]Book, error) {
				list, err := s.loadAll(ctx, nil)
				if err != nil {
					return nil, err
				}
				return &list, nil
			})
		if err != nil {
			return nil, err
		}
		return *books, nil
	}

	ids, err := s.search.Search(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Book{}, nil
	}
	books, err := s.loadAll(ctx, ids)
	if err != nil {
		return nil, err
	}
	return orderByIDs(books, ids), nil
}

// ByAuthor returns an author's books ordered by publication date, newest
// first. Not cached on its own; the per-author count is (BooksCount on the
// author store).
func (s *BookStore) ByAuthor(ctx context.Context, authorID int64) ([]Book, error) {
	var books []Book
	err := s.db.NewSelect().Model(&books).
		Where("author_id = ?", authorID).
		Order("published_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load books for author %d: %w", authorID, err)
	}
	return books, nil
}

// loadAll fetches books with authors, optionally limited to an id set.
func (s *BookStore) loadAll(ctx context.Context, ids []int64) ([]Book, error) {
	var books []Book
	q := s.db.NewSelect().Model(&books).Relation("Author")
	if ids != nil {
		q = q.Where("book.id IN (?)", bun.In(ids))
	}
	if err := q.Order("book.name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// orderByIDs reorders books to match the id order the search index returned,
// so relevance ranking survives the database round-trip.
func orderByIDs(books []Book, ids []int64) []Book {
	byID := make(map[int64]Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	out := make([]Book, 0, len(books))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Create inserts a new book, then invalidates and indexes it.
func (s *BookStore) Create(ctx context.Context, b *Book) error {
	if _, err := s.db.NewInsert().Model(b).Exec(ctx); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	s.invalidateSaved(ctx, b)
	return nil
}

// Update saves an existing book. A change of author dirties both the old
// and the new author's book count, so the previous owner is looked up
// first.
func (s *BookStore) Update(ctx context.Context, b *Book) error {
	var prevAuthorID int64
	err := s.db.NewSelect().Model((*Book)(nil)).
		Column("author_id").
		Where("id = ?", b.ID).
		Scan(ctx, &prevAuthorID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load book %d: %w", b.ID, err)
	}

	_, err = s.db.NewUpdate().Model(b).
		Column("author_id", "name", "summary", "published_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update book %d: %w", b.ID, err)
	}

	if prevAuthorID != b.AuthorID {
		s.cache.Delete(ctx, cache.Key(cache.KindAuthorBooksCount, prevAuthorID))
	}
	s.invalidateSaved(ctx, b)
	return nil
}

// Delete removes a book together with its reviews, upvotes, and sales.
func (s *BookStore) Delete(ctx context.Context, id int64) error {
	var authorID int64
	err := s.db.NewSelect().Model((*Book)(nil)).
		Column("author_id").
		Where("id = ?", id).
		Scan(ctx, &authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load book %d: %w", id, err)
	}

	if err := deleteBookRows(ctx, s.db, []int64{id}); err != nil {
		return err
	}
	s.inv.BookDeleted(ctx, id, authorID)
	return nil
}

// RecomputeTotalSales refreshes the denormalized sales total on a book row
// and re-indexes the book so search ranks by current numbers.
func (s *BookStore) RecomputeTotalSales(ctx context.Context, bookID int64) error {
	_, err := s.db.NewUpdate().Model((*Book)(nil)).
		Set("total_sales = (SELECT COALESCE(SUM(sales), 0) FROM sales WHERE book_id = ?)", bookID).
		Where("id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recompute sales for book %d: %w", bookID, err)
	}

	b := new(Book)
	err = s.db.NewSelect().Model(b).
		Relation("Author").
		Where("book.id = ?", bookID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load book %d: %w", bookID, err)
	}
	s.inv.BookSaved(ctx, b)
	return nil
}

// invalidateSaved runs the book-saved invalidation with the Author relation
// loaded, which the search document needs. The relation is reloaded when it
// does not match the (possibly changed) author id.
func (s *BookStore) invalidateSaved(ctx context.Context, b *Book) {
	if b.Author == nil || b.Author.ID != b.AuthorID {
		a := new(Author)
		if err := s.db.NewSelect().Model(a).Where("id = ?", b.AuthorID).Scan(ctx); err == nil {
			b.Author = a
		}
	}
	s.inv.BookSaved(ctx, b)
}

// ReindexAll streams every book into the search index. Used by the
// init-search command and after an index rebuild.
func (s *BookStore) ReindexAll(ctx context.Context) (int, error) {
	books, err := s.loadAll(ctx, nil)
	if err != nil {
		return 0, err
	}
	for i := range books {
		s.search.IndexBook(ctx, BookDocument(&books[i]))
	}
	return len(books), nil
}
