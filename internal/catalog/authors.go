package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"bookcatalog/internal/cache"
)

// AuthorStore handles author reads and writes. Reads go through the cache;
// writes invalidate synchronously before returning.
type AuthorStore struct {
	db    *bun.DB
	cache *cache.Service
	inv   *Invalidator
}

// NewAuthorStore creates an author store.
func NewAuthorStore(db *bun.DB, c *cache.Service, inv *Invalidator) *AuthorStore {
	return &AuthorStore{db: db, cache: c, inv: inv}
}

// totalSalesSubquery annotates an author row with the lifetime sales of all
// their books.
const totalSalesSubquery = `(SELECT COALESCE(SUM(s.sales), 0)
	FROM sales AS s JOIN books AS b ON b.id = s.book_id
	WHERE b.author_id = author.id)`

// GetByID returns an author with their total sales annotated, from cache
// when fresh.
func (s *AuthorStore) GetByID(ctx context.Context, id int64) (*Author, error) {
	author, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.KindAuthor, id),
		func(ctx context.Context) (*Author, error) {
			a := new(Author)
			err := s.db.NewSelect().Model(a).
				ColumnExpr("author.*").
				ColumnExpr(totalSalesSubquery+" AS total_sales").
				Where("author.id = ?", id).
				Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			if err != nil {
				return nil, fmt.Errorf("load author %d: %w", id, err)
			}
			return a, nil
		})
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, ErrNotFound
	}
	return author, nil
}

// List returns all authors ordered by name, cached as one listing entry.
func (s *AuthorStore) List(ctx context.Context) ([]Author, error) {
	authors, err := cache.GetOrLoad(ctx, s.cache, cache.KeyAuthorsIndex,
		func(ctx context.Context) (*[]Author, error) {
			var list []Author
			if err := s.db.NewSelect().Model(&list).Order("name ASC").Scan(ctx); err != nil {
				return nil, fmt.Errorf("list authors: %w", err)
			}
			return &list, nil
		})
	if err != nil {
		return nil, err
	}
	return *authors, nil
}

// All returns the full author list used to populate selection inputs.
// Cached under its own key so form rendering does not contend with the
// index listing.
func (s *AuthorStore) All(ctx context.Context) ([]Author, error) {
	authors, err := cache.GetOrLoad(ctx, s.cache, cache.KeyAuthorsAll,
		func(ctx context.Context) (*[]Author, error) {
			var list []Author
			err := s.db.NewSelect().Model(&list).
				Column("id", "name", "country", "date_of_birth").
				Order("name ASC").
				Scan(ctx)
			if err != nil {
				return nil, fmt.Errorf("load authors: %w", err)
			}
			return &list, nil
		})
	if err != nil {
		return nil, err
	}
	return *authors, nil
}

// BooksCount returns the number of books by an author, cached.
func (s *AuthorStore) BooksCount(ctx context.Context, authorID int64) (int64, error) {
	count, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.KindAuthorBooksCount, authorID),
		func(ctx context.Context) (*int64, error) {
			n, err := s.db.NewSelect().Model((*Book)(nil)).
				Where("author_id = ?", authorID).
				Count(ctx)
			if err != nil {
				return nil, fmt.Errorf("count books for author %d: %w", authorID, err)
			}
			c := int64(n)
			return &c, nil
		})
	if err != nil {
		return 0, err
	}
	return *count, nil
}

// Create inserts a new author.
func (s *AuthorStore) Create(ctx context.Context, a *Author) error {
	if _, err := s.db.NewInsert().Model(a).Exec(ctx); err != nil {
		return fmt.Errorf("create author: %w", err)
	}
	s.inv.AuthorChanged(ctx, a.ID)
	return nil
}

// Update saves an existing author.
func (s *AuthorStore) Update(ctx context.Context, a *Author) error {
	res, err := s.db.NewUpdate().Model(a).
		Column("name", "country", "date_of_birth", "description").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update author %d: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.inv.AuthorChanged(ctx, a.ID)
	return nil
}

// Delete removes an author and cascades to their books, reviews, upvotes,
// and sales. Every removed book gets its own invalidation so its cache
// entries and search document go with it.
func (s *AuthorStore) Delete(ctx context.Context, id int64) error {
	var bookIDs []int64
	err := s.db.NewSelect().Model((*Book)(nil)).
		Column("id").
		Where("author_id = ?", id).
		Scan(ctx, &bookIDs)
	if err != nil {
		return fmt.Errorf("load books for author %d: %w", id, err)
	}

	if len(bookIDs) > 0 {
		if err := deleteBookRows(ctx, s.db, bookIDs); err != nil {
			return err
		}
	}
	res, err := s.db.NewDelete().Model((*Author)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete author %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.inv.AuthorChanged(ctx, id)
	for _, bookID := range bookIDs {
		s.inv.BookDeleted(ctx, bookID, id)
	}
	return nil
}

// deleteBookRows removes books and their dependent rows. Shared by author
// cascade deletes and single book deletes; invalidation is the caller's
// job.
func deleteBookRows(ctx context.Context, db *bun.DB, bookIDs []int64) error {
	var reviewIDs []int64
	err := db.NewSelect().Model((*Review)(nil)).
		Column("id").
		Where("book_id IN (?)", bun.In(bookIDs)).
		Scan(ctx, &reviewIDs)
	if err != nil {
		return fmt.Errorf("load reviews for books: %w", err)
	}
	if len(reviewIDs) > 0 {
		if _, err := db.NewDelete().Model((*ReviewUpvote)(nil)).
			Where("review_id IN (?)", bun.In(reviewIDs)).Exec(ctx); err != nil {
			return fmt.Errorf("delete review upvotes: %w", err)
		}
		if _, err := db.NewDelete().Model((*Review)(nil)).
			Where("id IN (?)", bun.In(reviewIDs)).Exec(ctx); err != nil {
			return fmt.Errorf("delete reviews: %w", err)
		}
	}
	if _, err := db.NewDelete().Model((*Sale)(nil)).
		Where("book_id IN (?)", bun.In(bookIDs)).Exec(ctx); err != nil {
		return fmt.Errorf("delete sales: %w", err)
	}
	if _, err := db.NewDelete().Model((*Book)(nil)).
		Where("id IN (?)", bun.In(bookIDs)).Exec(ctx); err != nil {
		return fmt.Errorf("delete books: %w", err)
	}
	return nil
}
