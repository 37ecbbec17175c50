package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// SaleStore handles yearly sales figures. Every write refreshes the book's
// denormalized total, which in turn re-indexes the book.
type SaleStore struct {
	db    *bun.DB
	books *BookStore
}

// NewSaleStore creates a sale store.
func NewSaleStore(db *bun.DB, books *BookStore) *SaleStore {
	return &SaleStore{db: db, books: books}
}

// GetByID returns a single sale row.
func (s *SaleStore) GetByID(ctx context.Context, id int64) (*Sale, error) {
	sale := new(Sale)
	err := s.db.NewSelect().Model(sale).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load sale %d: %w", id, err)
	}
	return sale, nil
}

// ByBook returns a book's yearly sales, most recent year first.
func (s *SaleStore) ByBook(ctx context.Context, bookID int64) ([]Sale, error) {
	var sales []Sale
	err := s.db.NewSelect().Model(&sales).
		Where("book_id = ?", bookID).
		Order("year DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sales for book %d: %w", bookID, err)
	}
	return sales, nil
}

// Create records a book's sales for one year. A second row for the same
// (book, year) pair is ErrDuplicate.
func (s *SaleStore) Create(ctx context.Context, sale *Sale) error {
	if _, err := s.db.NewInsert().Model(sale).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create sale: %w", err)
	}
	return s.books.RecomputeTotalSales(ctx, sale.BookID)
}

// Update corrects a recorded figure. The book is resolved from the stored
// row, so callers only need the sale id, year, and amount.
func (s *SaleStore) Update(ctx context.Context, sale *Sale) error {
	var bookID int64
	err := s.db.NewSelect().Model((*Sale)(nil)).
		Column("book_id").
		Where("id = ?", sale.ID).
		Scan(ctx, &bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load sale %d: %w", sale.ID, err)
	}
	sale.BookID = bookID

	_, err = s.db.NewUpdate().Model(sale).
		Column("year", "sales").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update sale %d: %w", sale.ID, err)
	}
	return s.books.RecomputeTotalSales(ctx, bookID)
}

// Delete removes a recorded figure.
func (s *SaleStore) Delete(ctx context.Context, id int64) error {
	var bookID int64
	err := s.db.NewSelect().Model((*Sale)(nil)).
		Column("book_id").
		Where("id = ?", id).
		Scan(ctx, &bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load sale %d: %w", id, err)
	}

	if _, err := s.db.NewDelete().Model((*Sale)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete sale %d: %w", id, err)
	}
	return s.books.RecomputeTotalSales(ctx, bookID)
}
