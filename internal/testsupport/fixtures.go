// Package testsupport provides shared helpers for package tests: an
// in-memory database with the full schema, and seed functions for the
// common entities.
package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"bookcatalog/internal/catalog"
)

// OpenTestDB opens a private in-memory SQLite database with the schema
// created. The database is closed when the test finishes.
func OpenTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := catalog.OpenDB(catalog.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// A single connection keeps the in-memory database alive and visible
	// across the pooled handles.
	db.SetMaxOpenConns(1)

	if err := catalog.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// SeedAuthor inserts an author and returns it.
func SeedAuthor(t *testing.T, db *bun.DB, name string) *catalog.Author {
	t.Helper()

	dob := time.Date(1950, time.March, 1, 0, 0, 0, 0, time.UTC)
	a := &catalog.Author{Name: name, Country: "US", DateOfBirth: &dob}
	if _, err := db.NewInsert().Model(a).Exec(context.Background()); err != nil {
		t.Fatalf("failed to seed author %q: %v", name, err)
	}
	return a
}

// SeedBook inserts a book for an author and returns it with the Author
// relation populated.
func SeedBook(t *testing.T, db *bun.DB, author *catalog.Author, name string) *catalog.Book {
	t.Helper()

	b := &catalog.Book{
		AuthorID:    author.ID,
		Name:        name,
		Summary:     "a summary of " + name,
		PublishedAt: time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC),
	}
	if _, err := db.NewInsert().Model(b).Exec(context.Background()); err != nil {
		t.Fatalf("failed to seed book %q: %v", name, err)
	}
	b.Author = author
	return b
}

// SeedReview inserts a review for a book and returns it.
func SeedReview(t *testing.T, db *bun.DB, book *catalog.Book, score int) *catalog.Review {
	t.Helper()

	r := &catalog.Review{
		BookID:   book.ID,
		Review:   fmt.Sprintf("a %d star review", score),
		Score:    score,
		Reviewer: "tester",
	}
	if _, err := db.NewInsert().Model(r).Exec(context.Background()); err != nil {
		t.Fatalf("failed to seed review for book %d: %v", book.ID, err)
	}
	return r
}

// SeedSale inserts a yearly sales figure for a book and returns it.
func SeedSale(t *testing.T, db *bun.DB, book *catalog.Book, year int, sales int64) *catalog.Sale {
	t.Helper()

	s := &catalog.Sale{BookID: book.ID, Year: year, Sales: sales}
	if _, err := db.NewInsert().Model(s).Exec(context.Background()); err != nil {
		t.Fatalf("failed to seed sale for book %d year %d: %v", book.ID, year, err)
	}
	return s
}
