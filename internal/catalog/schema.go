package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenDB opens the catalog database and wraps it with bun's query builder.
// SQLite is the default for local runs and tests; Postgres for deployments.
func OpenDB(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case DriverSQLite:
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	case DriverPostgres:
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// CreateSchema creates the catalog tables and indexes if they do not exist.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Author)(nil),
		(*Book)(nil),
		(*Review)(nil),
		(*ReviewUpvote)(nil),
		(*Sale)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		name    string
		table   string
		columns []string
		unique  bool
	}{
		{"idx_books_author", "books", []string{"author_id"}, false},
		{"idx_reviews_book_score", "reviews", []string{"book_id", "score"}, false},
		{"idx_review_upvotes_unique", "review_upvotes", []string{"review_id", "voter"}, true},
		{"idx_sales_book_year", "sales", []string{"book_id", "year"}, true},
		{"idx_sales_year", "sales", []string{"year"}, false},
	}
	for _, idx := range indexes {
		q := db.NewCreateIndex().Table(idx.table).Index(idx.name).IfNotExists()
		if idx.unique {
			q = q.Unique()
		}
		for _, col := range idx.columns {
			q = q.Column(col)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
