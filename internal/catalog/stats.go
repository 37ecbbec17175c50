package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/uptrace/bun"

	"bookcatalog/internal/cache"
)

// StatsStore answers the reporting queries: top-rated books, per-author
// aggregates, and yearly bestsellers. Results are expensive joins over the
// whole catalog, so they are cached under argument-derived keys and expire
// on TTL alone - no write path invalidates them, slightly stale numbers
// are acceptable here.
type StatsStore struct {
	db    *bun.DB
	cache *cache.Service
}

// NewStatsStore creates a stats store.
func NewStatsStore(db *bun.DB, c *cache.Service) *StatsStore {
	return &StatsStore{db: db, cache: c}
}

// RatedBook is a book annotated with its review aggregates, including the
// text of its best and worst scored reviews.
type RatedBook struct {
	ID          int64   `bun:"id" json:"id"`
	Name        string  `bun:"name" json:"name"`
	AuthorName  string  `bun:"author_name" json:"author_name"`
	ReviewCount int64   `bun:"review_count" json:"review_count"`
	AvgScore    float64 `bun:"avg_score" json:"avg_score"`
	BestReview  string  `bun:"best_review" json:"best_review"`
	WorstReview string  `bun:"worst_review" json:"worst_review"`
}

// AuthorRow is one line of the per-author aggregate report.
type AuthorRow struct {
	ID            int64   `bun:"id" json:"id"`
	Name          string  `bun:"name" json:"name"`
	NumberOfBooks int64   `bun:"number_of_books" json:"number_of_books"`
	AverageScore  float64 `bun:"average_score" json:"average_score"`
	TotalSales    int64   `bun:"total_sales" json:"total_sales"`
}

// SellingBook is a book annotated with its sales for one year.
type SellingBook struct {
	ID         int64  `bun:"id" json:"id"`
	Name       string `bun:"name" json:"name"`
	AuthorName string `bun:"author_name" json:"author_name"`
	YearSales  int64  `bun:"year_sales" json:"year_sales"`
}

// authorSortFields whitelists the sortable columns of the author report.
// Anything else falls back to name so a crafted sort parameter can never
// reach the query text.
var authorSortFields = map[string]string{
	"name":            "author.name",
	"number_of_books": "number_of_books",
	"average_score":   "average_score",
	"total_sales":     "total_sales",
}

// TopRatedBooks returns the highest-rated books with at least one review.
func (s *StatsStore) TopRatedBooks(ctx context.Context, limit int) ([]RatedBook, error) {
	key := cache.ArgsKey("top_rated_books", strconv.Itoa(limit))
	rows, err := cache.GetOrLoad(ctx, s.cache, key,
		func(ctx context.Context) (*[]RatedBook, error) {
			var list []RatedBook
			err := s.db.NewSelect().
				TableExpr("books AS book").
				ColumnExpr("book.id, book.name").
				ColumnExpr("author.name AS author_name").
				ColumnExpr("COUNT(review.id) AS review_count").
				ColumnExpr("AVG(review.score) AS avg_score").
				ColumnExpr(`(SELECT r.review FROM reviews AS r
					WHERE r.book_id = book.id ORDER BY r.score DESC, r.id ASC LIMIT 1) AS best_review`).
				ColumnExpr(`(SELECT r.review FROM reviews AS r
					WHERE r.book_id = book.id ORDER BY r.score ASC, r.id ASC LIMIT 1) AS worst_review`).
				Join("JOIN authors AS author ON author.id = book.author_id").
				Join("JOIN reviews AS review ON review.book_id = book.id").
				GroupExpr("book.id, book.name, author.name").
				OrderExpr("avg_score DESC, review_count DESC").
				Limit(limit).
				Scan(ctx, &list)
			if err != nil {
				return nil, fmt.Errorf("load top rated books: %w", err)
			}
			return &list, nil
		})
	if err != nil {
		return nil, err
	}
	return *rows, nil
}

// AuthorStats returns the per-author aggregate report sorted by one of the
// whitelisted fields.
func (s *StatsStore) AuthorStats(ctx context.Context, sortBy string, descending bool) ([]AuthorRow, error) {
	column, ok := authorSortFields[sortBy]
	if !ok {
		column = "author.name"
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}

	key := cache.ArgsKey("author_stats", column, direction)
	rows, err := cache.GetOrLoad(ctx, s.cache, key,
		func(ctx context.Context) (*[]AuthorRow, error) {
			var list []AuthorRow
			err := s.db.NewSelect().
				TableExpr("authors AS author").
				ColumnExpr("author.id, author.name").
				ColumnExpr("COUNT(DISTINCT book.id) AS number_of_books").
				ColumnExpr("COALESCE(AVG(review.score), 0) AS average_score").
				ColumnExpr("COALESCE(author_sales.total, 0) AS total_sales").
				Join("LEFT JOIN books AS book ON book.author_id = author.id").
				Join("LEFT JOIN reviews AS review ON review.book_id = book.id").
				Join(`LEFT JOIN (
					SELECT b.author_id, SUM(s.sales) AS total
					FROM sales AS s JOIN books AS b ON b.id = s.book_id
					GROUP BY b.author_id
				) AS author_sales ON author_sales.author_id = author.id`).
				GroupExpr("author.id, author.name, author_sales.total").
				OrderExpr(column + " " + direction).
				Scan(ctx, &list)
			if err != nil {
				return nil, fmt.Errorf("load author stats: %w", err)
			}
			return &list, nil
		})
	if err != nil {
		return nil, err
	}
	return *rows, nil
}

// TopSellingBooks returns the bestsellers of one year.
func (s *StatsStore) TopSellingBooks(ctx context.Context, year, limit int) ([]SellingBook, error) {
	key := cache.ArgsKey("top_selling_books", strconv.Itoa(year), strconv.Itoa(limit))
	rows, err := cache.GetOrLoad(ctx, s.cache, key,
		func(ctx context.Context) (*[]SellingBook, error) {
			var list []SellingBook
			err := s.db.NewSelect().
				TableExpr("books AS book").
				ColumnExpr("book.id, book.name").
				ColumnExpr("author.name AS author_name").
				ColumnExpr("SUM(sale.sales) AS year_sales").
				Join("JOIN authors AS author ON author.id = book.author_id").
				Join("JOIN sales AS sale ON sale.book_id = book.id").
				Where("sale.year = ?", year).
				GroupExpr("book.id, book.name, author.name").
				OrderExpr("year_sales DESC").
				Limit(limit).
				Scan(ctx, &list)
			if err != nil {
				return nil, fmt.Errorf("load top selling books for %d: %w", year, err)
			}
			return &list, nil
		})
	if err != nil {
		return nil, err
	}
	return *rows, nil
}
