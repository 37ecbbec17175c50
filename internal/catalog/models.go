package catalog

import (
	"time"

	"github.com/uptrace/bun"
)

// Bun models for the catalog tables. These structs double as the cache
// snapshot schema: they are plain data, encoded with msgpack by the cache
// layer, so every field added here changes the snapshot format too.

// Author represents a writer with zero or more books in the catalog.
type Author struct {
	bun.BaseModel `bun:"table:authors" msgpack:",omitempty"`

	ID          int64      `bun:"id,pk,autoincrement" json:"id"`
	Name        string     `bun:"name,notnull" json:"name"`
	Country     string     `bun:"country,notnull" json:"country"`
	DateOfBirth *time.Time `bun:"date_of_birth" json:"date_of_birth,omitempty"`
	Description string     `bun:"description" json:"description,omitempty"`

	// TotalSales is annotated by queries that join the sales table; it is
	// not a column.
	TotalSales int64 `bun:"total_sales,scanonly" json:"total_sales"`
}

// Book belongs to exactly one author.
type Book struct {
	bun.BaseModel `bun:"table:books" msgpack:",omitempty"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	AuthorID    int64     `bun:"author_id,notnull" json:"author_id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Summary     string    `bun:"summary,notnull" json:"summary"`
	PublishedAt time.Time `bun:"published_at,notnull" json:"published_at"`

	// TotalSales is denormalized from the sales table and recomputed
	// whenever a sale row changes.
	TotalSales int64 `bun:"total_sales,notnull,default:0" json:"total_sales"`

	Author *Author `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
}

// Review is a scored write-up of a book.
type Review struct {
	bun.BaseModel `bun:"table:reviews" msgpack:",omitempty"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	BookID   int64  `bun:"book_id,notnull" json:"book_id"`
	Review   string `bun:"review,notnull" json:"review"`
	Score    int    `bun:"score,notnull" json:"score"`
	Reviewer string `bun:"reviewer,notnull" json:"reviewer"`

	// UpVotes is denormalized from the review_upvotes table.
	UpVotes int64 `bun:"up_votes,notnull,default:0" json:"up_votes"`
}

// ReviewUpvote records a single reviewer's vote on a review. One vote per
// (review, voter) pair, enforced by a unique index.
type ReviewUpvote struct {
	bun.BaseModel `bun:"table:review_upvotes"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	ReviewID  int64     `bun:"review_id,notnull" json:"review_id"`
	Voter     string    `bun:"voter,notnull" json:"voter"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Sale holds one calendar year's sales figure for a book. One row per
// (book, year) pair.
type Sale struct {
	bun.BaseModel `bun:"table:sales"`

	ID     int64 `bun:"id,pk,autoincrement" json:"id"`
	BookID int64 `bun:"book_id,notnull" json:"book_id"`
	Year   int   `bun:"year,notnull" json:"year"`
	Sales  int64 `bun:"sales,notnull,default:0" json:"sales"`
}
