package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// TextSearch is the database-native fallback behind the search service:
// a tokenized, case-insensitive match over book name, summary, and author
// name. Ranking is the store's natural ordering (book name); the external
// index owns relevance ranking when it is up.
type TextSearch struct {
	db *bun.DB
}

// NewTextSearch creates the fallback searcher.
func NewTextSearch(db *bun.DB) *TextSearch {
	return &TextSearch{db: db}
}

// SearchBookIDs returns the ids of books where every query token appears in
// the name, summary, or author name. A nil restrict searches all books;
// a non-nil restrict limits the candidate set.
func (t *TextSearch) SearchBookIDs(ctx context.Context, query string, restrict []int64) ([]int64, error) {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return restrict, nil
	}
	if restrict != nil && len(restrict) == 0 {
		return []int64{}, nil
	}

	q := t.db.NewSelect().
		Model((*Book)(nil)).
		Column("book.id").
		Join("JOIN authors AS author ON author.id = book.author_id")

	for _, tok := range tokens {
		pattern := "%" + tok + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("lower(book.name) LIKE ?", pattern).
				WhereOr("lower(book.summary) LIKE ?", pattern).
				WhereOr("lower(author.name) LIKE ?", pattern)
		})
	}
	if restrict != nil {
		q = q.Where("book.id IN (?)", bun.In(restrict))
	}

	var ids []int64
	if err := q.Order("book.name ASC").Scan(ctx, &ids); err != nil {
		return nil, fmt.Errorf("database text search: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}
