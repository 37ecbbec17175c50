package catalog

import (
	"context"

	"bookcatalog/internal/cache"
	"bookcatalog/internal/search"
)

// Invalidator is the write-side counterpart of the read-through cache: a
// fixed table from (entity kind, event) to the cache keys that must go,
// plus the matching search-index update. Every mutating store method calls
// it synchronously after a successful write, before returning to the
// caller - the dependency is explicit in each write path, never hook magic.
//
// All of it is best-effort and idempotent. Deleting an absent key is a
// no-op, re-running an invalidation is harmless, and a cache or index
// failure never rolls back the write that triggered it.
type Invalidator struct {
	cache  *cache.Service
	search *search.Service
}

// NewInvalidator wires the invalidation table to its cache and search
// services.
func NewInvalidator(c *cache.Service, s *search.Service) *Invalidator {
	return &Invalidator{cache: c, search: s}
}

// authorKeys lists every cache key an author write dirties: the author's
// own snapshot, both author listings, and the book listing (it displays
// author names).
func authorKeys(authorID int64) []string {
	return []string{
		cache.Key(cache.KindAuthor, authorID),
		cache.KeyAuthorsIndex,
		cache.KeyAuthorsAll,
		cache.KeyBooksIndex,
	}
}

// bookKeys lists every cache key a book write dirties, including the
// cross-entity book count of its author.
func bookKeys(bookID, authorID int64) []string {
	return []string{
		cache.Key(cache.KindBook, bookID),
		cache.Key(cache.KindAuthorBooksCount, authorID),
		cache.KeyBooksIndex,
		cache.Key(cache.KindBookReviews, bookID),
	}
}

// reviewKeys lists every cache key a review write dirties. The book's own
// snapshot is included because its displayed rating derives from reviews.
func reviewKeys(reviewID, bookID int64) []string {
	return []string{
		cache.Key(cache.KindReview, reviewID),
		cache.Key(cache.KindReviewScore, reviewID),
		cache.Key(cache.KindBookReviews, bookID),
		cache.Key(cache.KindBook, bookID),
	}
}

// upvoteKeys lists the cache keys an upvote change dirties: the review's
// cached vote count and the book's review listing that displays it.
func upvoteKeys(reviewID, bookID int64) []string {
	return []string{
		cache.Key(cache.KindReviewScore, reviewID),
		cache.Key(cache.KindBookReviews, bookID),
	}
}

// AuthorChanged handles both saves and deletes; the key set is identical.
func (inv *Invalidator) AuthorChanged(ctx context.Context, authorID int64) {
	inv.cache.Delete(ctx, authorKeys(authorID)...)
}

// BookSaved invalidates after a book create or update and pushes the fresh
// document to the search index. The book must have its Author relation
// loaded so the document carries the author's name.
func (inv *Invalidator) BookSaved(ctx context.Context, book *Book) {
	inv.cache.Delete(ctx, bookKeys(book.ID, book.AuthorID)...)
	inv.search.IndexBook(ctx, BookDocument(book))
}

// BookDeleted invalidates after a book delete and removes its search
// document.
func (inv *Invalidator) BookDeleted(ctx context.Context, bookID, authorID int64) {
	inv.cache.Delete(ctx, bookKeys(bookID, authorID)...)
	inv.search.DeleteBook(ctx, bookID)
}

// ReviewChanged handles review saves and deletes.
func (inv *Invalidator) ReviewChanged(ctx context.Context, reviewID, bookID int64) {
	inv.cache.Delete(ctx, reviewKeys(reviewID, bookID)...)
}

// UpvoteChanged handles upvote additions and removals.
func (inv *Invalidator) UpvoteChanged(ctx context.Context, reviewID, bookID int64) {
	inv.cache.Delete(ctx, upvoteKeys(reviewID, bookID)...)
}

// BookDocument projects a book (with its Author relation loaded) onto the
// denormalized search document.
func BookDocument(b *Book) search.Document {
	doc := search.Document{
		ID:         b.ID,
		Name:       b.Name,
		Summary:    b.Summary,
		TotalSales: b.TotalSales,
	}
	if b.Author != nil {
		doc.AuthorName = b.Author.Name
	}
	if !b.PublishedAt.IsZero() {
		doc.PublishedAt = b.PublishedAt.Format("2006-01-02")
	}
	return doc
}
