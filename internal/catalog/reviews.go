package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookcatalog/internal/cache"

	"github.com/uptrace/bun"
)

// ReviewStore handles reviews and their upvotes. The per-review vote count
// is cached independently of the review body so a flood of upvotes only
// churns the small counter entry.
type ReviewStore struct {
	db    *bun.DB
	cache *cache.Service
	inv   *Invalidator
}

// NewReviewStore creates a review store.
func NewReviewStore(db *bun.DB, c *cache.Service, inv *Invalidator) *ReviewStore {
	return &ReviewStore{db: db, cache: c, inv: inv}
}

// GetByID returns a review, from cache when fresh.
func (s *ReviewStore) GetByID(ctx context.Context, id int64) (*Review, error) {
	review, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.KindReview, id),
		func(ctx context.Context) (*Review, error) {
			r := new(Review)
			err := s.db.NewSelect().Model(r).Where("id = ?", id).Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			if err != nil {
				return nil, fmt.Errorf("load review %d: %w", id, err)
			}
			return r, nil
		})
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, ErrNotFound
	}
	return review, nil
}

// ByBook returns a book's reviews, newest first, cached per book.
func (s *ReviewStore) ByBook(ctx context.Context, bookID int64) ([]Review, error) {
	reviews, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.KindBookReviews, bookID),
		func(ctx context.Context) (*[]Review, error) {
			var list []Review
			err := s.db.NewSelect().Model(&list).
				Where("book_id = ?", bookID).
				Order("id DESC").
				Scan(ctx)
			if err != nil {
				return nil, fmt.Errorf("load reviews for book %d: %w", bookID, err)
			}
			return &list, nil
		})
	if err != nil {
		return nil, err
	}
	return *reviews, nil
}

// Create inserts a new review.
func (s *ReviewStore) Create(ctx context.Context, r *Review) error {
	if _, err := s.db.NewInsert().Model(r).Exec(ctx); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	s.inv.ReviewChanged(ctx, r.ID, r.BookID)
	return nil
}

// Update saves an existing review's text and score.
func (s *ReviewStore) Update(ctx context.Context, r *Review) error {
	res, err := s.db.NewUpdate().Model(r).
		Column("review", "score").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update review %d: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.inv.ReviewChanged(ctx, r.ID, r.BookID)
	return nil
}

// Delete removes a review and its upvotes.
func (s *ReviewStore) Delete(ctx context.Context, id int64) error {
	r := new(Review)
	err := s.db.NewSelect().Model(r).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load review %d: %w", id, err)
	}

	if _, err := s.db.NewDelete().Model((*ReviewUpvote)(nil)).
		Where("review_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete upvotes for review %d: %w", id, err)
	}
	if _, err := s.db.NewDelete().Model((*Review)(nil)).
		Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete review %d: %w", id, err)
	}
	s.inv.ReviewChanged(ctx, id, r.BookID)
	return nil
}

// UpvoteCount returns the live upvote count of a review, cached under its
// own key.
func (s *ReviewStore) UpvoteCount(ctx context.Context, reviewID int64) (int64, error) {
	count, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.KindReviewScore, reviewID),
		func(ctx context.Context) (*int64, error) {
			n, err := s.db.NewSelect().Model((*ReviewUpvote)(nil)).
				Where("review_id = ?", reviewID).
				Count(ctx)
			if err != nil {
				return nil, fmt.Errorf("count upvotes for review %d: %w", reviewID, err)
			}
			c := int64(n)
			return &c, nil
		})
	if err != nil {
		return 0, err
	}
	return *count, nil
}

// AddUpvote records one voter's upvote on a review. A second vote by the
// same voter is ErrDuplicate, enforced by the unique (review_id, voter)
// index.
func (s *ReviewStore) AddUpvote(ctx context.Context, reviewID int64, voter string) error {
	r := new(Review)
	err := s.db.NewSelect().Model(r).Column("id", "book_id").Where("id = ?", reviewID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load review %d: %w", reviewID, err)
	}

	vote := &ReviewUpvote{ReviewID: reviewID, Voter: voter, CreatedAt: time.Now()}
	if _, err := s.db.NewInsert().Model(vote).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("add upvote to review %d: %w", reviewID, err)
	}
	s.inv.UpvoteChanged(ctx, reviewID, r.BookID)
	return nil
}

// RemoveUpvote withdraws a voter's upvote. Removing a vote that was never
// cast is ErrNotFound.
func (s *ReviewStore) RemoveUpvote(ctx context.Context, reviewID int64, voter string) error {
	r := new(Review)
	err := s.db.NewSelect().Model(r).Column("id", "book_id").Where("id = ?", reviewID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load review %d: %w", reviewID, err)
	}

	res, err := s.db.NewDelete().Model((*ReviewUpvote)(nil)).
		Where("review_id = ? AND voter = ?", reviewID, voter).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove upvote from review %d: %w", reviewID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.inv.UpvoteChanged(ctx, reviewID, r.BookID)
	return nil
}

// RecomputeUpVotes persists the live upvote count onto the review row's
// denormalized column.
func (s *ReviewStore) RecomputeUpVotes(ctx context.Context, reviewID int64) error {
	_, err := s.db.NewUpdate().Model((*Review)(nil)).
		Set("up_votes = (SELECT COUNT(*) FROM review_upvotes WHERE review_id = ?)", reviewID).
		Where("id = ?", reviewID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recompute upvotes for review %d: %w", reviewID, err)
	}
	return nil
}
