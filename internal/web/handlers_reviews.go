package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookcatalog/internal/catalog"
)

// reviewResponse pairs a review with its live upvote count.
type reviewResponse struct {
	catalog.Review
	UpvoteCount int64 `json:"upvote_count"`
}

func (s *Server) handleBookReviews(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if _, err := s.books.GetByID(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	reviews, err := s.reviews.ByBook(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}

	out := make([]reviewResponse, 0, len(reviews))
	for _, r := range reviews {
		count, err := s.reviews.UpvoteCount(c.Request.Context(), r.ID)
		if err != nil {
			renderError(c, err)
			return
		}
		out = append(out, reviewResponse{Review: r, UpvoteCount: count})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateReview(c *gin.Context) {
	bookID, ok := paramID(c)
	if !ok {
		return
	}
	if _, err := s.books.GetByID(c.Request.Context(), bookID); err != nil {
		renderError(c, err)
		return
	}
	var p reviewPayload
	if !bindPayload(c, &p) {
		return
	}
	review := &catalog.Review{
		BookID:   bookID,
		Review:   p.Review,
		Score:    p.Score,
		Reviewer: p.Reviewer,
	}
	if err := s.reviews.Create(c.Request.Context(), review); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (s *Server) handleUpdateReview(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	existing, err := s.reviews.GetByID(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	var p reviewPayload
	if !bindPayload(c, &p) {
		return
	}
	existing.Review = p.Review
	existing.Score = p.Score
	if err := s.reviews.Update(c.Request.Context(), existing); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, existing)
}

func (s *Server) handleDeleteReview(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.reviews.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAddUpvote(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var p upvotePayload
	if !bindPayload(c, &p) {
		return
	}
	if err := s.reviews.AddUpvote(c.Request.Context(), id, p.Voter); err != nil {
		renderError(c, err)
		return
	}
	count, err := s.reviews.UpvoteCount(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upvote_count": count})
}

func (s *Server) handleRemoveUpvote(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var p upvotePayload
	if !bindPayload(c, &p) {
		return
	}
	if err := s.reviews.RemoveUpvote(c.Request.Context(), id, p.Voter); err != nil {
		renderError(c, err)
		return
	}
	count, err := s.reviews.UpvoteCount(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upvote_count": count})
}
