package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleListBooks serves the book listing, optionally narrowed by a ?q=
// free-text query, paginated in-handler so the cached full listing stays a
// single cache entry.
func (s *Server) handleListBooks(c *gin.Context) {
	books, err := s.books.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		renderError(c, err)
		return
	}

	page := queryInt(c, "page", 1, 1, 1<<20)
	pageSize := queryInt(c, "page_size", 50, 1, 200)
	total := len(books)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"books":     books[start:end],
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (s *Server) handleGetBook(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	book, err := s.books.GetByID(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// createBook validates the payload's author before inserting, so a dangling
// author id is a 404 instead of a constraint error.
func (s *Server) handleCreateBook(c *gin.Context) {
	var p bookPayload
	if !bindPayload(c, &p) {
		return
	}
	if !s.checkBookDates(c, &p) {
		return
	}
	book := p.toModel()
	if err := s.books.Create(c.Request.Context(), book); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (s *Server) handleUpdateBook(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var p bookPayload
	if !bindPayload(c, &p) {
		return
	}
	if !s.checkBookDates(c, &p) {
		return
	}
	book := p.toModel()
	book.ID = id
	if err := s.books.Update(c.Request.Context(), book); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *Server) handleDeleteBook(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.books.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// checkBookDates resolves the payload's author and rejects a publication
// date earlier than the author's date of birth. Writes the response on
// failure.
func (s *Server) checkBookDates(c *gin.Context, p *bookPayload) bool {
	author, err := s.authors.GetByID(c.Request.Context(), p.AuthorID)
	if err != nil {
		renderError(c, err)
		return false
	}
	if author.DateOfBirth != nil {
		published, perr := parseDate(p.PublishedAt)
		if perr == nil && published.Before(*author.DateOfBirth) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "published_at predates the author's date of birth",
			})
			return false
		}
	}
	return true
}
