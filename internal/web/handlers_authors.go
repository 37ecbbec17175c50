package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// paramID parses the :id path parameter. A malformed id writes the 400
// response itself and reports false.
func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// bindPayload decodes and validates a JSON body. Failures write the 400
// response and report false.
func bindPayload(c *gin.Context, p interface{ Validate() error }) bool {
	if err := c.ShouldBindJSON(p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return false
	}
	if err := p.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) handleListAuthors(c *gin.Context) {
	authors, err := s.authors.List(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, authors)
}

// handleAuthorOptions serves the slim author list used to populate
// selection inputs, cached separately from the full listing.
func (s *Server) handleAuthorOptions(c *gin.Context) {
	authors, err := s.authors.All(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, authors)
}

func (s *Server) handleGetAuthor(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	author, err := s.authors.GetByID(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	books, err := s.authors.BooksCount(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"author": author, "books_count": books})
}

func (s *Server) handleCreateAuthor(c *gin.Context) {
	var p authorPayload
	if !bindPayload(c, &p) {
		return
	}
	author := p.toModel()
	if err := s.authors.Create(c.Request.Context(), author); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, author)
}

func (s *Server) handleUpdateAuthor(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var p authorPayload
	if !bindPayload(c, &p) {
		return
	}
	author := p.toModel()
	author.ID = id
	if err := s.authors.Update(c.Request.Context(), author); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, author)
}

func (s *Server) handleDeleteAuthor(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.authors.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAuthorBooks(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if _, err := s.authors.GetByID(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	books, err := s.books.ByAuthor(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}
