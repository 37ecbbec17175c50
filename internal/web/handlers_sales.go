package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookcatalog/internal/catalog"
)

func (s *Server) handleBookSales(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if _, err := s.books.GetByID(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	sales, err := s.sales.ByBook(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (s *Server) handleCreateSale(c *gin.Context) {
	bookID, ok := paramID(c)
	if !ok {
		return
	}
	book, err := s.books.GetByID(c.Request.Context(), bookID)
	if err != nil {
		renderError(c, err)
		return
	}
	var p salePayload
	if !bindPayload(c, &p) {
		return
	}
	if p.Year < book.PublishedAt.Year() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year predates the book's publication"})
		return
	}
	sale := &catalog.Sale{BookID: bookID, Year: p.Year, Sales: p.Sales}
	if err := s.sales.Create(c.Request.Context(), sale); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// handleUpdateSale corrects a recorded figure. The sale's book is resolved
// first so the corrected year obeys the same publication lower bound as
// creation.
func (s *Server) handleUpdateSale(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	existing, err := s.sales.GetByID(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	book, err := s.books.GetByID(c.Request.Context(), existing.BookID)
	if err != nil {
		renderError(c, err)
		return
	}
	var p salePayload
	if !bindPayload(c, &p) {
		return
	}
	if p.Year < book.PublishedAt.Year() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year predates the book's publication"})
		return
	}
	sale := &catalog.Sale{ID: id, BookID: existing.BookID, Year: p.Year, Sales: p.Sales}
	if err := s.sales.Update(c.Request.Context(), sale); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (s *Server) handleDeleteSale(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.sales.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
