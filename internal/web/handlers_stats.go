package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// queryInt reads an integer query parameter with a default and bounds.
func queryInt(c *gin.Context, name string, def, min, max int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return def
	}
	return n
}

func (s *Server) handleTopRated(c *gin.Context) {
	limit := queryInt(c, "limit", 10, 1, 100)
	books, err := s.stats.TopRatedBooks(c.Request.Context(), limit)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) handleAuthorStats(c *gin.Context) {
	sortBy := c.DefaultQuery("sort", "name")
	descending := c.Query("dir") == "desc"
	rows, err := s.stats.AuthorStats(c.Request.Context(), sortBy, descending)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleTopSelling(c *gin.Context) {
	year := queryInt(c, "year", time.Now().Year(), 1000, time.Now().Year())
	limit := queryInt(c, "limit", 10, 1, 100)
	books, err := s.stats.TopSellingBooks(c.Request.Context(), year, limit)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}
