// Package web exposes the catalog over HTTP as a JSON API.
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"bookcatalog/internal/catalog"
	"bookcatalog/internal/search"
)

// Server routes HTTP requests to the catalog stores.
type Server struct {
	authors *catalog.AuthorStore
	books   *catalog.BookStore
	reviews *catalog.ReviewStore
	sales   *catalog.SaleStore
	stats   *catalog.StatsStore
	search  *search.Service
	dbCheck func(context.Context) error

	engine *gin.Engine
}

// Option customizes the server.
type Option func(*Server)

// WithDBCheck registers the database reachability probe used by the health
// endpoint.
func WithDBCheck(check func(context.Context) error) Option {
	return func(s *Server) { s.dbCheck = check }
}

// NewServer builds the router over the given stores.
func NewServer(
	authors *catalog.AuthorStore,
	books *catalog.BookStore,
	reviews *catalog.ReviewStore,
	sales *catalog.SaleStore,
	stats *catalog.StatsStore,
	searchSvc *search.Service,
	opts ...Option,
) *Server {
	s := &Server{
		authors: authors,
		books:   books,
		reviews: reviews,
		sales:   sales,
		stats:   stats,
		search:  searchSvc,
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(RequestID(), RequestLogger(), gin.Recovery())

	engine.GET("/health", s.handleHealth)

	api := engine.Group("/api")
	{
		api.GET("/authors", s.handleListAuthors)
		api.GET("/authors/options", s.handleAuthorOptions)
		api.POST("/authors", s.handleCreateAuthor)
		api.GET("/authors/:id", s.handleGetAuthor)
		api.PUT("/authors/:id", s.handleUpdateAuthor)
		api.DELETE("/authors/:id", s.handleDeleteAuthor)
		api.GET("/authors/:id/books", s.handleAuthorBooks)

		api.GET("/books", s.handleListBooks)
		api.POST("/books", s.handleCreateBook)
		api.GET("/books/:id", s.handleGetBook)
		api.PUT("/books/:id", s.handleUpdateBook)
		api.DELETE("/books/:id", s.handleDeleteBook)
		api.GET("/books/:id/reviews", s.handleBookReviews)
		api.POST("/books/:id/reviews", s.handleCreateReview)
		api.GET("/books/:id/sales", s.handleBookSales)
		api.POST("/books/:id/sales", s.handleCreateSale)

		api.PUT("/reviews/:id", s.handleUpdateReview)
		api.DELETE("/reviews/:id", s.handleDeleteReview)
		api.POST("/reviews/:id/upvotes", s.handleAddUpvote)
		api.DELETE("/reviews/:id/upvotes", s.handleRemoveUpvote)

		api.PUT("/sales/:id", s.handleUpdateSale)
		api.DELETE("/sales/:id", s.handleDeleteSale)

		api.GET("/stats/top-rated", s.handleTopRated)
		api.GET("/stats/authors", s.handleAuthorStats)
		api.GET("/stats/top-selling", s.handleTopSelling)
	}

	s.engine = engine
	return s
}

// Handler returns the http.Handler for mounting or testing.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	log.WithField("addr", addr).Info("http server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	}
}

// handleHealth reports liveness: database reachability and the search
// backend currently in use. A failing database is a 503; search being in
// fallback is reported but still healthy.
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	overall := "ok"
	dbState := "ok"
	if s.dbCheck != nil {
		if err := s.dbCheck(c.Request.Context()); err != nil {
			dbState = "unreachable"
			overall = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	mode := "database"
	if s.search.Available() {
		mode = "indexed"
	}
	c.JSON(status, gin.H{
		"status":   overall,
		"database": dbState,
		"search":   mode,
	})
}

// renderError maps domain errors onto HTTP statuses.
func renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, catalog.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
