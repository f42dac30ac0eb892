// Package handler implements the HTTP surface of the restaurant search API.
package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uncovercity/BistroHunter/internal/extract"
	"github.com/uncovercity/BistroHunter/internal/notify"
	"github.com/uncovercity/BistroHunter/internal/search"
)

// Searcher runs one restaurant search. The production implementation is
// *search.Service; tests swap in doubles.
type Searcher interface {
	Search(ctx context.Context, crit search.Criteria) ([]search.Restaurant, error)
}

// Handler holds the domain dependencies for all HTTP handlers.
// A single Handler is shared across all routes; individual methods are
// registered as gin handler functions.
type Handler struct {
	searcher  Searcher
	extractor extract.Extractor
	notifier  notify.Notifier
}

// New creates a Handler with the given dependencies.
func New(searcher Searcher, extractor extract.Extractor, notifier notify.Notifier) *Handler {
	return &Handler{
		searcher:  searcher,
		extractor: extractor,
		notifier:  notifier,
	}
}

// Root handles GET /.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Bienvenido a la API de búsqueda de restaurantes",
	})
}

// writeSearchError maps a pipeline error onto the HTTP taxonomy: bad input →
// 400, unresolvable zone/city → 404, everything else → generic 500 with the
// detail kept server-side.
func writeSearchError(c *gin.Context, err error) {
	switch {
	case search.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case search.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("handler: search failed (request %s): %v", requestID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error interno del servidor"})
	}
}

func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}
