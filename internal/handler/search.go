package handler

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"book-discovery/internal/logger"
	"book-discovery/internal/model"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/unicode/norm"
)

const (
	// SearchTimeout bounds one search including every lookup it fans out to
	SearchTimeout = 30 * time.Second
	// MaxQueryLength is the maximum allowed query length in characters
	MaxQueryLength = 250
)

// Searcher is the discovery service as seen by the HTTP layer
type Searcher interface {
	Search(ctx context.Context, query string) *model.SearchResult
	ClearCache()
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchHandler struct {
	searcher Searcher
}

func NewSearchHandler(s Searcher) *SearchHandler {
	return &SearchHandler{searcher: s}
}

// HandleSearch serves GET /api/search?q= and POST /api/search
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	query := c.Query("q")
	if c.Request.Method == http.MethodPost {
		var req SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
				"code":  "INVALID_REQUEST",
			})
			return
		}
		query = req.Query
	}

	// Normalize Unicode to NFC form so length checks and cache keys agree
	query = strings.TrimSpace(norm.NFC.String(query))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: query is required",
			"code":  "INVALID_REQUEST",
		})
		return
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query is too long (max 250 characters)",
			"code":  "QUERY_TOO_LONG",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), SearchTimeout)
	defer cancel()

	result := h.searcher.Search(ctx, query)
	logger.For(ctx).Debugf("[SEARCH] Returning %d book(s) for %q", result.TotalResults, query)
	c.JSON(http.StatusOK, result)
}

// HandleClearCache serves DELETE /api/cache
func (h *SearchHandler) HandleClearCache(c *gin.Context) {
	h.searcher.ClearCache()
	c.Status(http.StatusNoContent)
}
