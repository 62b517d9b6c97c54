package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	LLM       string `json:"llm"`
	PDFSearch string `json:"pdfSearch"`
}

// HealthHandler reports liveness and readiness
type HealthHandler struct {
	llmReady  bool
	pdfSearch bool
}

func NewHealthHandler(llmReady, pdfSearch bool) *HealthHandler {
	return &HealthHandler{llmReady: llmReady, pdfSearch: pdfSearch}
}

// HandleHealth returns the health status of the service.
// It always answers 200; a missing LLM key only degrades the status.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	status := "healthy"
	if !h.llmReady {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		LLM:       availability(h.llmReady),
		PDFSearch: availability(h.pdfSearch),
	})
}

// HandleReadiness returns whether the service can answer searches.
// Stricter than health: without an LLM every search is empty.
func (h *HealthHandler) HandleReadiness(c *gin.Context) {
	if !h.llmReady {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "llm_not_configured",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func availability(ok bool) string {
	if ok {
		return "ready"
	}
	return "unavailable"
}
