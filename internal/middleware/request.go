package middleware

import (
	"strconv"
	"time"

	"book-discovery/internal/logger"
	"book-discovery/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 64

// RequestID reuses a caller-supplied X-Request-ID or generates one, and
// stores it in the request context for logger.For.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.New().String()
		}
		c.Request = c.Request.WithContext(logger.ContextWithID(c.Request.Context(), id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs every request and records HTTP metrics
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		dur := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(path).Observe(dur.Seconds())

		entry := logger.For(c.Request.Context()).WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   status,
			"duration": dur.String(),
			"client":   c.ClientIP(),
		})
		switch {
		case status >= 500:
			entry.Error("[HTTP] Request failed")
		case status >= 400:
			entry.Warn("[HTTP] Request rejected")
		default:
			entry.Info("[HTTP] Request completed")
		}
	}
}
