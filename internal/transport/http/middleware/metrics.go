package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ErlanBelekov/magic-auth/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records latency and count per route template. CORS preflights are
// not counted.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	}
}
