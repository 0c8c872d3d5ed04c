package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denisAlshanov/ytproxy/internal/metrics"
)

// MetricsMiddleware records request counts and latency per route template.
// Unmatched paths share one label to keep cardinality bounded.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordHTTPRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
