package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/denisAlshanov/ytproxy/internal/utils"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	RequestIDHeader     = "X-Request-ID"
)

// Orchestrators poll these every few seconds; they only log at debug.
var healthPaths = map[string]bool{
	"/health": true,
	"/ready":  true,
	"/live":   true,
}

// CorrelationIDMiddleware tags each request with correlation and request IDs
// and logs its outcome. A response that sends fewer bytes than its declared
// Content-Length is logged as truncated, which is how a relay cut short by
// the origin shows up.
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Reuse the caller's correlation ID so app logs and server logs line up
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = utils.GenerateCorrelationID()
		}
		requestID := utils.GenerateRequestID()

		c.Set("correlation_id", correlationID)
		c.Set("request_id", requestID)
		c.Header(CorrelationIDHeader, correlationID)
		c.Header(RequestIDHeader, requestID)

		ctx := utils.WithCorrelationID(c.Request.Context(), correlationID)
		ctx = utils.WithRequestID(ctx, requestID)
		c.Request = c.Request.WithContext(ctx)

		level := logrus.InfoLevel
		if healthPaths[c.Request.URL.Path] {
			level = logrus.DebugLevel
		}

		utils.LoggerFromContext(ctx).WithFields(utils.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"ip":     c.ClientIP(),
		}).Log(level, "Incoming request")

		start := time.Now()
		c.Next()

		written := int64(c.Writer.Size())
		if written < 0 {
			written = 0
		}
		fields := utils.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"bytes":       written,
			"duration_ms": time.Since(start).Milliseconds(),
		}

		if declared, ok := declaredLength(c); ok && written < declared {
			fields["expected_bytes"] = declared
			utils.LogWarn(ctx, "Response truncated", fields)
			return
		}

		utils.LoggerFromContext(ctx).WithFields(fields).Log(level, "Request completed")
	}
}

func declaredLength(c *gin.Context) (int64, bool) {
	value := c.Writer.Header().Get("Content-Length")
	if value == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
