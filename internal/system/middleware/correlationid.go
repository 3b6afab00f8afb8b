package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKeyCorrelationID is the gin context key carrying the request's
// correlation ID.
const ContextKeyCorrelationID = "correlation_id"

func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := extractCorrelationID(c)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		c.Set(ContextKeyCorrelationID, correlationID)
		c.Header("X-Correlation-ID", correlationID)
		c.Next()
	}
}

func extractCorrelationID(c *gin.Context) string {
	headers := []string{"X-Correlation-ID", "X-Request-ID", "X-Trace-ID"}
	for _, header := range headers {
		if id := c.GetHeader(header); id != "" {
			return id
		}
	}
	return ""
}

// RequestLogger returns a logger entry annotated with the request's
// correlation ID, for use inside handlers.
func RequestLogger(c *gin.Context, logger *logrus.Logger) *logrus.Entry {
	return logger.WithField(ContextKeyCorrelationID, c.GetString(ContextKeyCorrelationID))
}
