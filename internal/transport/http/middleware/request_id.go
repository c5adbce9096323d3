package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/infra/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags the request with a correlation identifier and echoes it in
// the response. An inbound header is honored only when it parses as a UUID;
// anything else is attacker-controlled log content and gets replaced.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, reqID)

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
