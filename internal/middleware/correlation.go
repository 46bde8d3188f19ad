package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cotuzatours/booking-backend/internal/models"
	"github.com/cotuzatours/booking-backend/internal/utils"
)

const (
	// CorrelationIDHeader is read from and echoed to every request
	CorrelationIDHeader = "X-Correlation-ID"

	correlationIDKey = "correlation_id"
)

var correlationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// CorrelationID tags each request with an id carried into logs and payment audits.
// A well-formed inbound id is kept, anything else is replaced.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if !correlationIDPattern.MatchString(id) {
			id = uuid.NewString()
		}

		c.Set(correlationIDKey, id)
		c.Header(CorrelationIDHeader, id)
		c.Next()
	}
}

// GetCorrelationID returns the id set by CorrelationID, or an empty string
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}

// RequestMetadata collects the client details recorded with payment events
func RequestMetadata(c *gin.Context) models.RequestMetadata {
	userAgent := utils.GetUserAgent(c)
	return models.RequestMetadata{
		IPAddress:     utils.GetRealIP(c),
		UserAgent:     userAgent,
		CorrelationID: GetCorrelationID(c),
		Device:        utils.ParseUserAgent(userAgent),
	}
}

// MaxBodySize caps the request body read by later handlers
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
