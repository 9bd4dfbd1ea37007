package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taxoffice-api/internal/constants"
	"github.com/yukikurage/taxoffice-api/internal/idgen"
)

const maxRequestIDLength = 64

// RequestID tags every request with an ID, honouring a reasonable inbound header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(constants.RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = idgen.RequestID()
		}

		c.Set(constants.ContextKeyRequestID, id)
		c.Header(constants.RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID retrieves the request ID from context
func GetRequestID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyRequestID)
}
