package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
)

const contextKeyResourceID = "resource_id"

// RequireNumericID parses the :id path parameter of numeric resources
func RequireNumericID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			apperrors.BadRequest(c, "Invalid ID")
			return
		}

		c.Set(contextKeyResourceID, id)
		c.Next()
	}
}

// GetNumericID retrieves the ID parsed by RequireNumericID
func GetNumericID(c *gin.Context) uint64 {
	return c.GetUint64(contextKeyResourceID)
}
