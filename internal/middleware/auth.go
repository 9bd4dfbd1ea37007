package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/constants"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"go.uber.org/zap"
)

// RequireAuth verifies the auth cookie and stores the identity in context
func RequireAuth(tokens *auth.TokenManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(constants.AuthCookieName)
		if err != nil {
			apperrors.Respond(c, log, apperrors.Unauthenticated(""))
			return
		}

		identity, err := tokens.Verify(token)
		if err != nil {
			apperrors.Respond(c, log, err)
			return
		}

		// Store identity in context for easy access in handlers
		c.Set(constants.ContextKeyIdentity, identity)
		c.Next()
	}
}

// GetIdentity retrieves the current identity from context
func GetIdentity(c *gin.Context) (*auth.Identity, bool) {
	value, exists := c.Get(constants.ContextKeyIdentity)
	if !exists {
		return nil, false
	}

	identity, ok := value.(*auth.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
