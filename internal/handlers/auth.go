package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taxoffice-api/internal/constants"
	"github.com/yukikurage/taxoffice-api/internal/dto"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/services"
	"go.uber.org/zap"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService  *services.AuthService
	secureCookie bool
	log          *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the auth
// cookie Secure and should be set when served over HTTPS.
func NewAuthHandler(authService *services.AuthService, secureCookie bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
		log:          log,
	}
}

// Login authenticates a user and sets the auth cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	h.setAuthCookie(c, result.Token, constants.AuthCookieMaxAge)
	c.JSON(http.StatusOK, gin.H{
		"user":       dto.ToUserDTO(*result.User),
		"expires_at": result.ExpiresAt,
	})
}

// Logout clears the auth cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setAuthCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(c.Request.Context(), identity)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.AuthCookieName, value, maxAge, "/", "", h.secureCookie, true)
}
