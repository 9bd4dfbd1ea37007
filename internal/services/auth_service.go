package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/constants"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = apperrors.Unauthenticated("Invalid email or password")

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is an authenticated user and the token issued for it.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingFields(missing...)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive() {
		return nil, apperrors.Unauthenticated("Account is inactive")
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.Dependency("sign token", err)
	}

	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Me returns the current user behind identity.
func (s *AuthService) Me(ctx context.Context, identity *auth.Identity) (*models.User, error) {
	if identity == nil {
		return nil, apperrors.Unauthenticated("")
	}

	user, err := s.userRepo.FindByID(ctx, identity.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.Unauthenticated("Invalid credential")
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, apperrors.Unauthenticated("Account is inactive")
	}

	return user, nil
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) < constants.MinPasswordLength {
		return "", apperrors.Validation(fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength), "password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.Dependency("hash password", err)
	}
	return string(hashed), nil
}
