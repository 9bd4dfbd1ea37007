package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taxoffice-api/internal/dto"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/middleware"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"github.com/yukikurage/taxoffice-api/internal/services"
	"github.com/yukikurage/taxoffice-api/internal/utils"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *services.UserService
	log         *zap.Logger
}

func NewUserHandler(userService *services.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

// ListUsers returns users visible to the caller
func (h *UserHandler) ListUsers(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	role, err := queryEnum(c, "role", models.Role.Valid)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}
	status, err := queryEnum(c, "status", models.UserStatus.Valid)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}
	leaderID, err := queryUint(c, "team_leader_id")
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	params := utils.GetPaginationParams(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), identity, repository.UserFilter{
		Role:         role,
		Status:       status,
		TeamLeaderID: leaderID,
		Pagination:   params,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(dto.ToUserDTOs(users), params, total))
}

// GetUser returns a user by ID
func (h *UserHandler) GetUser(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), identity, middleware.GetNumericID(c))
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// CreateUser creates a staff account
func (h *UserHandler) CreateUser(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type CreateUserRequest struct {
		Name         string      `json:"name"`
		Email        string      `json:"email"`
		Password     string      `json:"password"`
		Role         models.Role `json:"role"`
		TeamLeaderID *uint64     `json:"team_leader_id"`
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), identity, services.CreateUserInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		TeamLeaderID: req.TeamLeaderID,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// UpdateUser applies a partial update to a user
func (h *UserHandler) UpdateUser(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type UpdateUserRequest struct {
		Name            *string            `json:"name"`
		Email           *string            `json:"email"`
		Password        *string            `json:"password"`
		Role            *models.Role       `json:"role"`
		Status          *models.UserStatus `json:"status"`
		TeamLeaderID    *uint64            `json:"team_leader_id"`
		ClearTeamLeader bool               `json:"clear_team_leader"`
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), identity, middleware.GetNumericID(c), services.UpdateUserInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		Role:            req.Role,
		Status:          req.Status,
		TeamLeaderID:    req.TeamLeaderID,
		ClearTeamLeader: req.ClearTeamLeader,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeactivateUser marks a user inactive. Users are never hard deleted.
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	user, err := h.userService.DeactivateUser(c.Request.Context(), identity, middleware.GetNumericID(c))
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deactivated successfully",
		"user":    dto.ToUserDTO(*user),
	})
}
