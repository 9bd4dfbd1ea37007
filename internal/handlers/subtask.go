package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taxoffice-api/internal/dto"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/middleware"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/services"
	"go.uber.org/zap"
)

type SubtaskHandler struct {
	taskService *services.TaskService
	log         *zap.Logger
}

func NewSubtaskHandler(taskService *services.TaskService, log *zap.Logger) *SubtaskHandler {
	return &SubtaskHandler{
		taskService: taskService,
		log:         log,
	}
}

// ListSubtasks returns subtasks in scope, optionally filtered by task_id
func (h *SubtaskHandler) ListSubtasks(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	taskID, err := queryUint(c, "task_id")
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	subtasks, err := h.taskService.ListSubtasks(c.Request.Context(), identity, taskID)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subtasks": dto.ToSubtaskDTOs(subtasks)})
}

// CreateSubtask adds a subtask to a task
func (h *SubtaskHandler) CreateSubtask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type CreateSubtaskRequest struct {
		TaskID      uint64  `json:"task_id"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		AssignedTo  *uint64 `json:"assigned_to"`
		DueDate     string  `json:"due_date"`
	}

	var req CreateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	dueDate, err := parseTime("due_date", req.DueDate)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	subtask, err := h.taskService.CreateSubtask(c.Request.Context(), identity, services.CreateSubtaskInput{
		TaskID:      req.TaskID,
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		DueDate:     dueDate,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToSubtaskDTO(*subtask))
}

// UpdateSubtask applies a partial update to a subtask
func (h *SubtaskHandler) UpdateSubtask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type UpdateSubtaskRequest struct {
		Title       *string            `json:"title"`
		Description *string            `json:"description"`
		Status      *models.TaskStatus `json:"status"`
		AssignedTo  *uint64            `json:"assigned_to"`
		DueDate     *string            `json:"due_date"`
	}

	var req UpdateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateSubtaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			input.ClearDueDate = true
		} else {
			due, err := parseTime("due_date", *req.DueDate)
			if err != nil {
				apperrors.Respond(c, h.log, err)
				return
			}
			input.DueDate = due
		}
	}

	subtask, err := h.taskService.UpdateSubtask(c.Request.Context(), identity, middleware.GetNumericID(c), input)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSubtaskDTO(*subtask))
}

// DeleteSubtask removes a subtask
func (h *SubtaskHandler) DeleteSubtask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteSubtask(c.Request.Context(), identity, middleware.GetNumericID(c)); err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subtask deleted successfully"})
}
