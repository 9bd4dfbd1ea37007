package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taxoffice-api/internal/dto"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/middleware"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/services"
	"github.com/yukikurage/taxoffice-api/internal/utils"
	"go.uber.org/zap"
)

type TaskHandler struct {
	taskService *services.TaskService
	log         *zap.Logger
}

func NewTaskHandler(taskService *services.TaskService, log *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		log:         log,
	}
}

// listInput reads the task filters shared by both list endpoints.
func listInput(c *gin.Context) (services.ListTasksInput, error) {
	var input services.ListTasksInput

	status, err := queryEnum(c, "status", models.TaskStatus.Valid)
	if err != nil {
		return input, err
	}
	priority, err := queryEnum(c, "priority", models.TaskPriority.Valid)
	if err != nil {
		return input, err
	}
	category, err := queryEnum(c, "task_category", models.TaskCategory.Valid)
	if err != nil {
		return input, err
	}
	assignedTo, err := queryUint(c, "assigned_to")
	if err != nil {
		return input, err
	}

	input.Status = status
	input.Priority = priority
	input.Category = category
	input.AssignedTo = assignedTo
	input.ClientID = c.Query("client_id")
	input.DueToday = c.Query("due_today") == "true"
	input.SortByDueDate = c.Query("sort") == "due_date"
	input.Pagination = utils.GetPaginationParams(c)
	return input, nil
}

// ListTasks returns tasks visible to the caller
func (h *TaskHandler) ListTasks(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	input, err := listInput(c)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), identity, input)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(dto.ToTaskDTOs(tasks), input.Pagination, total))
}

// ListTasksWithProgress returns tasks together with their subtask progress
func (h *TaskHandler) ListTasksWithProgress(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	input, err := listInput(c)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	tasks, total, err := h.taskService.ListTasksWithProgress(c.Request.Context(), identity, input)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(dto.ToTaskWithProgressDTOs(tasks), input.Pagination, total))
}

// GetTask returns a task with its assignee and subtasks
func (h *TaskHandler) GetTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), identity, middleware.GetNumericID(c))
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title          string              `json:"title"`
		Description    string              `json:"description"`
		Status         models.TaskStatus   `json:"status"`
		Priority       models.TaskPriority `json:"priority"`
		DueDate        string              `json:"due_date"`
		AssignedTo     *uint64             `json:"assigned_to"`
		ClientID       *string             `json:"client_id"`
		EstimatedHours float64             `json:"estimated_hours"`
		TaskCategory   models.TaskCategory `json:"task_category"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	dueDate, err := parseTime("due_date", req.DueDate)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), identity, services.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		DueDate:        dueDate,
		AssignedTo:     req.AssignedTo,
		ClientID:       req.ClientID,
		EstimatedHours: req.EstimatedHours,
		TaskCategory:   req.TaskCategory,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update to a task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title              *string              `json:"title"`
		Description        *string              `json:"description"`
		Status             *models.TaskStatus   `json:"status"`
		Priority           *models.TaskPriority `json:"priority"`
		DueDate            *string              `json:"due_date"`
		AssignedTo         *uint64              `json:"assigned_to"`
		ClientID           *string              `json:"client_id"`
		EstimatedHours     *float64             `json:"estimated_hours"`
		CompletedHours     *float64             `json:"completed_hours"`
		ProgressPercentage *int                 `json:"progress_percentage"`
		TaskCategory       *models.TaskCategory `json:"task_category"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:              req.Title,
		Description:        req.Description,
		Status:             req.Status,
		Priority:           req.Priority,
		AssignedTo:         req.AssignedTo,
		ClientID:           req.ClientID,
		EstimatedHours:     req.EstimatedHours,
		CompletedHours:     req.CompletedHours,
		ProgressPercentage: req.ProgressPercentage,
		TaskCategory:       req.TaskCategory,
	}

	// An empty due_date clears it
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

	task, err := h.taskService.UpdateTask(c.Request.Context(), identity, middleware.GetNumericID(c), input)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task and its subtasks
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), identity, middleware.GetNumericID(c)); err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// SuggestSubtasks proposes subtasks for a task using AI
func (h *TaskHandler) SuggestSubtasks(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	suggestions, err := h.taskService.SuggestSubtasks(c.Request.Context(), identity, middleware.GetNumericID(c))
	switch {
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apperrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
		return
	case errors.Is(err, services.ErrAINoSubtasksSuggested):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, apperrors.APIError{
			Success: false,
			Error:   "No subtasks could be suggested for this task",
			Code:    apperrors.KindValidation,
		})
		return
	case err != nil:
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subtasks": suggestions})
}
