package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/constants"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"github.com/yukikurage/taxoffice-api/internal/utils"
)

var (
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoSubtasksSuggested  = errors.New("AI did not suggest any subtasks")
)

// TaskService handles task and subtask business logic
type TaskService struct {
	taskRepo   repository.TaskRepository
	userRepo   repository.UserRepository
	clientRepo repository.ClientRepository
	policy     *authz.Policy
	audit      *AuditService
	aiService  *AIService
	now        func() time.Time
}

// NewTaskService creates a new TaskService. aiService may be nil.
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, clientRepo repository.ClientRepository, policy *authz.Policy, audit *AuditService, aiService *AIService) *TaskService {
	return &TaskService{
		taskRepo:   taskRepo,
		userRepo:   userRepo,
		clientRepo: clientRepo,
		policy:     policy,
		audit:      audit,
		aiService:  aiService,
		now:        time.Now,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	Category      *models.TaskCategory
	AssignedTo    *uint64
	ClientID      string
	DueToday      bool
	SortByDueDate bool
	Pagination    utils.PaginationParams
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title          string
	Description    string
	Status         models.TaskStatus
	Priority       models.TaskPriority
	DueDate        *time.Time
	AssignedTo     *uint64
	ClientID       *string
	EstimatedHours float64
	TaskCategory   models.TaskCategory
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title              *string
	Description        *string
	Status             *models.TaskStatus
	Priority           *models.TaskPriority
	DueDate            *time.Time
	ClearDueDate       bool
	AssignedTo         *uint64
	ClientID           *string
	EstimatedHours     *float64
	CompletedHours     *float64
	ProgressPercentage *int
	TaskCategory       *models.TaskCategory
}

// TaskWithProgress is a task with the counts of its subtasks
type TaskWithProgress struct {
	models.Task
	SubtaskTotal     int64
	SubtaskCompleted int64
}

// ListTasks returns tasks visible to identity
func (s *TaskService) ListTasks(ctx context.Context, identity *auth.Identity, input ListTasksInput) ([]models.Task, int64, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceTask, authz.ActionRead)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.TaskFilter{
		Status:        input.Status,
		Priority:      input.Priority,
		Category:      input.Category,
		AssignedTo:    input.AssignedTo,
		ClientID:      input.ClientID,
		SortByDueDate: input.SortByDueDate,
		Pagination:    input.Pagination,
	}
	if input.DueToday {
		now := s.now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}

	return s.taskRepo.List(ctx, decision.Scope, filter)
}

// ListTasksWithProgress lists tasks together with their subtask counts
func (s *TaskService) ListTasksWithProgress(ctx context.Context, identity *auth.Identity, input ListTasksInput) ([]TaskWithProgress, int64, error) {
	tasks, total, err := s.ListTasks(ctx, identity, input)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uint64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	counts, err := s.taskRepo.SubtaskCounts(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	result := make([]TaskWithProgress, len(tasks))
	for i, t := range tasks {
		c := counts[t.ID]
		result[i] = TaskWithProgress{Task: t, SubtaskTotal: c.Total, SubtaskCompleted: c.Completed}
	}
	return result, total, nil
}

// GetTask returns a task with its assignee and subtasks
func (s *TaskService) GetTask(ctx context.Context, identity *auth.Identity, id uint64) (*models.Task, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceTask, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.taskRepo.FindByID(ctx, decision.Scope, id, "Assignee", "Subtasks")
}

// CreateTask creates a task. Assigning it to anyone but the caller requires
// the assign permission and an assignee inside the caller's team.
func (s *TaskService) CreateTask(ctx context.Context, identity *auth.Identity, input CreateTaskInput) (*models.Task, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceTask, authz.ActionCreate)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.MissingFields("title")
	}

	assignee := identity.ID
	if input.AssignedTo != nil {
		assignee = *input.AssignedTo
	}
	if err := s.checkAssignee(ctx, identity, assignee); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:          title,
		Description:    input.Description,
		Status:         input.Status,
		Priority:       input.Priority,
		DueDate:        input.DueDate,
		AssignedTo:     assignee,
		AssignedBy:     identity.ID,
		EstimatedHours: input.EstimatedHours,
		TaskCategory:   input.TaskCategory,
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	if task.TaskCategory == "" {
		task.TaskCategory = models.TaskCategoryCase
	}
	if input.ClientID != nil && *input.ClientID != "" {
		if err := s.ensureClient(ctx, identity, *input.ClientID); err != nil {
			return nil, err
		}
		task.ClientID = input.ClientID
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	status := task.Status
	task.Status = models.TaskStatusPending
	task.SetStatus(status, s.now())

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionCreate, auditTableTasks, recordID(task.ID), nil, taskSnapshot(*task))

	return s.taskRepo.FindByID(ctx, decision.Scope, task.ID, "Assignee")
}

// UpdateTask updates an existing task
func (s *TaskService) UpdateTask(ctx context.Context, identity *auth.Identity, id uint64, input UpdateTaskInput) (*models.Task, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceTask, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	task, err := s.taskRepo.FindByID(ctx, decision.Scope, id)
	if err != nil {
		return nil, err
	}
	before := taskSnapshot(*task)

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, apperrors.Validation("Title cannot be empty", "title")
		}
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.TaskCategory != nil {
		task.TaskCategory = *input.TaskCategory
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.EstimatedHours != nil {
		task.EstimatedHours = *input.EstimatedHours
	}
	if input.CompletedHours != nil {
		task.CompletedHours = *input.CompletedHours
	}
	if input.ProgressPercentage != nil {
		task.ProgressPercentage = *input.ProgressPercentage
	}
	if input.ClientID != nil {
		if *input.ClientID == "" {
			task.ClientID = nil
		} else {
			if err := s.ensureClient(ctx, identity, *input.ClientID); err != nil {
				return nil, err
			}
			task.ClientID = input.ClientID
		}
	}
	if input.AssignedTo != nil && *input.AssignedTo != task.AssignedTo {
		if err := s.checkAssignee(ctx, identity, *input.AssignedTo); err != nil {
			return nil, err
		}
		task.AssignedTo = *input.AssignedTo
		task.AssignedBy = identity.ID
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.Validation("Invalid task status", "status")
		}
		task.SetStatus(*input.Status, s.now())
	}

	if err := validateTask(task); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionUpdate, auditTableTasks, recordID(task.ID), before, taskSnapshot(*task))

	return s.taskRepo.FindByID(ctx, decision.Scope, task.ID, "Assignee")
}

// DeleteTask deletes a task and its subtasks
func (s *TaskService) DeleteTask(ctx context.Context, identity *auth.Identity, id uint64) error {
	decision, err := s.policy.Authorize(identity, authz.ResourceTask, authz.ActionDelete)
	if err != nil {
		return err
	}

	task, err := s.taskRepo.FindByID(ctx, decision.Scope, id)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionDelete, auditTableTasks, recordID(task.ID), taskSnapshot(*task), nil)
	return nil
}

// SuggestSubtasks asks the AI service to break a task down. Nothing is stored.
func (s *TaskService) SuggestSubtasks(ctx context.Context, identity *auth.Identity, id uint64) ([]SuggestedSubtask, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	task, err := s.GetTask(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	suggestions, err := s.aiService.SuggestSubtasks(ctx, task)
	if err != nil {
		return nil, apperrors.Dependency("suggest subtasks", err)
	}

	valid := make([]SuggestedSubtask, 0, len(suggestions))
	for _, suggestion := range suggestions {
		if strings.TrimSpace(suggestion.Title) == "" {
			continue
		}
		valid = append(valid, suggestion)
		if len(valid) == constants.MaxAISuggestedSubtasks {
			break
		}
	}
	if len(valid) == 0 {
		return nil, ErrAINoSubtasksSuggested
	}

	return valid, nil
}

// checkAssignee enforces the assign permission for work given to someone else.
func (s *TaskService) checkAssignee(ctx context.Context, identity *auth.Identity, assignee uint64) error {
	if assignee == identity.ID {
		return nil
	}
	decision, err := s.policy.Authorize(identity, authz.ResourceTask, authz.ActionAssign)
	if err != nil {
		return err
	}
	_, err = resolveAssignee(ctx, s.userRepo, decision.Scope, assignee, "assigned_to")
	return err
}

func (s *TaskService) ensureClient(ctx context.Context, identity *auth.Identity, clientID string) error {
	scope := authz.ScopeFor(identity.Role, authz.ResourceClient, identity.ID)
	if _, err := s.clientRepo.FindByID(ctx, scope, clientID); err != nil {
		if isNotFound(err) {
			return apperrors.Validation("Client does not exist", "client_id")
		}
		return err
	}
	return nil
}

func validateTask(task *models.Task) error {
	if !task.Status.Valid() {
		return apperrors.Validation("Invalid task status", "status")
	}
	if !task.Priority.Valid() {
		return apperrors.Validation("Invalid task priority", "priority")
	}
	if !task.TaskCategory.Valid() {
		return apperrors.Validation("Invalid task category", "task_category")
	}
	if task.ProgressPercentage < 0 || task.ProgressPercentage > 100 {
		return apperrors.Validation("Progress must be between 0 and 100", "progress_percentage")
	}
	if task.EstimatedHours < 0 || task.CompletedHours < 0 {
		return apperrors.Validation("Hours cannot be negative", "estimated_hours", "completed_hours")
	}
	return nil
}

func taskSnapshot(t models.Task) models.Task {
	t.Assignee = nil
	t.Subtasks = nil
	return t
}

// CreateSubtaskInput represents input for creating a subtask
type CreateSubtaskInput struct {
	TaskID      uint64
	Title       string
	Description string
	AssignedTo  *uint64
	DueDate     *time.Time
}

// UpdateSubtaskInput represents input for updating a subtask
type UpdateSubtaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	AssignedTo   *uint64
	DueDate      *time.Time
	ClearDueDate bool
}

// ListSubtasks lists subtasks in scope, optionally of a single task
func (s *TaskService) ListSubtasks(ctx context.Context, identity *auth.Identity, taskID *uint64) ([]models.Subtask, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceTask, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	if taskID != nil {
		if _, err := s.taskRepo.FindByID(ctx, decision.Scope, *taskID); err != nil {
			return nil, err
		}
	}
	return s.taskRepo.ListSubtasks(ctx, decision.Scope, taskID)
}

// CreateSubtask adds a subtask to a task the caller may update
func (s *TaskService) CreateSubtask(ctx context.Context, identity *auth.Identity, input CreateSubtaskInput) (*models.Subtask, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceTask, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	var missing []string
	if input.TaskID == 0 {
		missing = append(missing, "task_id")
	}
	if title == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingFields(missing...)
	}

	if _, err := s.taskRepo.FindByID(ctx, decision.Scope, input.TaskID); err != nil {
		if isNotFound(err) {
			return nil, apperrors.Validation("Task does not exist", "task_id")
		}
		return nil, err
	}
	if input.AssignedTo != nil {
		if err := s.checkAssignee(ctx, identity, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	subtask := &models.Subtask{
		TaskID:      input.TaskID,
		Title:       title,
		Description: input.Description,
		Status:      models.TaskStatusPending,
		AssignedTo:  input.AssignedTo,
		DueDate:     input.DueDate,
		CreatedBy:   identity.ID,
	}
	if err := s.taskRepo.CreateSubtask(ctx, subtask); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionCreate, auditTableSubtasks, recordID(subtask.ID), nil, *subtask)
	return subtask, nil
}

// UpdateSubtask updates a subtask whose parent task is in scope
func (s *TaskService) UpdateSubtask(ctx context.Context, identity *auth.Identity, id uint64, input UpdateSubtaskInput) (*models.Subtask, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceTask, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	subtask, err := s.taskRepo.FindSubtask(ctx, decision.Scope, id)
	if err != nil {
		return nil, err
	}
	before := *subtask

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, apperrors.Validation("Title cannot be empty", "title")
		}
		subtask.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		subtask.Description = *input.Description
	}
	if input.ClearDueDate {
		subtask.DueDate = nil
	} else if input.DueDate != nil {
		subtask.DueDate = input.DueDate
	}
	if input.AssignedTo != nil {
		if err := s.checkAssignee(ctx, identity, *input.AssignedTo); err != nil {
			return nil, err
		}
		subtask.AssignedTo = input.AssignedTo
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.Validation(fmt.Sprintf("Invalid subtask status %q", *input.Status), "status")
		}
		subtask.SetStatus(*input.Status, s.now())
	}

	if err := s.taskRepo.UpdateSubtask(ctx, subtask); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionUpdate, auditTableSubtasks, recordID(subtask.ID), before, *subtask)
	return subtask, nil
}

// DeleteSubtask deletes a subtask whose parent task is in scope
func (s *TaskService) DeleteSubtask(ctx context.Context, identity *auth.Identity, id uint64) error {
	decision, err := s.policy.Authorize(identity, authz.ResourceTask, authz.ActionUpdate)
	if err != nil {
		return err
	}

	subtask, err := s.taskRepo.FindSubtask(ctx, decision.Scope, id)
	if err != nil {
		return err
	}

	if err := s.taskRepo.DeleteSubtask(ctx, subtask.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionDelete, auditTableSubtasks, recordID(subtask.ID), *subtask, nil)
	return nil
}
