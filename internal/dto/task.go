package dto

import (
	"time"

	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/services"
)

// SubtaskDTO represents a subtask in API responses
type SubtaskDTO struct {
	ID          uint64            `json:"id"`
	TaskID      uint64            `json:"task_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
	AssignedTo  *uint64           `json:"assigned_to"`
	DueDate     *time.Time        `json:"due_date"`
	CreatedBy   uint64            `json:"created_by"`
	CompletedAt *time.Time        `json:"completed_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID                 uint64              `json:"id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Status             models.TaskStatus   `json:"status"`
	Priority           models.TaskPriority `json:"priority"`
	DueDate            *time.Time          `json:"due_date"`
	AssignedTo         uint64              `json:"assigned_to"`
	AssignedBy         uint64              `json:"assigned_by"`
	Assignee           *UserSummaryDTO     `json:"assignee,omitempty"`
	ClientID           *string             `json:"client_id"`
	EstimatedHours     float64             `json:"estimated_hours"`
	CompletedHours     float64             `json:"completed_hours"`
	ProgressPercentage int                 `json:"progress_percentage"`
	TaskCategory       models.TaskCategory `json:"task_category"`
	CompletedAt        *time.Time          `json:"completed_at"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	Subtasks           []SubtaskDTO        `json:"subtasks,omitempty"`
}

// TaskWithProgressDTO adds subtask counts to a task
type TaskWithProgressDTO struct {
	TaskDTO
	SubtaskTotal     int64 `json:"subtask_total"`
	SubtaskCompleted int64 `json:"subtask_completed"`
	SubtaskProgress  int   `json:"subtask_progress"`
}

// Conversion functions

// ToSubtaskDTO converts a Subtask model to SubtaskDTO
func ToSubtaskDTO(subtask models.Subtask) SubtaskDTO {
	return SubtaskDTO{
		ID:          subtask.ID,
		TaskID:      subtask.TaskID,
		Title:       subtask.Title,
		Description: subtask.Description,
		Status:      subtask.Status,
		AssignedTo:  subtask.AssignedTo,
		DueDate:     subtask.DueDate,
		CreatedBy:   subtask.CreatedBy,
		CompletedAt: subtask.CompletedAt,
		CreatedAt:   subtask.CreatedAt,
		UpdatedAt:   subtask.UpdatedAt,
	}
}

func ToSubtaskDTOs(subtasks []models.Subtask) []SubtaskDTO {
	out := make([]SubtaskDTO, len(subtasks))
	for i, s := range subtasks {
		out[i] = ToSubtaskDTO(s)
	}
	return out
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:                 task.ID,
		Title:              task.Title,
		Description:        task.Description,
		Status:             task.Status,
		Priority:           task.Priority,
		DueDate:            task.DueDate,
		AssignedTo:         task.AssignedTo,
		AssignedBy:         task.AssignedBy,
		Assignee:           ToUserSummaryDTO(task.Assignee),
		ClientID:           task.ClientID,
		EstimatedHours:     task.EstimatedHours,
		CompletedHours:     task.CompletedHours,
		ProgressPercentage: task.ProgressPercentage,
		TaskCategory:       task.TaskCategory,
		CompletedAt:        task.CompletedAt,
		CreatedAt:          task.CreatedAt,
		UpdatedAt:          task.UpdatedAt,
	}

	// Include subtasks if preloaded
	if len(task.Subtasks) > 0 {
		dto.Subtasks = ToSubtaskDTOs(task.Subtasks)
	}

	return dto
}

func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskDTO(t)
	}
	return out
}

// ToTaskWithProgressDTO converts a task with subtask counts
func ToTaskWithProgressDTO(task services.TaskWithProgress) TaskWithProgressDTO {
	dto := TaskWithProgressDTO{
		TaskDTO:          ToTaskDTO(task.Task),
		SubtaskTotal:     task.SubtaskTotal,
		SubtaskCompleted: task.SubtaskCompleted,
	}
	if task.SubtaskTotal > 0 {
		dto.SubtaskProgress = int(task.SubtaskCompleted * 100 / task.SubtaskTotal)
	}
	return dto
}

func ToTaskWithProgressDTOs(tasks []services.TaskWithProgress) []TaskWithProgressDTO {
	out := make([]TaskWithProgressDTO, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskWithProgressDTO(t)
	}
	return out
}
