package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusReview,
	TaskStatusCompleted,
	TaskStatusCancelled,
}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether work is still expected on the task.
func (s TaskStatus) IsOpen() bool {
	return s != TaskStatusCompleted && s != TaskStatusCancelled
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// TaskCategory separates case work from daily routine work.
type TaskCategory string

const (
	TaskCategoryCase   TaskCategory = "CASE"
	TaskCategoryHarian TaskCategory = "HARIAN"
)

func (c TaskCategory) Valid() bool {
	return c == TaskCategoryCase || c == TaskCategoryHarian
}

type Task struct {
	ID                 uint64       `gorm:"primarykey" json:"id"`
	Title              string       `gorm:"type:varchar(255);not null" json:"title"`
	Description        string       `gorm:"type:text" json:"description"`
	Status             TaskStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority           TaskPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	DueDate            *time.Time   `gorm:"index" json:"due_date"`
	AssignedTo         uint64       `gorm:"not null;index" json:"assigned_to"`
	AssignedBy         uint64       `gorm:"not null" json:"assigned_by"`
	ClientID           *string      `gorm:"type:varchar(36);index" json:"client_id"`
	EstimatedHours     float64      `gorm:"not null;default:0" json:"estimated_hours"`
	CompletedHours     float64      `gorm:"not null;default:0" json:"completed_hours"`
	ProgressPercentage int          `gorm:"not null;default:0" json:"progress_percentage"`
	TaskCategory       TaskCategory `gorm:"type:varchar(10);not null;default:'CASE'" json:"task_category"`
	CompletedAt        *time.Time   `json:"completed_at"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`

	// Relations
	Assignee *User     `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	Subtasks []Subtask `gorm:"foreignKey:TaskID" json:"subtasks,omitempty"`
}

// SetStatus updates the status and keeps CompletedAt consistent with it.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	if status == TaskStatusCompleted && t.Status != TaskStatusCompleted {
		t.CompletedAt = &now
		t.ProgressPercentage = 100
	}
	if status != TaskStatusCompleted {
		t.CompletedAt = nil
	}
	t.Status = status
}
