package models

import "time"

// Subtask has its own lifecycle; the parent task only counts them.
type Subtask struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	TaskID      uint64     `gorm:"not null;index" json:"task_id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	AssignedTo  *uint64    `gorm:"index" json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
	CreatedBy   uint64     `gorm:"not null" json:"created_by"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (s *Subtask) SetStatus(status TaskStatus, now time.Time) {
	if status == TaskStatusCompleted && s.Status != TaskStatusCompleted {
		s.CompletedAt = &now
	}
	if status != TaskStatusCompleted {
		s.CompletedAt = nil
	}
	s.Status = status
}
