package repository

import (
	"context"

	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/database"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error, "Task")
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, scope authz.Scope, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx).Scopes(ownedBy(scope, "tasks.assigned_to"))

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.Where("tasks.id = ?", id).First(&task).Error; err != nil {
		return nil, translate(err, "Task")
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, scope authz.Scope, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{}).
		Scopes(
			ownedBy(scope, "tasks.assigned_to"),
			database.Between("tasks.due_date", filter.DueDateFrom, filter.DueDateTo),
			database.Between("tasks.created_at", filter.CreatedFrom, filter.CreatedTo),
		)

	// Apply filters
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.Category != nil {
		query = query.Where("tasks.task_category = ?", *filter.Category)
	}
	if filter.AssignedTo != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.ClientID != "" {
		query = query.Where("tasks.client_id = ?", filter.ClientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "Task")
	}

	listQuery := query
	if filter.SortByDueDate {
		listQuery = listQuery.Order("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date ASC")
	} else {
		listQuery = listQuery.Order("tasks.created_at DESC")
	}

	if err := listQuery.Scopes(database.Paginate(filter.Pagination)).Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, translate(err, "Task")
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error, "Task")
}

// Delete deletes a task together with its subtasks
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Subtask{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Task{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "Task")
}

// SubtaskCounts aggregates subtasks per task
func (r *GormTaskRepository) SubtaskCounts(ctx context.Context, taskIDs []uint64) (map[uint64]SubtaskCount, error) {
	counts := make(map[uint64]SubtaskCount, len(taskIDs))
	if len(taskIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		TaskID    uint64
		Total     int64
		Completed int64
	}
	err := r.db.WithContext(ctx).Model(&models.Subtask{}).
		Select("task_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed", models.TaskStatusCompleted).
		Where("task_id IN ?", taskIDs).
		Group("task_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "Subtask")
	}

	for _, row := range rows {
		counts[row.TaskID] = SubtaskCount{Total: row.Total, Completed: row.Completed}
	}
	return counts, nil
}

// CreateSubtask creates a subtask
func (r *GormTaskRepository) CreateSubtask(ctx context.Context, subtask *models.Subtask) error {
	return translate(r.db.WithContext(ctx).Create(subtask).Error, "Subtask")
}

// FindSubtask finds a subtask whose parent task is in scope
func (r *GormTaskRepository) FindSubtask(ctx context.Context, scope authz.Scope, id uint64) (*models.Subtask, error) {
	var subtask models.Subtask
	err := r.db.WithContext(ctx).
		Scopes(subtasksInScope(scope)).
		Where("subtasks.id = ?", id).
		First(&subtask).Error
	if err != nil {
		return nil, translate(err, "Subtask")
	}
	return &subtask, nil
}

// ListSubtasks lists subtasks oldest first, optionally for a single task
func (r *GormTaskRepository) ListSubtasks(ctx context.Context, scope authz.Scope, taskID *uint64) ([]models.Subtask, error) {
	var subtasks []models.Subtask
	query := r.db.WithContext(ctx).Scopes(subtasksInScope(scope))
	if taskID != nil {
		query = query.Where("subtasks.task_id = ?", *taskID)
	}
	if err := query.Order("subtasks.created_at ASC").Order("subtasks.id ASC").Find(&subtasks).Error; err != nil {
		return nil, translate(err, "Subtask")
	}
	return subtasks, nil
}

// UpdateSubtask updates a subtask
func (r *GormTaskRepository) UpdateSubtask(ctx context.Context, subtask *models.Subtask) error {
	return translate(r.db.WithContext(ctx).Save(subtask).Error, "Subtask")
}

// DeleteSubtask deletes a subtask
func (r *GormTaskRepository) DeleteSubtask(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&models.Subtask{}, id)
	if result.Error != nil {
		return translate(result.Error, "Subtask")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "Subtask")
	}
	return nil
}
