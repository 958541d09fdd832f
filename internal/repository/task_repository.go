package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/gorm"
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
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uuid.UUID, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering, sorting, and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{})

	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("(LOWER(tasks.title) LIKE ? OR LOWER(tasks.description) LIKE ?)", pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if len(filter.Tags) > 0 {
		// Tags are stored as a JSON array; a task matches when it carries
		// any of the requested tags. Matching on the quoted element keeps
		// the query portable across PostgreSQL and SQLite.
		conds := make([]string, 0, len(filter.Tags))
		args := make([]interface{}, 0, len(filter.Tags))
		for _, tag := range filter.Tags {
			conds = append(conds, `tasks.tags LIKE ? ESCAPE '\'`)
			args = append(args, `%"`+escapeLike(tag)+`"%`)
		}
		query = query.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	if filter.DueDateFrom != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		query = query.Where("tasks.due_date <= ?", *filter.DueDateTo)
	}
	if filter.OverdueAt != nil {
		query = query.Where("tasks.due_date IS NOT NULL AND tasks.due_date < ? AND tasks.status <> ?",
			*filter.OverdueAt, models.TaskStatusDone)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	listQuery := query.Order(fmt.Sprintf("tasks.%s %s", sortBy, direction))

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Preload("Assignee").Preload("CreatedBy").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// UpdateBatch applies the same column updates to every task in ids
func (r *GormTaskRepository) UpdateBatch(ids []uuid.UUID, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&models.Task{}).Where("id IN ?", ids).Updates(updates)
	return result.RowsAffected, result.Error
}

// Delete deletes a task. Activity log rows referencing it are kept on
// purpose: the audit trail outlives the task.
func (r *GormTaskRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Task{}, "id = ?", id).Error
}

// FindExistingIDs returns the subset of ids that exist
func (r *GormTaskRepository) FindExistingIDs(ids []uuid.UUID) ([]uuid.UUID, error) {
	var existing []uuid.UUID
	if len(ids) == 0 {
		return existing, nil
	}
	err := r.db.Model(&models.Task{}).
		Where("id IN ?", ids).
		Pluck("id", &existing).Error
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// CountByAssignee counts tasks currently assigned to a user
func (r *GormTaskRepository) CountByAssignee(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Task{}).
		Where("assignee_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CountsByStatus returns task counts grouped by status
func (r *GormTaskRepository) CountsByStatus(assigneeID *uuid.UUID) (map[models.TaskStatus]int64, error) {
	var rows []struct {
		Status models.TaskStatus `gorm:"column:status"`
		Count  int64             `gorm:"column:count"`
	}
	err := r.scoped(assigneeID).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountsByPriority returns task counts grouped by priority
func (r *GormTaskRepository) CountsByPriority(assigneeID *uuid.UUID) (map[models.TaskPriority]int64, error) {
	var rows []struct {
		Priority models.TaskPriority `gorm:"column:priority"`
		Count    int64               `gorm:"column:count"`
	}
	err := r.scoped(assigneeID).
		Select("priority, COUNT(*) AS count").
		Group("priority").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.TaskPriority]int64, len(rows))
	for _, row := range rows {
		counts[row.Priority] = row.Count
	}
	return counts, nil
}

// CountOverdue counts tasks whose due date has passed without completion
func (r *GormTaskRepository) CountOverdue(assigneeID *uuid.UUID, now time.Time) (int64, error) {
	var count int64
	err := r.scoped(assigneeID).
		Where("due_date IS NOT NULL AND due_date < ? AND status <> ?", now, models.TaskStatusDone).
		Count(&count).Error
	return count, err
}

// CountCreatedSince counts tasks created at or after the given time
func (r *GormTaskRepository) CountCreatedSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Task{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// ListForAnalytics fetches tasks created since the given time plus tasks
// completed since then. Trend bucketing happens in the service layer so the
// query stays portable across dialects.
func (r *GormTaskRepository) ListForAnalytics(assigneeID *uuid.UUID, since time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.scoped(assigneeID).
		Where("created_at >= ? OR (status = ? AND updated_at >= ?)", since, models.TaskStatusDone, since).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListTagSets fetches the tag lists of all visible tasks
func (r *GormTaskRepository) ListTagSets(assigneeID *uuid.UUID) ([]models.StringList, error) {
	var tagSets []models.StringList
	err := r.scoped(assigneeID).
		Pluck("tags", &tagSets).Error
	if err != nil {
		return nil, err
	}
	return tagSets, nil
}

// TeamAggregates returns per-assignee totals across all tasks
func (r *GormTaskRepository) TeamAggregates() ([]AssigneeAggregate, error) {
	var rows []AssigneeAggregate
	err := r.db.Model(&models.Task{}).
		Select("assignee_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS done",
			models.TaskStatusDone).
		Group("assignee_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// escapeLike neutralizes LIKE metacharacters so a tag containing % or _
// matches literally instead of acting as a wildcard.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *GormTaskRepository) scoped(assigneeID *uuid.UUID) *gorm.DB {
	query := r.db.Model(&models.Task{})
	if assigneeID != nil {
		query = query.Where("assignee_id = ?", *assigneeID)
	}
	return query
}
