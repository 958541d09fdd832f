package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/utils"
)

// TaskDTO represents a task in API responses. IsOverdue is derived from
// the due date at serialization time and is never stored.
type TaskDTO struct {
	ID          uuid.UUID           `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
	Tags        []string            `json:"tags"`
	AssigneeID  uuid.UUID           `json:"assignee_id"`
	CreatedByID uuid.UUID           `json:"created_by_id"`
	IsOverdue   bool                `json:"is_overdue"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Assignee    *UserDTO            `json:"assignee,omitempty"`
	CreatedBy   *UserDTO            `json:"created_by,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// BulkUpdateResponse reports how many tasks a bulk update touched
type BulkUpdateResponse struct {
	Updated int64 `json:"updated"`
}

// ActivityLogDTO represents one activity entry in API responses
type ActivityLogDTO struct {
	ID        uuid.UUID             `json:"id"`
	TaskID    uuid.UUID             `json:"task_id"`
	UserID    uuid.UUID             `json:"user_id"`
	Action    models.ActivityAction `json:"action"`
	Changes   models.ChangeSet      `json:"changes"`
	CreatedAt time.Time             `json:"created_at"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		Tags:        task.Tags,
		AssigneeID:  task.AssigneeID,
		CreatedByID: task.CreatedByID,
		IsOverdue:   task.IsOverdue(time.Now()),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	if task.Assignee.ID != uuid.Nil {
		assignee := ToUserDTO(task.Assignee)
		dto.Assignee = &assignee
	}
	if task.CreatedBy.ID != uuid.Nil {
		creator := ToUserDTO(task.CreatedBy)
		dto.CreatedBy = &creator
	}
	return dto
}

// ToTaskDTOs converts a slice of Task models to DTOs
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		dtos[i] = ToTaskDTO(task)
	}
	return dtos
}

// ToActivityLogDTO converts an ActivityLog model to ActivityLogDTO
func ToActivityLogDTO(entry models.ActivityLog) ActivityLogDTO {
	return ActivityLogDTO{
		ID:        entry.ID,
		TaskID:    entry.TaskID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		Changes:   entry.Changes,
		CreatedAt: entry.CreatedAt,
	}
}

// ToActivityLogDTOs converts a slice of ActivityLog models to DTOs
func ToActivityLogDTOs(entries []models.ActivityLog) []ActivityLogDTO {
	dtos := make([]ActivityLogDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = ToActivityLogDTO(entry)
	}
	return dtos
}
