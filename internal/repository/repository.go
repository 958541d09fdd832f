package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/models"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uuid.UUID, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering, sorting, and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// UpdateBatch applies the same column updates to every task in ids and
	// returns the number of affected rows
	UpdateBatch(ids []uuid.UUID, updates map[string]interface{}) (int64, error)

	// Delete deletes a task
	Delete(id uuid.UUID) error

	// FindExistingIDs returns the subset of ids that exist
	FindExistingIDs(ids []uuid.UUID) ([]uuid.UUID, error)

	// CountByAssignee counts tasks currently assigned to a user
	CountByAssignee(userID uuid.UUID) (int64, error)

	// CountsByStatus returns task counts grouped by status, optionally
	// scoped to one assignee
	CountsByStatus(assigneeID *uuid.UUID) (map[models.TaskStatus]int64, error)

	// CountsByPriority returns task counts grouped by priority, optionally
	// scoped to one assignee
	CountsByPriority(assigneeID *uuid.UUID) (map[models.TaskPriority]int64, error)

	// CountOverdue counts tasks whose due date has passed without completion
	CountOverdue(assigneeID *uuid.UUID, now time.Time) (int64, error)

	// CountCreatedSince counts tasks created at or after the given time
	CountCreatedSince(since time.Time) (int64, error)

	// ListForAnalytics fetches the tasks feeding trend computations: tasks
	// created since the given time plus tasks completed since then
	ListForAnalytics(assigneeID *uuid.UUID, since time.Time) ([]models.Task, error)

	// ListTagSets fetches the tag lists of all visible tasks
	ListTagSets(assigneeID *uuid.UUID) ([]models.StringList, error)

	// TeamAggregates returns per-assignee totals across all tasks
	TeamAggregates() ([]AssigneeAggregate, error)
}

// TaskFilter holds filtering, sorting, and pagination options for listing
// tasks. SortBy must already be a vetted column name; the service layer owns
// the allow-list.
type TaskFilter struct {
	AssigneeID  *uuid.UUID
	Search      string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	Tags        []string
	DueDateFrom *time.Time
	DueDateTo   *time.Time
	OverdueAt   *time.Time
	SortBy      string
	SortDesc    bool
	Page        int
	PageSize    int
}

// AssigneeAggregate is one row of the per-assignee task rollup.
type AssigneeAggregate struct {
	AssigneeID uuid.UUID `gorm:"column:assignee_id"`
	Total      int64     `gorm:"column:total"`
	Done       int64     `gorm:"column:done"`
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uuid.UUID) (*models.User, error)

	// FindByIDs finds all users whose ID is in ids
	FindByIDs(ids []uuid.UUID) ([]models.User, error)

	// FindByEmail finds a user by email (emails are stored lower-cased)
	FindByEmail(email string) (*models.User, error)

	// List retrieves users with filtering and pagination
	List(filter UserFilter) ([]models.User, int64, error)

	// Update updates a user
	Update(user *models.User) error

	// Delete deletes a user
	Delete(id uuid.UUID) error

	// CountsByRole returns user counts grouped by role
	CountsByRole() (map[models.UserRole]int64, error)
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Search   string
	Role     *models.UserRole
	Page     int
	PageSize int
}

// ActivityRepository defines the interface for the append-only activity log.
// There are deliberately no update or delete operations.
type ActivityRepository interface {
	// Create appends a single entry
	Create(entry *models.ActivityLog) error

	// CreateBatch appends one entry per element
	CreateBatch(entries []models.ActivityLog) error

	// ListByTask returns a task's history, newest first
	ListByTask(taskID uuid.UUID, limit int) ([]models.ActivityLog, error)

	// CountsByActionSince returns entry counts grouped by action for
	// entries recorded at or after the given time
	CountsByActionSince(since time.Time) (map[models.ActivityAction]int64, error)

	// Count returns the total number of entries
	Count() (int64, error)
}
