package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/authz"
	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrTaskAccessDenied   = errors.New("you do not have permission to modify this task")
	ErrAssigneeNotFound   = errors.New("assignee not found")
	ErrTitleRequired      = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title must be at most 200 characters")
	ErrDescriptionTooLong = errors.New("description must be at most 2000 characters")
	ErrDueDateInPast      = errors.New("due date must be in the future")
	ErrTooManyTags        = errors.New("a task can carry at most 10 tags")
	ErrEmptyTag           = errors.New("tags cannot be empty")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidSortField   = errors.New("invalid sort field")
	ErrInvalidTaskID      = errors.New("invalid task id")
	ErrNoTaskIDs          = errors.New("at least one task id is required")
	ErrTooManyTaskIDs     = errors.New("a bulk update can touch at most 50 tasks")
	ErrNoBulkFields       = errors.New("no fields to update")
)

// sortColumns is the allow-list of sortable fields mapped to their columns.
var sortColumns = map[string]string{
	"title":      "title",
	"status":     "status",
	"priority":   "priority",
	"dueDate":    "due_date",
	"due_date":   "due_date",
	"createdAt":  "created_at",
	"created_at": "created_at",
	"updatedAt":  "updated_at",
	"updated_at": "updated_at",
}

// TaskService is the task query, authorization, and audit engine. Every
// read is scoped by the caller's role and every mutation both passes the
// authz policy and appends to the activity log.
type TaskService struct {
	taskRepo     repository.TaskRepository
	userRepo     repository.UserRepository
	activityRepo repository.ActivityRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, activityRepo repository.ActivityRepository) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		userRepo:     userRepo,
		activityRepo: activityRepo,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Actor       *models.User
	Search      string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	Tags        []string
	AssigneeID  *uuid.UUID
	DueDateFrom *time.Time
	DueDateTo   *time.Time
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// ListTasks returns the page of tasks the actor is entitled to see.
// Members always see their own assignments only, whatever assignee filter
// they request; admins may filter by an arbitrary assignee.
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	filter, err := s.buildFilter(input)
	if err != nil {
		return nil, 0, err
	}

	tasks, total, err := s.taskRepo.List(*filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// ListOverdue returns the actor's visible tasks whose due date has passed
// without completion.
func (s *TaskService) ListOverdue(input ListTasksInput) ([]models.Task, int64, error) {
	filter, err := s.buildFilter(input)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now()
	filter.OverdueAt = &now
	if input.SortBy == "" {
		// Most overdue first unless the caller chose a sort.
		filter.SortBy = "due_date"
		filter.SortDesc = false
	}

	tasks, total, err := s.taskRepo.List(*filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list overdue tasks: %w", err)
	}

	return tasks, total, nil
}

func (s *TaskService) buildFilter(input ListTasksInput) (*repository.TaskFilter, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	sortBy := "created_at"
	sortDesc := true
	if input.SortBy != "" {
		column, ok := sortColumns[input.SortBy]
		if !ok {
			return nil, ErrInvalidSortField
		}
		sortBy = column
		sortDesc = false
	}
	switch strings.ToLower(input.SortOrder) {
	case "":
		// keep the default for the chosen field
	case "asc":
		sortDesc = false
	case "desc":
		sortDesc = true
	default:
		return nil, ErrInvalidSortField
	}

	filter := &repository.TaskFilter{
		Search:      strings.TrimSpace(input.Search),
		Status:      input.Status,
		Priority:    input.Priority,
		DueDateFrom: input.DueDateFrom,
		DueDateTo:   input.DueDateTo,
		SortBy:      sortBy,
		SortDesc:    sortDesc,
		// The handler validates pagination; the engine re-clamps anyway.
		Page:     clampPage(input.Page),
		PageSize: clampPageSize(input.PageSize),
	}

	for _, tag := range input.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			filter.Tags = append(filter.Tags, tag)
		}
	}

	// Role scope: members are pinned to their own assignments.
	if input.Actor.IsAdmin() {
		filter.AssigneeID = input.AssigneeID
	} else {
		id := input.Actor.ID
		filter.AssigneeID = &id
	}

	return filter, nil
}

// GetTask returns a single task the actor may see. Tasks outside the
// actor's scope read as not found so their existence is not leaked.
func (s *TaskService) GetTask(actor *models.User, id uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(id, "Assignee", "CreatedBy")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !authz.CanAccess(actor, task, authz.ActionView) {
		return nil, ErrTaskNotFound
	}

	return task, nil
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Actor       *models.User
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
	Tags        []string
	AssigneeID  uuid.UUID
}

// CreateTask validates and creates a task, records the actor as its
// creator, and appends a create entry to the activity log.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(input.Description) > constants.MaxDescriptionLength {
		return nil, ErrDescriptionTooLong
	}
	if input.DueDate != nil && !input.DueDate.After(time.Now()) {
		return nil, ErrDueDateInPast
	}

	tags, err := NormalizeTags(input.Tags)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	if err := s.ensureUserExists(input.AssigneeID); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     input.DueDate,
		Tags:        tags,
		AssigneeID:  input.AssigneeID,
		CreatedByID: input.Actor.ID,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.appendLog(models.ActivityLog{
		TaskID: task.ID,
		UserID: input.Actor.ID,
		Action: models.ActionCreate,
		Changes: models.ChangeSet{
			Title:    &models.FieldChange{To: task.Title},
			Assignee: &models.FieldChange{To: task.AssigneeID.String()},
		},
	})

	return s.taskRepo.FindByID(task.ID, "Assignee", "CreatedBy")
}

// UpdateTaskInput represents a partial update. Pointer fields distinguish
// "not provided" from a zero value; ClearDueDate covers an explicit null.
type UpdateTaskInput struct {
	Actor        *models.User
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
	Tags         *[]string
	AssigneeID   *uuid.UUID
}

// UpdateTask applies a partial update to a task the actor may modify. It
// computes a field-level diff against the stored values and writes exactly
// one activity entry when at least one field actually changed; a payload
// identical to the current values writes nothing at all.
func (s *TaskService) UpdateTask(id uuid.UUID, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !authz.CanAccess(input.Actor, task, authz.ActionUpdate) {
		return nil, ErrTaskAccessDenied
	}

	var changes models.ChangeSet

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		if title != task.Title {
			changes.Title = &models.FieldChange{From: task.Title, To: title}
			task.Title = title
		}
	}

	if input.Description != nil {
		if utf8.RuneCountInString(*input.Description) > constants.MaxDescriptionLength {
			return nil, ErrDescriptionTooLong
		}
		if *input.Description != task.Description {
			changes.Description = &models.FieldChange{From: task.Description, To: *input.Description}
			task.Description = *input.Description
		}
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		if *input.Status != task.Status {
			changes.Status = &models.FieldChange{From: string(task.Status), To: string(*input.Status)}
			task.Status = *input.Status
		}
	}

	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		if *input.Priority != task.Priority {
			changes.Priority = &models.FieldChange{From: string(task.Priority), To: string(*input.Priority)}
			task.Priority = *input.Priority
		}
	}

	if input.ClearDueDate {
		if task.DueDate != nil {
			changes.DueDate = &models.FieldChange{From: formatTime(task.DueDate), To: nil}
			task.DueDate = nil
		}
	} else if input.DueDate != nil {
		if !equalTime(task.DueDate, input.DueDate) {
			changes.DueDate = &models.FieldChange{From: formatTime(task.DueDate), To: formatTime(input.DueDate)}
			due := *input.DueDate
			task.DueDate = &due
		}
	}

	if input.Tags != nil {
		tags, err := NormalizeTags(*input.Tags)
		if err != nil {
			return nil, err
		}
		if !equalStrings(task.Tags, tags) {
			changes.Tags = &models.FieldChange{From: []string(task.Tags), To: []string(tags)}
			task.Tags = tags
		}
	}

	if input.AssigneeID != nil && *input.AssigneeID != task.AssigneeID {
		if err := s.ensureUserExists(*input.AssigneeID); err != nil {
			return nil, err
		}
		changes.Assignee = &models.FieldChange{From: task.AssigneeID.String(), To: input.AssigneeID.String()}
		task.AssigneeID = *input.AssigneeID
	}

	// Nothing changed: skip both the write and the log entry.
	if changes.Empty() {
		return s.taskRepo.FindByID(task.ID, "Assignee", "CreatedBy")
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.appendLog(models.ActivityLog{
		TaskID:  task.ID,
		UserID:  input.Actor.ID,
		Action:  models.ActionUpdate,
		Changes: changes,
	})

	return s.taskRepo.FindByID(task.ID, "Assignee", "CreatedBy")
}

// DeleteTask deletes a task the actor may modify and appends a delete
// entry. The task's earlier history is kept.
func (s *TaskService) DeleteTask(actor *models.User, id uuid.UUID) error {
	task, err := s.taskRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if !authz.CanAccess(actor, task, authz.ActionDelete) {
		return ErrTaskAccessDenied
	}

	if err := s.taskRepo.Delete(task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.appendLog(models.ActivityLog{
		TaskID: task.ID,
		UserID: actor.ID,
		Action: models.ActionDelete,
		Changes: models.ChangeSet{
			Title: &models.FieldChange{From: task.Title},
		},
	})

	return nil
}

// BulkUpdateInput represents input for a bulk task update
type BulkUpdateInput struct {
	Actor      *models.User
	TaskIDs    []string
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssigneeID *uuid.UUID
}

// BulkUpdate applies the same update to up to 50 tasks. All ids must be
// well-formed and a requested assignee must exist before anything is
// written; the tasks are then updated in one store-level batch while the
// per-task log entries are written in a separate step, so logs are not
// atomic with the batch.
func (s *TaskService) BulkUpdate(input BulkUpdateInput) (int64, error) {
	if len(input.TaskIDs) == 0 {
		return 0, ErrNoTaskIDs
	}
	if len(input.TaskIDs) > constants.MaxBulkTasks {
		return 0, ErrTooManyTaskIDs
	}

	ids := make([]uuid.UUID, 0, len(input.TaskIDs))
	for _, raw := range input.TaskIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return 0, ErrInvalidTaskID
		}
		ids = append(ids, id)
	}

	updates := map[string]interface{}{}
	logged := map[string]interface{}{}
	if input.Status != nil {
		if !input.Status.Valid() {
			return 0, ErrInvalidStatus
		}
		updates["status"] = *input.Status
		logged["status"] = string(*input.Status)
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return 0, ErrInvalidPriority
		}
		updates["priority"] = *input.Priority
		logged["priority"] = string(*input.Priority)
	}
	if input.AssigneeID != nil {
		if err := s.ensureUserExists(*input.AssigneeID); err != nil {
			return 0, err
		}
		updates["assignee_id"] = *input.AssigneeID
		logged["assignee"] = input.AssigneeID.String()
	}
	if len(updates) == 0 {
		return 0, ErrNoBulkFields
	}

	existing, err := s.taskRepo.FindExistingIDs(ids)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve task ids: %w", err)
	}
	if len(existing) == 0 {
		return 0, nil
	}

	affected, err := s.taskRepo.UpdateBatch(existing, updates)
	if err != nil {
		return 0, fmt.Errorf("failed to apply bulk update: %w", err)
	}

	entries := make([]models.ActivityLog, 0, len(existing))
	for _, id := range existing {
		entries = append(entries, models.ActivityLog{
			TaskID: id,
			UserID: input.Actor.ID,
			Action: models.ActionUpdate,
			Changes: models.ChangeSet{
				Bulk:    true,
				Updates: logged,
			},
		})
	}
	if err := s.activityRepo.CreateBatch(entries); err != nil {
		log.Printf("failed to append bulk activity entries: %v", err)
	}

	return affected, nil
}

// GetTaskActivity returns the activity history of a task the actor may see.
func (s *TaskService) GetTaskActivity(actor *models.User, id uuid.UUID, limit int) ([]models.ActivityLog, error) {
	if _, err := s.GetTask(actor, id); err != nil {
		return nil, err
	}

	entries, err := s.activityRepo.ListByTask(id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list task activity: %w", err)
	}
	return entries, nil
}

// NormalizeTags trims, lower-cases, and de-duplicates tags while keeping
// their order. Empty tags and oversized tag lists are rejected.
func NormalizeTags(tags []string) (models.StringList, error) {
	if tags == nil {
		return models.StringList{}, nil
	}

	seen := make(map[string]struct{}, len(tags))
	normalized := make(models.StringList, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			return nil, ErrEmptyTag
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}

	if len(normalized) > constants.MaxTags {
		return nil, ErrTooManyTags
	}

	return normalized, nil
}

func (s *TaskService) ensureUserExists(id uuid.UUID) error {
	if _, err := s.userRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotFound
		}
		return fmt.Errorf("failed to verify assignee: %w", err)
	}
	return nil
}

// appendLog writes one activity entry. Mutation and log are not covered by
// a shared transaction; a failed log write is reported but does not undo
// the mutation.
func (s *TaskService) appendLog(entry models.ActivityLog) {
	if err := s.activityRepo.Create(&entry); err != nil {
		log.Printf("failed to append activity entry for task %s: %v", entry.TaskID, err)
	}
}

func validateTitle(title string) error {
	if title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > constants.MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func clampPage(page int) int {
	if page < constants.MinPage {
		return constants.MinPage
	}
	return page
}

func clampPageSize(size int) int {
	if size < 1 {
		return constants.DefaultPageSize
	}
	if size > constants.MaxPageSize {
		return constants.MaxPageSize
	}
	return size
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
