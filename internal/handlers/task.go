package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/dto"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/services"
	"github.com/taskflow/taskflow-api/internal/utils"
)

// TaskHandler coordinates task-related HTTP handlers.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the page of tasks visible to the current user,
// filtered and sorted by the query parameters.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	input, err := listInputFromQuery(c, actor)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	tasks, total, err := h.taskService.ListTasks(*input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TaskListResponse{
		Tasks:      dto.ToTaskDTOs(tasks),
		Pagination: utils.NewPaginationResponse(input.Page, input.PageSize, total),
	})
}

// ListOverdue returns the caller's overdue tasks, soonest due first.
func (h *TaskHandler) ListOverdue(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	input, err := listInputFromQuery(c, actor)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	tasks, total, err := h.taskService.ListOverdue(*input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TaskListResponse{
		Tasks:      dto.ToTaskDTOs(tasks),
		Pagination: utils.NewPaginationResponse(input.Page, input.PageSize, total),
	})
}

// GetTask returns a single task if the caller may see it.
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid task id")
		return
	}

	task, err := h.taskService.GetTask(actor, id)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task assigned to an existing user.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title       string     `json:"title" binding:"required"`
		Description string     `json:"description"`
		Status      string     `json:"status"`
		Priority    string     `json:"priority"`
		DueDate     *time.Time `json:"due_date"`
		Tags        []string   `json:"tags"`
		AssigneeID  string     `json:"assignee_id" binding:"required"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	assigneeID, err := uuid.Parse(req.AssigneeID)
	if err != nil {
		apierrors.BadRequest(c, "Invalid assignee_id")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Actor:       actor,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatus(req.Status),
		Priority:    models.TaskPriority(req.Priority),
		DueDate:     req.DueDate,
		Tags:        req.Tags,
		AssigneeID:  assigneeID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update. Omitted fields keep their values;
// an explicit null due_date clears the deadline, so the raw body is
// re-parsed to tell the two apart.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid task id")
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	type UpdateTaskRequest struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Status      *string    `json:"status"`
		Priority    *string    `json:"priority"`
		DueDate     *time.Time `json:"due_date"`
		Tags        *[]string  `json:"tags"`
		AssigneeID  *string    `json:"assignee_id"`
	}

	var req UpdateTaskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Actor:       actor,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	}
	if raw, present := fields["due_date"]; present && req.DueDate == nil && string(raw) == "null" {
		input.ClearDueDate = true
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		input.Priority = &priority
	}
	if req.AssigneeID != nil {
		assigneeID, err := uuid.Parse(*req.AssigneeID)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assignee_id")
			return
		}
		input.AssigneeID = &assigneeID
	}

	task, err := h.taskService.UpdateTask(id, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask removes a task the caller may delete.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid task id")
		return
	}

	if err := h.taskService.DeleteTask(actor, id); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// BulkUpdate applies one update to a batch of tasks. Admin only.
func (h *TaskHandler) BulkUpdate(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type BulkUpdateRequest struct {
		TaskIDs    []string `json:"task_ids" binding:"required"`
		Status     *string  `json:"status"`
		Priority   *string  `json:"priority"`
		AssigneeID *string  `json:"assignee_id"`
	}

	var req BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.BulkUpdateInput{
		Actor:   actor,
		TaskIDs: req.TaskIDs,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		input.Priority = &priority
	}
	if req.AssigneeID != nil {
		assigneeID, err := uuid.Parse(*req.AssigneeID)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assignee_id")
			return
		}
		input.AssigneeID = &assigneeID
	}

	updated, err := h.taskService.BulkUpdate(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BulkUpdateResponse{Updated: updated})
}

// GetTaskActivity returns the task's activity entries, newest first.
func (h *TaskHandler) GetTaskActivity(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid task id")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.taskService.GetTaskActivity(actor, id, limit)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": dto.ToActivityLogDTOs(entries),
	})
}

func listInputFromQuery(c *gin.Context, actor *models.User) (*services.ListTasksInput, error) {
	params := utils.GetPaginationParams(c)

	input := services.ListTasksInput{
		Actor:     actor,
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      params.Page,
		PageSize:  params.Limit,
	}

	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		input.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := models.TaskPriority(raw)
		input.Priority = &priority
	}
	if raw := c.Query("tags"); raw != "" {
		input.Tags = strings.Split(raw, ",")
	}
	if raw := c.Query("assignee_id"); raw != "" {
		assigneeID, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.New("invalid assignee_id")
		}
		input.AssigneeID = &assigneeID
	}
	if raw := c.Query("due_date_from"); raw != "" {
		from, err := parseQueryTime(raw)
		if err != nil {
			return nil, errors.New("invalid due_date_from")
		}
		input.DueDateFrom = &from
	}
	if raw := c.Query("due_date_to"); raw != "" {
		to, err := parseQueryTime(raw)
		if err != nil {
			return nil, errors.New("invalid due_date_to")
		}
		input.DueDateTo = &to
	}

	return &input, nil
}

// parseQueryTime accepts either a full RFC 3339 timestamp or a bare date.
func parseQueryTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrTaskAccessDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrAssigneeNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleTooLong),
		errors.Is(err, services.ErrDescriptionTooLong),
		errors.Is(err, services.ErrDueDateInPast),
		errors.Is(err, services.ErrTooManyTags),
		errors.Is(err, services.ErrEmptyTag),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidSortField),
		errors.Is(err, services.ErrInvalidTaskID),
		errors.Is(err, services.ErrNoTaskIDs),
		errors.Is(err, services.ErrTooManyTaskIDs),
		errors.Is(err, services.ErrNoBulkFields):
		apierrors.BadRequest(c, err.Error())
	default:
		respondInternalError(c, err)
	}
}
