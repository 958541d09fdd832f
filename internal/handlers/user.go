package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/dto"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/services"
	"github.com/taskflow/taskflow-api/internal/utils"
)

// UserHandler coordinates user-administration HTTP handlers. All routes
// behind it are admin only.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// ListUsers returns a filtered, paginated page of users.
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	input := services.ListUsersInput{
		Search:   c.Query("search"),
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if raw := c.Query("role"); raw != "" {
		role := models.UserRole(raw)
		input.Role = &role
	}

	users, total, err := h.userService.ListUsers(input)
	if err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserListResponse{
		Users:      dto.ToUserDTOs(users),
		Pagination: utils.NewPaginationResponse(params.Page, params.Limit, total),
	})
}

// GetUser returns a single user by id.
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid user id")
		return
	}

	user, err := h.userService.GetUser(id)
	if err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// ChangeRole updates another user's role.
func (h *UserHandler) ChangeRole(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid user id")
		return
	}

	type ChangeRoleRequest struct {
		Role string `json:"role" binding:"required"`
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.ChangeRole(actor, id, models.UserRole(req.Role))
	if err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteUser removes another user's account. Users carrying assigned
// tasks cannot be removed until the tasks are reassigned.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid user id")
		return
	}

	if err := h.userService.DeleteUser(actor, id); err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
	})
}

func respondUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrCannotChangeOwnRole),
		errors.Is(err, services.ErrCannotDeleteSelf):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrUserHasAssignedTasks):
		apierrors.Conflict(c, err.Error())
	default:
		respondInternalError(c, err)
	}
}
