package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCannotChangeOwnRole  = errors.New("you cannot change your own role")
	ErrCannotDeleteSelf     = errors.New("you cannot delete your own account")
	ErrUserHasAssignedTasks = errors.New("user still has assigned tasks; reassign them first")
)

// UserService handles administrative user management.
type UserService struct {
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, taskRepo repository.TaskRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
		taskRepo: taskRepo,
	}
}

// ListUsersInput represents filters for listing users
type ListUsersInput struct {
	Search   string
	Role     *models.UserRole
	Page     int
	PageSize int
}

// ListUsers returns a filtered, paginated page of users.
func (s *UserService) ListUsers(input ListUsersInput) ([]models.User, int64, error) {
	if input.Role != nil && !input.Role.Valid() {
		return nil, 0, ErrInvalidRole
	}

	users, total, err := s.userRepo.List(repository.UserFilter{
		Search:   input.Search,
		Role:     input.Role,
		Page:     clampPage(input.Page),
		PageSize: clampPageSize(input.PageSize),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ChangeRole sets a user's role. Actors can never change their own role,
// so at least one other admin stays in control of role assignments.
func (s *UserService) ChangeRole(actor *models.User, targetID uuid.UUID, role models.UserRole) (*models.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if actor.ID == targetID {
		return nil, ErrCannotChangeOwnRole
	}

	user, err := s.GetUser(targetID)
	if err != nil {
		return nil, err
	}

	if user.Role == role {
		return user, nil
	}

	user.Role = role
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return user, nil
}

// DeleteUser removes a user. Deletion is blocked while the user still has
// assigned tasks, and actors can never delete themselves.
func (s *UserService) DeleteUser(actor *models.User, targetID uuid.UUID) error {
	if actor.ID == targetID {
		return ErrCannotDeleteSelf
	}

	user, err := s.GetUser(targetID)
	if err != nil {
		return err
	}

	assigned, err := s.taskRepo.CountByAssignee(user.ID)
	if err != nil {
		return fmt.Errorf("failed to count assigned tasks: %w", err)
	}
	if assigned > 0 {
		return ErrUserHasAssignedTasks
	}

	if err := s.userRepo.Delete(user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}
