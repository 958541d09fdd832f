// Package authz holds the single authorization policy for task access.
// Every handler and service consults CanAccess instead of re-implementing
// the ownership check.
package authz

import "github.com/taskflow/taskflow-api/internal/models"

// Action is something a caller wants to do with a task.
type Action string

const (
	ActionView   Action = "view"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// CanAccess reports whether the actor may perform the action on the task.
// Admins may act on any task; members only on tasks assigned to them.
func CanAccess(actor *models.User, task *models.Task, action Action) bool {
	if actor == nil || task == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}

	switch action {
	case ActionView, ActionUpdate, ActionDelete:
		return task.AssigneeID == actor.ID
	default:
		return false
	}
}
