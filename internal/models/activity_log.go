package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityAction string

const (
	ActionCreate ActivityAction = "create"
	ActionUpdate ActivityAction = "update"
	ActionDelete ActivityAction = "delete"
)

// FieldChange records the before and after value of a single task field.
type FieldChange struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// ChangeSet is the typed payload of an activity entry. Exactly the known
// task fields can appear as field-level changes; bulk operations use the
// Bulk flag plus the applied update map instead.
type ChangeSet struct {
	Title       *FieldChange `json:"title,omitempty"`
	Description *FieldChange `json:"description,omitempty"`
	Status      *FieldChange `json:"status,omitempty"`
	Priority    *FieldChange `json:"priority,omitempty"`
	DueDate     *FieldChange `json:"due_date,omitempty"`
	Tags        *FieldChange `json:"tags,omitempty"`
	Assignee    *FieldChange `json:"assignee,omitempty"`

	Bulk    bool                   `json:"bulk,omitempty"`
	Updates map[string]interface{} `json:"updates,omitempty"`
}

// Empty reports whether the change set carries no information at all.
func (c ChangeSet) Empty() bool {
	return c.Title == nil &&
		c.Description == nil &&
		c.Status == nil &&
		c.Priority == nil &&
		c.DueDate == nil &&
		c.Tags == nil &&
		c.Assignee == nil &&
		!c.Bulk &&
		len(c.Updates) == 0
}

// Value implements driver.Valuer.
func (c ChangeSet) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *ChangeSet) Scan(value interface{}) error {
	if value == nil {
		*c = ChangeSet{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into ChangeSet", value)
	}
}

// ActivityLog is an append-only record of a mutation applied to a task.
// Rows are never updated or deleted, and they intentionally survive the
// deletion of the task they describe.
type ActivityLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"task_id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Action    ActivityAction `gorm:"type:varchar(20);not null;index" json:"action"`
	Changes   ChangeSet      `gorm:"type:text" json:"changes"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a UUID so the model works on every dialect.
func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
