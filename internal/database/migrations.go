package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes that AutoMigrate does not
// cover. It queries pg_indexes and is only meant for the PostgreSQL store.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Composite indexes backing the role-scoped list queries
		{"tasks", "idx_tasks_assignee_status", "assignee_id, status"},
		{"tasks", "idx_tasks_assignee_due_date", "assignee_id, due_date"},
		{"tasks", "idx_tasks_assignee_created_at", "assignee_id, created_at"},

		// Activity histogram queries group by action over a time window
		{"activity_logs", "idx_activity_logs_action_created_at", "action, created_at"},
		{"activity_logs", "idx_activity_logs_task_created_at", "task_id, created_at"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Scan(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on %s(%s)", idx.name, idx.table, idx.columns)
	}

	return nil
}
