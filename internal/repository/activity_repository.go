package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormActivityRepository is a GORM implementation of ActivityRepository
type GormActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &GormActivityRepository{db: db}
}

// Create appends a single entry
func (r *GormActivityRepository) Create(entry *models.ActivityLog) error {
	return r.db.Create(entry).Error
}

// CreateBatch appends one entry per element
func (r *GormActivityRepository) CreateBatch(entries []models.ActivityLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.Create(&entries).Error
}

// ListByTask returns a task's history, newest first
func (r *GormActivityRepository) ListByTask(taskID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	query := r.db.Where("task_id = ?", taskID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountsByActionSince returns entry counts grouped by action
func (r *GormActivityRepository) CountsByActionSince(since time.Time) (map[models.ActivityAction]int64, error) {
	var rows []struct {
		Action models.ActivityAction `gorm:"column:action"`
		Count  int64                 `gorm:"column:count"`
	}
	err := r.db.Model(&models.ActivityLog{}).
		Select("action, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.ActivityAction]int64, len(rows))
	for _, row := range rows {
		counts[row.Action] = row.Count
	}
	return counts, nil
}

// Count returns the total number of entries
func (r *GormActivityRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.ActivityLog{}).Count(&count).Error
	return count, err
}
