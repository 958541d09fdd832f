package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
)

// StatsService computes read-only aggregates under the same role scope as
// task listing: members see their own tasks only, admins see everything.
type StatsService struct {
	taskRepo     repository.TaskRepository
	userRepo     repository.UserRepository
	activityRepo repository.ActivityRepository
}

// NewStatsService creates a new StatsService
func NewStatsService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, activityRepo repository.ActivityRepository) *StatsService {
	return &StatsService{
		taskRepo:     taskRepo,
		userRepo:     userRepo,
		activityRepo: activityRepo,
	}
}

// DailyCount is one day of the trailing weekly trend.
type DailyCount struct {
	Date      string `json:"date"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
}

// OverviewStats summarizes the caller's visible tasks.
type OverviewStats struct {
	Total      int64                         `json:"total"`
	ByStatus   map[models.TaskStatus]int64   `json:"by_status"`
	ByPriority map[models.TaskPriority]int64 `json:"by_priority"`
	Overdue    int64                         `json:"overdue"`
	Weekly     []DailyCount                  `json:"weekly"`
}

// Overview computes the caller's task overview.
func (s *StatsService) Overview(actor *models.User) (*OverviewStats, error) {
	scope := scopeFor(actor)
	now := time.Now()

	byStatus, err := s.taskRepo.CountsByStatus(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	for _, status := range []models.TaskStatus{models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusDone} {
		if _, ok := byStatus[status]; !ok {
			byStatus[status] = 0
		}
	}

	byPriority, err := s.taskRepo.CountsByPriority(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to count by priority: %w", err)
	}
	for _, priority := range []models.TaskPriority{models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh, models.TaskPriorityUrgent} {
		if _, ok := byPriority[priority]; !ok {
			byPriority[priority] = 0
		}
	}

	var total int64
	for _, count := range byStatus {
		total += count
	}

	overdue, err := s.taskRepo.CountOverdue(scope, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue: %w", err)
	}

	weekly, err := s.weeklyTrend(scope, now)
	if err != nil {
		return nil, err
	}

	return &OverviewStats{
		Total:      total,
		ByStatus:   byStatus,
		ByPriority: byPriority,
		Overdue:    overdue,
		Weekly:     weekly,
	}, nil
}

func (s *StatsService) weeklyTrend(scope *uuid.UUID, now time.Time) ([]DailyCount, error) {
	days := int(constants.OverviewWeeklyWindow / (24 * time.Hour))
	start := startOfDay(now).AddDate(0, 0, -(days - 1))

	tasks, err := s.taskRepo.ListForAnalytics(scope, start)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weekly trend tasks: %w", err)
	}

	buckets := make(map[string]*DailyCount, days)
	trend := make([]DailyCount, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		trend[i] = DailyCount{Date: date}
		buckets[date] = &trend[i]
	}

	for _, task := range tasks {
		if bucket, ok := buckets[task.CreatedAt.Format("2006-01-02")]; ok {
			bucket.Created++
		}
		if task.Status == models.TaskStatusDone {
			if bucket, ok := buckets[task.UpdatedAt.Format("2006-01-02")]; ok {
				bucket.Completed++
			}
		}
	}

	return trend, nil
}

// TagCount is one entry of the tag frequency ranking.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// MonthlyTrend is one month of the creation/completion trend.
type MonthlyTrend struct {
	Month          string  `json:"month"`
	Created        int     `json:"created"`
	Completed      int     `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
}

// AnalyticsStats holds the deeper read-only aggregates.
type AnalyticsStats struct {
	TopTags            []TagCount     `json:"top_tags"`
	Monthly            []MonthlyTrend `json:"monthly"`
	AvgCompletionHours float64        `json:"avg_completion_hours"`
	CompletedSampled   int            `json:"completed_sampled"`
}

// Analytics computes tag frequencies, a six-month trend, and the average
// completion time over the most recently completed tasks.
func (s *StatsService) Analytics(actor *models.User) (*AnalyticsStats, error) {
	scope := scopeFor(actor)
	now := time.Now()

	topTags, err := s.topTags(scope)
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -(constants.TrendMonths - 1), 0)

	tasks, err := s.taskRepo.ListForAnalytics(scope, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analytics tasks: %w", err)
	}

	months := make([]MonthlyTrend, constants.TrendMonths)
	buckets := make(map[string]*MonthlyTrend, constants.TrendMonths)
	for i := 0; i < constants.TrendMonths; i++ {
		month := monthStart.AddDate(0, i, 0).Format("2006-01")
		months[i] = MonthlyTrend{Month: month}
		buckets[month] = &months[i]
	}

	var completed []models.Task
	for _, task := range tasks {
		if bucket, ok := buckets[task.CreatedAt.Format("2006-01")]; ok {
			bucket.Created++
		}
		if task.Status == models.TaskStatusDone {
			if bucket, ok := buckets[task.UpdatedAt.Format("2006-01")]; ok {
				bucket.Completed++
			}
			if !task.UpdatedAt.Before(monthStart) {
				completed = append(completed, task)
			}
		}
	}

	for i := range months {
		if months[i].Created > 0 {
			months[i].CompletionRate = float64(months[i].Completed) / float64(months[i].Created)
		}
	}

	// Average completion time over the most recently completed tasks.
	sort.Slice(completed, func(i, j int) bool {
		return completed[i].UpdatedAt.After(completed[j].UpdatedAt)
	})
	if len(completed) > constants.MaxCompletionSample {
		completed = completed[:constants.MaxCompletionSample]
	}

	var avgHours float64
	if len(completed) > 0 {
		var totalHours float64
		for _, task := range completed {
			totalHours += task.UpdatedAt.Sub(task.CreatedAt).Hours()
		}
		avgHours = totalHours / float64(len(completed))
	}

	return &AnalyticsStats{
		TopTags:            topTags,
		Monthly:            months,
		AvgCompletionHours: avgHours,
		CompletedSampled:   len(completed),
	}, nil
}

func (s *StatsService) topTags(scope *uuid.UUID) ([]TagCount, error) {
	tagSets, err := s.taskRepo.ListTagSets(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tags: %w", err)
	}

	counts := make(map[string]int)
	for _, tags := range tagSets {
		for _, tag := range tags {
			counts[tag]++
		}
	}

	ranking := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		ranking = append(ranking, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Count != ranking[j].Count {
			return ranking[i].Count > ranking[j].Count
		}
		return ranking[i].Tag < ranking[j].Tag
	})
	if len(ranking) > constants.TopTagLimit {
		ranking = ranking[:constants.TopTagLimit]
	}

	return ranking, nil
}

// MemberStats is one assignee's rollup in the team view.
type MemberStats struct {
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Total          int64     `json:"total"`
	Done           int64     `json:"done"`
	CompletionRate float64   `json:"completion_rate"`
}

// TeamStats is the admin-only per-assignee rollup plus the recent
// activity-action histogram.
type TeamStats struct {
	Members      []MemberStats                   `json:"members"`
	ActionCounts map[models.ActivityAction]int64 `json:"action_counts"`
}

// Team computes the admin team-performance view.
func (s *StatsService) Team() (*TeamStats, error) {
	aggregates, err := s.taskRepo.TeamAggregates()
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate team tasks: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(aggregates))
	for _, agg := range aggregates {
		ids = append(ids, agg.AssigneeID)
	}
	users, err := s.userRepo.FindByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assignees: %w", err)
	}
	byID := make(map[uuid.UUID]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	members := make([]MemberStats, 0, len(aggregates))
	for _, agg := range aggregates {
		member := MemberStats{
			UserID: agg.AssigneeID,
			Total:  agg.Total,
			Done:   agg.Done,
		}
		if agg.Total > 0 {
			member.CompletionRate = float64(agg.Done) / float64(agg.Total)
		}
		if user, ok := byID[agg.AssigneeID]; ok {
			member.Name = user.FullName()
			member.Email = user.Email
		}
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Total > members[j].Total
	})

	actions, err := s.activityRepo.CountsByActionSince(time.Now().Add(-constants.TeamActivityWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count activity actions: %w", err)
	}
	for _, action := range []models.ActivityAction{models.ActionCreate, models.ActionUpdate, models.ActionDelete} {
		if _, ok := actions[action]; !ok {
			actions[action] = 0
		}
	}

	return &TeamStats{
		Members:      members,
		ActionCounts: actions,
	}, nil
}

// SystemStats is the admin-only platform rollup.
type SystemStats struct {
	TotalUsers      int64                     `json:"total_users"`
	UsersByRole     map[models.UserRole]int64 `json:"users_by_role"`
	TotalTasks      int64                     `json:"total_tasks"`
	TotalActivity   int64                     `json:"total_activity"`
	TasksLast30Days int64                     `json:"tasks_last_30_days"`
}

// System computes platform-wide totals.
func (s *StatsService) System() (*SystemStats, error) {
	usersByRole, err := s.userRepo.CountsByRole()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleMember} {
		if _, ok := usersByRole[role]; !ok {
			usersByRole[role] = 0
		}
	}
	var totalUsers int64
	for _, count := range usersByRole {
		totalUsers += count
	}

	byStatus, err := s.taskRepo.CountsByStatus(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	var totalTasks int64
	for _, count := range byStatus {
		totalTasks += count
	}

	totalActivity, err := s.activityRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}

	recentTasks, err := s.taskRepo.CountCreatedSince(time.Now().Add(-constants.TeamActivityWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent tasks: %w", err)
	}

	return &SystemStats{
		TotalUsers:      totalUsers,
		UsersByRole:     usersByRole,
		TotalTasks:      totalTasks,
		TotalActivity:   totalActivity,
		TasksLast30Days: recentTasks,
	}, nil
}

func scopeFor(actor *models.User) *uuid.UUID {
	if actor.IsAdmin() {
		return nil
	}
	id := actor.ID
	return &id
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
