package constants

import "time"

// Context keys set by the auth middleware.
const (
	ContextKeyUserID = "user_id"
	ContextKeyUser   = "current_user"
)

// Session token settings.
const (
	TokenCookieName = "token"
	TokenExpiry     = 7 * 24 * time.Hour
)

const MinPasswordLength = 8

// Pagination defaults and bounds.
const (
	MinPage         = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Task field limits.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxTags              = 10
	MaxBulkTasks         = 50
)

// Statistics windows.
const (
	TopTagLimit          = 10
	TrendMonths          = 6
	MaxCompletionSample  = 100
	TeamActivityWindow   = 30 * 24 * time.Hour
	OverviewWeeklyWindow = 7 * 24 * time.Hour
)
