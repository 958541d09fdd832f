package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/constants"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNextPage bool  `json:"has_next_page"`
	HasPrevPage bool  `json:"has_prev_page"`
}

// ClampPage forces a page number into the valid range.
func ClampPage(page int) int {
	if page < constants.MinPage {
		return constants.MinPage
	}
	return page
}

// ClampLimit forces a page size into [1, MaxPageSize], falling back to the
// default when the value is missing or non-positive.
func ClampLimit(limit int) int {
	if limit < 1 {
		return constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		return constants.MaxPageSize
	}
	return limit
}

// GetPaginationParams extracts and clamps pagination parameters from the request
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(constants.MinPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))

	page = ClampPage(page)
	limit = ClampLimit(limit)

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// NewPaginationResponse derives the pagination metadata for a result page.
func NewPaginationResponse(page, limit int, total int64) PaginationResponse {
	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	return PaginationResponse{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
