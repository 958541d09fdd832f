package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/services"
)

// StatsHandler coordinates the read-only statistics endpoints.
type StatsHandler struct {
	statsService *services.StatsService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// Overview returns the caller's task overview.
func (h *StatsHandler) Overview(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	stats, err := h.statsService.Overview(actor)
	if err != nil {
		respondInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Analytics returns tag frequencies, the monthly trend, and completion
// timing for the caller's visible tasks.
func (h *StatsHandler) Analytics(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	stats, err := h.statsService.Analytics(actor)
	if err != nil {
		respondInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Team returns the per-assignee rollup. Admin only.
func (h *StatsHandler) Team(c *gin.Context) {
	stats, err := h.statsService.Team()
	if err != nil {
		respondInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// System returns platform-wide totals. Admin only.
func (h *StatsHandler) System(c *gin.Context) {
	stats, err := h.statsService.System()
	if err != nil {
		respondInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
