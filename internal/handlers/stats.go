package handlers

import (
	"net/http"

	"kanri/backend/internal/middleware"
	"kanri/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type StatsHandler struct {
	db           *gorm.DB
	statsService services.StatsService
}

func NewStatsHandler(db *gorm.DB, statsService services.StatsService) *StatsHandler {
	return &StatsHandler{db: db, statsService: statsService}
}

// GetTaskStats returns the caller's tasks grouped by status, largest group
// first. The scope is implicit: there are no parameters to widen it.
func (h *StatsHandler) GetTaskStats(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	stats, err := h.statsService.TaskStatsByStatus(h.db, user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	if stats == nil {
		stats = []services.StatusStat{}
	}

	respondData(c, http.StatusOK, stats)
}
