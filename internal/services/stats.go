package services

import (
	"time"

	"kanri/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// StatusStat is one aggregation bucket: all of a user's tasks sharing a
// status, with the creation-time spread of the group.
type StatusStat struct {
	Status   string    `json:"status"`
	NumTasks int64     `json:"numTasks"`
	MinDate  time.Time `json:"minDate"`
	MaxDate  time.Time `json:"maxDate"`
}

type StatsService interface {
	TaskStatsByStatus(db *gorm.DB, ownerID uuid.UUID) ([]StatusStat, error)
}

type StatsServiceImpl struct{}

func NewStatsService() *StatsServiceImpl {
	return &StatsServiceImpl{}
}

// TaskStatsByStatus groups the owner's tasks by status, counting each group
// and recording the oldest and newest creation time, largest group first.
func (s *StatsServiceImpl) TaskStatsByStatus(db *gorm.DB, ownerID uuid.UUID) ([]StatusStat, error) {
	var stats []StatusStat
	err := db.Model(&models.Task{}).
		Select("status, COUNT(*) AS num_tasks, MIN(created_at) AS min_date, MAX(created_at) AS max_date").
		Where("user_id = ?", ownerID).
		Group("status").
		Order("num_tasks DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
