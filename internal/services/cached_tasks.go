package services

import (
	"fmt"
	"time"

	"kanri/backend/internal/cache"
	"kanri/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	taskCacheTTL  = 30 * time.Minute
	listCacheTTL  = 5 * time.Minute
	statsCacheTTL = time.Minute
)

// CachedTaskService decorates a TaskService and a StatsService with the
// multi-level cache. All list and stats keys embed the owner's id, so one
// user's cache entries are invisible to every other user and a write only
// invalidates its owner's entries.
type CachedTaskService struct {
	tasks  TaskService
	stats  StatsService
	cache  cache.Cache
	warmer *cache.CacheWarmer
}

func NewCachedTaskService(tasks TaskService, stats StatsService, c cache.Cache, warmer *cache.CacheWarmer) *CachedTaskService {
	return &CachedTaskService{
		tasks:  tasks,
		stats:  stats,
		cache:  c,
		warmer: warmer,
	}
}

func taskKey(id uuid.UUID) string {
	return fmt.Sprintf("task:%s", id)
}

func ownerListKey(ownerID uuid.UUID, q ListTasksQuery) string {
	return fmt.Sprintf("owner_tasks:%s:%s", ownerID, q.CacheKey())
}

func ownerPattern(ownerID uuid.UUID) string {
	return fmt.Sprintf("owner_tasks:%s:*", ownerID)
}

func statsKey(ownerID uuid.UUID) string {
	return fmt.Sprintf("stats:%s", ownerID)
}

func (s *CachedTaskService) CreateTask(db *gorm.DB, task models.Task) (models.Task, error) {
	created, err := s.tasks.CreateTask(db, task)
	if err != nil {
		return created, err
	}

	s.cache.Set(taskKey(created.ID), created, taskCacheTTL)
	s.invalidateOwner(created.UserID)

	return created, nil
}

func (s *CachedTaskService) GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error) {
	var cached models.Task
	if err := s.cache.Get(taskKey(id), &cached); err == nil {
		return cached, nil
	}

	task, err := s.tasks.GetTaskByID(db, id)
	if err != nil {
		return task, err
	}

	s.cache.Set(taskKey(id), task, taskCacheTTL)

	return task, nil
}

func (s *CachedTaskService) ListTasks(db *gorm.DB, owner *models.User, q ListTasksQuery) ([]models.Task, error) {
	key := ownerListKey(owner.ID, q)

	var cached []models.Task
	if err := s.cache.Get(key, &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.tasks.ListTasks(db, owner, q)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, tasks, listCacheTTL)

	return tasks, nil
}

func (s *CachedTaskService) ListTasksByOwner(db *gorm.DB, ownerID uuid.UUID) ([]models.Task, error) {
	key := fmt.Sprintf("owner_tasks:%s:all", ownerID)

	var cached []models.Task
	if err := s.cache.Get(key, &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.tasks.ListTasksByOwner(db, ownerID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, tasks, listCacheTTL)

	return tasks, nil
}

func (s *CachedTaskService) UpdateTask(db *gorm.DB, callerID, id uuid.UUID, patch TaskPatch) (models.Task, error) {
	updated, err := s.tasks.UpdateTask(db, callerID, id, patch)
	if err != nil {
		return updated, err
	}

	s.cache.Set(taskKey(id), updated, taskCacheTTL)
	s.invalidateOwner(updated.UserID)

	return updated, nil
}

func (s *CachedTaskService) DeleteTask(db *gorm.DB, callerID, id uuid.UUID) error {
	if err := s.tasks.DeleteTask(db, callerID, id); err != nil {
		return err
	}

	s.cache.Delete(taskKey(id))
	s.invalidateOwner(callerID)

	return nil
}

func (s *CachedTaskService) TaskStatsByStatus(db *gorm.DB, ownerID uuid.UUID) ([]StatusStat, error) {
	var cached []StatusStat
	if err := s.cache.Get(statsKey(ownerID), &cached); err == nil {
		return cached, nil
	}

	stats, err := s.stats.TaskStatsByStatus(db, ownerID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(statsKey(ownerID), stats, statsCacheTTL)

	return stats, nil
}

// WarmOwner queues the caller's first list page and stats for background
// warmup, typically right after login. Best effort: a nil warmer is a no-op.
func (s *CachedTaskService) WarmOwner(db *gorm.DB, owner *models.User) {
	if s.warmer == nil {
		return
	}

	ownerCopy := *owner
	defaultQuery := ListTasksQuery{Page: DefaultPage, Limit: DefaultLimit}

	s.warmer.AddWarmupJob(cache.WarmupJob{
		Key:      ownerListKey(owner.ID, defaultQuery),
		TTL:      listCacheTTL,
		Priority: 100,
		Load: func() (interface{}, error) {
			return s.tasks.ListTasks(db, &ownerCopy, defaultQuery)
		},
	})

	s.warmer.AddWarmupJob(cache.WarmupJob{
		Key:      statsKey(owner.ID),
		TTL:      statsCacheTTL,
		Priority: 80,
		Load: func() (interface{}, error) {
			return s.stats.TaskStatsByStatus(db, owner.ID)
		},
	})
}

func (s *CachedTaskService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}

func (s *CachedTaskService) invalidateOwner(ownerID uuid.UUID) {
	s.cache.DeletePattern(ownerPattern(ownerID))
	s.cache.Delete(statsKey(ownerID))
}
