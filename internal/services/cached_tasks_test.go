package services

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kanri/backend/internal/cache"
	"kanri/backend/internal/models"
)

// countingTaskService counts pass-through calls so tests can tell cache hits
// from cache misses.
type countingTaskService struct {
	TaskService
	listCalls int
}

func (c *countingTaskService) ListTasks(db *gorm.DB, owner *models.User, q ListTasksQuery) ([]models.Task, error) {
	c.listCalls++
	return c.TaskService.ListTasks(db, owner, q)
}

type countingStatsService struct {
	StatsService
	statsCalls int
}

func (c *countingStatsService) TaskStatsByStatus(db *gorm.DB, ownerID uuid.UUID) ([]StatusStat, error) {
	c.statsCalls++
	return c.StatsService.TaskStatsByStatus(db, ownerID)
}

func setupCachedService(t *testing.T) (*gorm.DB, *CachedTaskService, *countingTaskService, *countingStatsService) {
	t.Helper()

	db := setupTestDB(t)
	tasks := &countingTaskService{TaskService: NewTaskService()}
	stats := &countingStatsService{StatsService: NewStatsService()}
	service := NewCachedTaskService(tasks, stats, cache.NewMultiLevelCache(nil), nil)

	return db, service, tasks, stats
}

func TestCachedTaskService_ListHitsCache(t *testing.T) {
	db, service, tasks, _ := setupCachedService(t)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	createTestTask(t, db, alice, "task", models.StatusPending, models.PriorityLow, time.Now())

	q := ListTasksQuery{Page: 1, Limit: 10}

	first, err := service.ListTasks(db, alice, q)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := service.ListTasks(db, alice, q)
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Equal(t, 1, tasks.listCalls)
}

func TestCachedTaskService_CacheKeysAreOwnerScoped(t *testing.T) {
	db, service, tasks, _ := setupCachedService(t)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")
	createTestTask(t, db, alice, "alice task", models.StatusPending, models.PriorityLow, time.Now())

	q := ListTasksQuery{Page: 1, Limit: 10}

	aliceTasks, err := service.ListTasks(db, alice, q)
	require.NoError(t, err)
	require.Len(t, aliceTasks, 1)

	// Same query shape, different owner: must not be served from alice's entry.
	bobTasks, err := service.ListTasks(db, bob, q)
	require.NoError(t, err)
	assert.Empty(t, bobTasks)

	assert.Equal(t, 2, tasks.listCalls)
}

func TestCachedTaskService_WriteInvalidatesOwnerLists(t *testing.T) {
	db, service, tasks, _ := setupCachedService(t)
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	q := ListTasksQuery{Page: 1, Limit: 10}

	_, err := service.ListTasks(db, alice, q)
	require.NoError(t, err)

	_, err = service.CreateTask(db, models.Task{UserID: alice.ID, Title: "new task"})
	require.NoError(t, err)

	listed, err := service.ListTasks(db, alice, q)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 2, tasks.listCalls)
}

func TestCachedTaskService_UpdateRefreshesTaskEntry(t *testing.T) {
	db, service, _, _ := setupCachedService(t)
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	created, err := service.CreateTask(db, models.Task{UserID: alice.ID, Title: "before"})
	require.NoError(t, err)

	title := "after"
	_, err = service.UpdateTask(db, alice.ID, created.ID, TaskPatch{Title: &title})
	require.NoError(t, err)

	fetched, err := service.GetTaskByID(db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", fetched.Title)
}

func TestCachedTaskService_DeleteEvicts(t *testing.T) {
	db, service, _, _ := setupCachedService(t)
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	created, err := service.CreateTask(db, models.Task{UserID: alice.ID, Title: "task"})
	require.NoError(t, err)

	// Populate the per-task entry.
	_, err = service.GetTaskByID(db, created.ID)
	require.NoError(t, err)

	require.NoError(t, service.DeleteTask(db, alice.ID, created.ID))

	_, err = service.GetTaskByID(db, created.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCachedTaskService_StatsCachedAndInvalidated(t *testing.T) {
	db, service, _, stats := setupCachedService(t)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	createTestTask(t, db, alice, "task", models.StatusPending, models.PriorityLow, time.Now())

	_, err := service.TaskStatsByStatus(db, alice.ID)
	require.NoError(t, err)
	_, err = service.TaskStatsByStatus(db, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.statsCalls)

	_, err = service.CreateTask(db, models.Task{UserID: alice.ID, Title: "another"})
	require.NoError(t, err)

	result, err := service.TaskStatsByStatus(db, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.statsCalls)
	require.Len(t, result, 1)
	assert.EqualValues(t, 2, result[0].NumTasks)
}

func TestCachedTaskService_WarmOwnerQueuesJobs(t *testing.T) {
	db := setupTestDB(t)
	mlc := cache.NewMultiLevelCache(nil)
	warmer := cache.NewCacheWarmer(mlc, time.Minute)

	service := NewCachedTaskService(NewTaskService(), NewStatsService(), mlc, warmer)
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	service.WarmOwner(db, alice)

	assert.Equal(t, 2, warmer.QueueLen())
}

func TestCachedTaskService_NilWarmerIsNoop(t *testing.T) {
	db, service, _, _ := setupCachedService(t)
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	// Must not panic without a warmer wired in.
	service.WarmOwner(db, alice)
}
