package services

import (
	"net/url"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"kanri/backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}))

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()

	user := &models.User{
		ID:       uuid.Must(uuid.NewV4()),
		Name:     name,
		Email:    email,
		Role:     models.RoleUser,
		Password: "hashed-password",
	}
	require.NoError(t, db.Create(user).Error)

	return user
}

func createTestTask(t *testing.T, db *gorm.DB, owner *models.User, title, status, priority string, createdAt time.Time) models.Task {
	t.Helper()

	task := models.Task{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    owner.ID,
		Title:     title,
		Status:    status,
		Priority:  priority,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, db.Create(&task).Error)

	return task
}

func TestParseListQuery(t *testing.T) {
	values := url.Values{
		"status":   {"pending"},
		"priority": {"high"},
		"search":   {"report"},
		"sort":     {"-dueDate"},
		"page":     {"2"},
		"limit":    {"5"},
		"fields":   {"title"},
		"user_id":  {"11111111-1111-1111-1111-111111111111"},
		"owner":    {"someone-else"},
	}

	q := ParseListQuery(values)

	assert.Equal(t, "pending", q.Filters["status"])
	assert.Equal(t, "high", q.Filters["priority"])
	assert.Equal(t, "report", q.Search)
	assert.Equal(t, "-dueDate", q.Sort)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 5, q.Limit)

	// Only allow-listed keys survive as filters.
	assert.Len(t, q.Filters, 2)
	assert.NotContains(t, q.Filters, "user_id")
	assert.NotContains(t, q.Filters, "owner")
	assert.NotContains(t, q.Filters, "fields")
}

func TestParseListQuery_Defaults(t *testing.T) {
	q := ParseListQuery(url.Values{})

	assert.Equal(t, DefaultPage, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Empty(t, q.Filters)
	assert.Empty(t, q.Search)
	assert.Empty(t, q.Sort)
}

func TestParseListQuery_InvalidPagination(t *testing.T) {
	for _, values := range []url.Values{
		{"page": {"0"}, "limit": {"-3"}},
		{"page": {"abc"}, "limit": {"xyz"}},
		{"page": {"-1"}},
	} {
		q := ParseListQuery(values)
		assert.Equal(t, DefaultPage, q.Page)
		assert.Equal(t, DefaultLimit, q.Limit)
	}
}

func TestListTasksQuery_CacheKey(t *testing.T) {
	a := ListTasksQuery{Filters: map[string]string{"status": "pending"}, Page: 1, Limit: 10}
	b := ListTasksQuery{Filters: map[string]string{"status": "pending"}, Page: 1, Limit: 10}
	c := ListTasksQuery{Filters: map[string]string{"status": "completed"}, Page: 1, Limit: 10}

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}

func TestListTasksQuery_CacheKeyDelimiterValues(t *testing.T) {
	// A filter value containing the key/value syntax of another filter must
	// not collide with the query that sets both filters separately.
	smuggled := ListTasksQuery{
		Filters: map[string]string{"status": "pending&priority=high"},
		Page:    1, Limit: 10,
	}
	split := ListTasksQuery{
		Filters: map[string]string{"status": "pending", "priority": "high"},
		Page:    1, Limit: 10,
	}

	assert.NotEqual(t, smuggled.CacheKey(), split.CacheKey())

	// Same for values carrying the joiner characters themselves.
	colon := ListTasksQuery{
		Filters: map[string]string{"status": "x:priority=y"},
		Page:    1, Limit: 10,
	}
	pair := ListTasksQuery{
		Filters: map[string]string{"status": "x", "priority": "y"},
		Page:    1, Limit: 10,
	}

	assert.NotEqual(t, colon.CacheKey(), pair.CacheKey())
}

func TestCreateTask(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Alice", "alice@example.com")
	service := NewTaskService()

	created, err := service.CreateTask(db, models.Task{
		UserID: owner.ID,
		Title:  "Write report",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, models.PriorityLow, created.Priority)

	fetched, err := service.GetTaskByID(db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", fetched.Title)
}

func TestCreateTask_Invalid(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Alice", "alice@example.com")
	service := NewTaskService()

	_, err := service.CreateTask(db, models.Task{UserID: owner.ID, Title: "   "})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = service.CreateTask(db, models.Task{Title: "orphan"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestGetTaskByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()

	_, err := service.GetTaskByID(db, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestListTasks_OwnerIsolation(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()

	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")

	now := time.Now()
	createTestTask(t, db, alice, "alice task", models.StatusPending, models.PriorityLow, now)
	createTestTask(t, db, bob, "bob task", models.StatusPending, models.PriorityLow, now)

	tasks, err := service.ListTasks(db, alice, ListTasksQuery{})
	require.NoError(t, err)

	require.Len(t, tasks, 1)
	assert.Equal(t, "alice task", tasks[0].Title)
	assert.Equal(t, alice.ID, tasks[0].UserID)
}

func TestListTasks_HostileFilterCannotWidenScope(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()

	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")

	now := time.Now()
	createTestTask(t, db, alice, "alice task", models.StatusPending, models.PriorityLow, now)
	createTestTask(t, db, bob, "bob secret", models.StatusPending, models.PriorityLow, now)

	// A request trying to filter by another user's id: the key never
	// survives parsing, and the owner predicate is applied regardless.
	q := ParseListQuery(url.Values{
		"user_id": {bob.ID.String()},
		"userId":  {bob.ID.String()},
		"user":    {bob.ID.String()},
	})

	tasks, err := service.ListTasks(db, alice, q)
	require.NoError(t, err)

	require.Len(t, tasks, 1)
	assert.Equal(t, "alice task", tasks[0].Title)
}

func TestListTasks_FilterAndSearchIntersect(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	now := time.Now()
	createTestTask(t, db, alice, "Quarterly report", models.StatusPending, models.PriorityHigh, now)
	createTestTask(t, db, alice, "Quarterly review", models.StatusCompleted, models.PriorityHigh, now)
	createTestTask(t, db, alice, "Groceries", models.StatusPending, models.PriorityLow, now)

	q := ParseListQuery(url.Values{
		"status": {models.StatusPending},
		"search": {"quarterly"},
	})

	tasks, err := service.ListTasks(db, alice, q)
	require.NoError(t, err)

	require.Len(t, tasks, 1)
	assert.Equal(t, "Quarterly report", tasks[0].Title)
}

func TestListTasks_SearchCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	createTestTask(t, db, alice, "Fix LOGIN page", models.StatusPending, models.PriorityLow, time.Now())

	tasks, err := service.ListTasks(db, alice, ListTasksQuery{Search: "login"})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestListTasks_SearchEscapesWildcards(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	now := time.Now()
	createTestTask(t, db, alice, "Reach 100% coverage", models.StatusPending, models.PriorityLow, now)
	createTestTask(t, db, alice, "Reach 1000 users", models.StatusPending, models.PriorityLow, now)

	tasks, err := service.ListTasks(db, alice, ListTasksQuery{Search: "100%"})
	require.NoError(t, err)

	require.Len(t, tasks, 1)
	assert.Equal(t, "Reach 100% coverage", tasks[0].Title)
}

func TestListTasks_Sorting(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	createTestTask(t, db, alice, "banana", models.StatusPending, models.PriorityLow, base)
	createTestTask(t, db, alice, "apple", models.StatusPending, models.PriorityLow, base.Add(time.Hour))
	createTestTask(t, db, alice, "cherry", models.StatusPending, models.PriorityLow, base.Add(2*time.Hour))

	tasks, err := service.ListTasks(db, alice, ListTasksQuery{Sort: "title"})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "apple", tasks[0].Title)
	assert.Equal(t, "cherry", tasks[2].Title)

	tasks, err = service.ListTasks(db, alice, ListTasksQuery{Sort: "-title"})
	require.NoError(t, err)
	assert.Equal(t, "cherry", tasks[0].Title)

	// Default ordering is newest first.
	tasks, err = service.ListTasks(db, alice, ListTasksQuery{})
	require.NoError(t, err)
	assert.Equal(t, "cherry", tasks[0].Title)
	assert.Equal(t, "banana", tasks[2].Title)

	// Unknown sort fields fall back to the default instead of erroring.
	tasks, err = service.ListTasks(db, alice, ListTasksQuery{Sort: "password"})
	require.NoError(t, err)
	assert.Equal(t, "cherry", tasks[0].Title)
}

func TestListTasks_Pagination(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		createTestTask(t, db, alice, "task", models.StatusPending, models.PriorityLow, base.Add(time.Duration(i)*time.Minute))
	}

	page1, err := service.ListTasks(db, alice, ListTasksQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page1, 10)

	page3, err := service.ListTasks(db, alice, ListTasksQuery{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page3, 5)

	// Beyond the last page there is no data, not an error.
	page4, err := service.ListTasks(db, alice, ListTasksQuery{Page: 4, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page4)
}

func TestListTasks_DenormalizesOwner(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	createTestTask(t, db, alice, "task", models.StatusPending, models.PriorityLow, time.Now())

	tasks, err := service.ListTasks(db, alice, ListTasksQuery{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	require.NotNil(t, tasks[0].Owner)
	assert.Equal(t, alice.ID, tasks[0].Owner.ID)
	assert.Equal(t, "Alice", tasks[0].Owner.Name)
	assert.Equal(t, "alice@example.com", tasks[0].Owner.Email)
}

func TestUpdateTask_PartialPatch(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	task := createTestTask(t, db, alice, "original", models.StatusPending, models.PriorityHigh, time.Now())
	task.Description = "keep me"
	require.NoError(t, db.Save(&task).Error)

	status := models.StatusCompleted
	updated, err := service.UpdateTask(db, alice.ID, task.ID, TaskPatch{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, "original", updated.Title)
	assert.Equal(t, "keep me", updated.Description)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
}

func TestUpdateTask_NotOwner(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")

	task := createTestTask(t, db, alice, "alice task", models.StatusPending, models.PriorityLow, time.Now())

	title := "hijacked"
	_, err := service.UpdateTask(db, bob.ID, task.ID, TaskPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotTaskOwner)

	fetched, err := service.GetTaskByID(db, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice task", fetched.Title)
}

func TestUpdateTask_NotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	title := "anything"
	_, err := service.UpdateTask(db, alice.ID, uuid.Must(uuid.NewV4()), TaskPatch{Title: &title})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestUpdateTask_InvalidPatch(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	task := createTestTask(t, db, alice, "task", models.StatusPending, models.PriorityLow, time.Now())

	bad := "archived"
	_, err := service.UpdateTask(db, alice.ID, task.ID, TaskPatch{Status: &bad})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestDeleteTask(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	task := createTestTask(t, db, alice, "task", models.StatusPending, models.PriorityLow, time.Now())

	require.NoError(t, service.DeleteTask(db, alice.ID, task.ID))

	_, err := service.GetTaskByID(db, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDeleteTask_NotOwner(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")

	task := createTestTask(t, db, alice, "task", models.StatusPending, models.PriorityLow, time.Now())

	err := service.DeleteTask(db, bob.ID, task.ID)
	assert.ErrorIs(t, err, ErrNotTaskOwner)

	_, err = service.GetTaskByID(db, task.ID)
	assert.NoError(t, err)
}

func TestDeleteTask_NotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	err := service.DeleteTask(db, alice.ID, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskStatsByStatus(t *testing.T) {
	db := setupTestDB(t)
	stats := NewStatsService()

	sami := createTestUser(t, db, "Sami", "sami@example.com")
	other := createTestUser(t, db, "Other", "other@example.com")

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	createTestTask(t, db, sami, "a", models.StatusPending, models.PriorityLow, base)
	createTestTask(t, db, sami, "b", models.StatusPending, models.PriorityLow, base.Add(2*time.Hour))
	createTestTask(t, db, sami, "c", models.StatusCompleted, models.PriorityLow, base.Add(time.Hour))
	createTestTask(t, db, other, "d", models.StatusCompleted, models.PriorityLow, base)

	result, err := stats.TaskStatsByStatus(db, sami.ID)
	require.NoError(t, err)
	require.Len(t, result, 2)

	// Largest group first.
	assert.Equal(t, models.StatusPending, result[0].Status)
	assert.EqualValues(t, 2, result[0].NumTasks)
	assert.Equal(t, base.Unix(), result[0].MinDate.Unix())
	assert.Equal(t, base.Add(2*time.Hour).Unix(), result[0].MaxDate.Unix())

	assert.Equal(t, models.StatusCompleted, result[1].Status)
	assert.EqualValues(t, 1, result[1].NumTasks)
}

func TestTaskStatsByStatus_Empty(t *testing.T) {
	db := setupTestDB(t)
	stats := NewStatsService()
	alice := createTestUser(t, db, "Alice", "alice@example.com")

	result, err := stats.TaskStatsByStatus(db, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, result)
}
