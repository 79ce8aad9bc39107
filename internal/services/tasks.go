package services

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kanri/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Query parameters that are never treated as field filters.
var reservedParams = map[string]bool{
	"page":   true,
	"sort":   true,
	"limit":  true,
	"fields": true,
	"search": true,
}

// Fields clients may filter on by equality. Everything else in the query
// string is ignored, so a client-supplied "user" or "user_id" key can never
// reach the store.
var allowedFilters = map[string]string{
	"status":   "status",
	"priority": "priority",
}

// Fields clients may sort on, keyed by their API names.
var allowedSorts = map[string]string{
	"title":     "title",
	"status":    "status",
	"priority":  "priority",
	"dueDate":   "due_date",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// ListTasksQuery is the normalized form of an untrusted task-list request.
// Build one with ParseListQuery; the zero value lists page 1 with defaults.
type ListTasksQuery struct {
	Filters map[string]string
	Search  string
	Sort    string
	Page    int
	Limit   int
}

// ParseListQuery normalizes raw query parameters: reserved keys are stripped,
// filters are reduced to the allow-list, page and limit fall back to their
// defaults when absent or not positive integers.
func ParseListQuery(values url.Values) ListTasksQuery {
	q := ListTasksQuery{
		Filters: make(map[string]string),
		Search:  values.Get("search"),
		Sort:    values.Get("sort"),
		Page:    DefaultPage,
		Limit:   DefaultLimit,
	}

	for key := range values {
		if reservedParams[key] {
			continue
		}
		if _, ok := allowedFilters[key]; ok {
			q.Filters[key] = values.Get(key)
		}
	}

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	if limit, err := strconv.Atoi(values.Get("limit")); err == nil && limit > 0 {
		q.Limit = limit
	}

	return q
}

// CacheKey is a stable identifier for this query shape, used by the cached
// task service. Owner scoping is the caller's responsibility.
func (q ListTasksQuery) CacheKey() string {
	v := url.Values{}
	for key, value := range q.Filters {
		v.Set(key, value)
	}
	v.Set("search", q.Search)
	v.Set("sort", q.Sort)
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	// Encode sorts keys and escapes values, so no two distinct queries can
	// produce the same key.
	return v.Encode()
}

func (q ListTasksQuery) orderClause() string {
	field := q.Sort
	desc := false
	if strings.HasPrefix(field, "-") {
		field = field[1:]
		desc = true
	}

	column, ok := allowedSorts[field]
	if !ok {
		// Unknown or empty sort: newest first.
		return "created_at DESC"
	}
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}

// TaskPatch is a partial update; nil fields are left untouched. Supplying a
// subtask list replaces it wholesale.
type TaskPatch struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Status      *string             `json:"status"`
	Priority    *string             `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
	SubTasks    *models.SubTaskList `json:"subTasks"`
}

type TaskService interface {
	CreateTask(db *gorm.DB, task models.Task) (models.Task, error)
	GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error)
	ListTasks(db *gorm.DB, owner *models.User, q ListTasksQuery) ([]models.Task, error)
	ListTasksByOwner(db *gorm.DB, ownerID uuid.UUID) ([]models.Task, error)
	UpdateTask(db *gorm.DB, callerID, id uuid.UUID, patch TaskPatch) (models.Task, error)
	DeleteTask(db *gorm.DB, callerID, id uuid.UUID) error
}

type TaskServiceImpl struct{}

func NewTaskService() *TaskServiceImpl {
	return &TaskServiceImpl{}
}

// CreateTask persists a validated task. The caller must have set UserID from
// the authenticated identity; client-supplied owner values never reach here.
func (s *TaskServiceImpl) CreateTask(db *gorm.DB, task models.Task) (models.Task, error) {
	if task.ID == uuid.Nil {
		task.ID = uuid.Must(uuid.NewV4())
	}
	if err := models.ValidateTask(&task); err != nil {
		return models.Task{}, &ValidationError{Err: err}
	}
	if err := db.Create(&task).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskServiceImpl) GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error) {
	var task models.Task
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

// ListTasks runs the filter/search/sort/paginate pipeline, always scoped to
// the owner. The owner predicate is applied after the client filters, so no
// request parameter can widen the result set to another user's tasks.
func (s *TaskServiceImpl) ListTasks(db *gorm.DB, owner *models.User, q ListTasksQuery) ([]models.Task, error) {
	query := db.Model(&models.Task{})

	for key, value := range q.Filters {
		query = query.Where(allowedFilters[key]+" = ?", value)
	}

	if q.Search != "" {
		query = query.Where("LOWER(title) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(q.Search))+"%")
	}

	query = query.Where("user_id = ?", owner.ID)

	page := q.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultLimit
	}

	var tasks []models.Task
	err := query.
		Order(q.orderClause()).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	// Denormalize the owner's display fields for the response. Every task in
	// the page belongs to the caller, so no extra lookup is needed.
	info := &models.TaskOwner{ID: owner.ID, Name: owner.Name, Email: owner.Email}
	for i := range tasks {
		tasks[i].Owner = info
	}

	return tasks, nil
}

func (s *TaskServiceImpl) ListTasksByOwner(db *gorm.DB, ownerID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	if err := db.Where("user_id = ?", ownerID).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTask fetches the task, verifies the caller owns it, merges the patch
// and re-validates before saving. The fetch and the write are separate
// statements: two concurrent updates both pass the ownership check and the
// later commit wins outright.
func (s *TaskServiceImpl) UpdateTask(db *gorm.DB, callerID, id uuid.UUID, patch TaskPatch) (models.Task, error) {
	task, err := s.GetTaskByID(db, id)
	if err != nil {
		return models.Task{}, err
	}

	if task.UserID != callerID {
		return models.Task{}, ErrNotTaskOwner
	}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.SubTasks != nil {
		task.SubTasks = *patch.SubTasks
	}

	if err := models.ValidateTask(&task); err != nil {
		return models.Task{}, &ValidationError{Err: err}
	}

	if err := db.Save(&task).Error; err != nil {
		return models.Task{}, err
	}

	return task, nil
}

// DeleteTask runs the same ownership sequence as UpdateTask, then removes the
// task permanently.
func (s *TaskServiceImpl) DeleteTask(db *gorm.DB, callerID, id uuid.UUID) error {
	task, err := s.GetTaskByID(db, id)
	if err != nil {
		return err
	}

	if task.UserID != callerID {
		return ErrNotTaskOwner
	}

	return db.Delete(&task).Error
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
