package handlers

import (
	"errors"
	"net/http"
	"time"

	"kanri/backend/internal/middleware"
	"kanri/backend/internal/models"
	"kanri/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// ReminderScheduler queues a due-date reminder for a task. Scheduling is
// best effort and never fails the request.
type ReminderScheduler interface {
	ScheduleDueReminder(task models.Task) error
}

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
	reminders   ReminderScheduler
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService, reminders ReminderScheduler) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService, reminders: reminders}
}

type taskInput struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      string             `json:"status"`
	Priority    string             `json:"priority"`
	DueDate     *time.Time         `json:"dueDate"`
	SubTasks    models.SubTaskList `json:"subTasks"`
}

// CreateTask persists a new task for the caller. The owner always comes
// from the authenticated identity; the input struct has no owner field, so
// client-supplied owner values are discarded during binding.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	var input taskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	task := models.Task{
		UserID:      user.ID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		SubTasks:    input.SubTasks,
	}

	created, err := h.taskService.CreateTask(h.db, task)
	if err != nil {
		if services.IsValidationError(err) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to create task")
		return
	}

	h.scheduleReminder(created)

	respondData(c, http.StatusCreated, created)
}

// GetTasks runs the list pipeline: allow-listed equality filters, title
// search, sort and pagination, always scoped to the caller.
func (h *TaskHandler) GetTasks(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	q := services.ParseListQuery(c.Request.URL.Query())

	tasks, err := h.taskService.ListTasks(h.db, user, q)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch tasks")
		return
	}

	if tasks == nil {
		tasks = []models.Task{}
	}

	respondList(c, http.StatusOK, len(tasks), tasks)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, "Task not found")
		return
	}

	var patch services.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.taskService.UpdateTask(h.db, user.ID, id, patch)
	if err != nil {
		h.handleTaskError(c, err, "update")
		return
	}

	h.scheduleReminder(updated)

	respondData(c, http.StatusOK, updated)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, "Task not found")
		return
	}

	if err := h.taskService.DeleteTask(h.db, user.ID, id); err != nil {
		h.handleTaskError(c, err, "delete")
		return
	}

	respondData(c, http.StatusOK, gin.H{})
}

func (h *TaskHandler) handleTaskError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		respondError(c, http.StatusNotFound, "Task not found")
	case errors.Is(err, services.ErrNotTaskOwner):
		respondError(c, http.StatusUnauthorized, "Not authorized to "+action+" this task")
	case services.IsValidationError(err):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "Failed to process task request")
	}
}

func (h *TaskHandler) scheduleReminder(task models.Task) {
	if h.reminders == nil || task.DueDate == nil || task.Status == models.StatusCompleted {
		return
	}
	// The request already succeeded; a lost reminder is tolerable.
	_ = h.reminders.ScheduleDueReminder(task)
}
