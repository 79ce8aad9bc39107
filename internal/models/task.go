package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	MaxDescriptionLength = 500
)

type SubTask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// SubTaskList is stored as a single JSON column; subtasks have no identity
// of their own and are always replaced wholesale with their parent task.
type SubTaskList []SubTask

func (s SubTaskList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *SubTaskList) Scan(value interface{}) error {
	if value == nil {
		*s = SubTaskList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into SubTaskList", value)
	}
}

// TaskOwner carries the owning user's display fields on list responses.
// Populated at read time, never written back.
type TaskOwner struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type Task struct {
	ID          uuid.UUID   `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID   `json:"userId" gorm:"type:uuid;not null;index"`
	Title       string      `json:"title" gorm:"not null"`
	Description string      `json:"description"`
	Status      string      `json:"status" gorm:"not null;default:'pending'"`
	Priority    string      `json:"priority" gorm:"not null;default:'low'"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	SubTasks    SubTaskList `json:"subTasks" gorm:"type:text"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	Owner *TaskOwner `json:"user,omitempty" gorm:"-"`
}

func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidateTask normalizes the task in place and reports the first schema
// violation. Defaults for status and priority are applied here so callers
// can persist the task directly afterwards.
func ValidateTask(t *Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return errors.New("please add a task title")
	}

	if len(t.Description) > MaxDescriptionLength {
		return fmt.Errorf("description can not be more than %d characters", MaxDescriptionLength)
	}

	if t.Status == "" {
		t.Status = StatusPending
	}
	if !ValidStatus(t.Status) {
		return fmt.Errorf("invalid status %q", t.Status)
	}

	if t.Priority == "" {
		t.Priority = PriorityLow
	}
	if !ValidPriority(t.Priority) {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}

	if t.UserID == uuid.Nil {
		return errors.New("task must have an owner")
	}

	for i := range t.SubTasks {
		t.SubTasks[i].Title = strings.TrimSpace(t.SubTasks[i].Title)
		if t.SubTasks[i].Title == "" {
			return errors.New("please add a subtask title")
		}
	}

	return nil
}
