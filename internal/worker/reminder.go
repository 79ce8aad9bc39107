package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kanri/backend/internal/models"
)

const RemindersQueue = "reminders"

// reminders fire this long before the task's due date
const reminderLead = 24 * time.Hour

// ReminderScheduler enqueues a reminder job for a task with a due date.
type ReminderScheduler struct {
	queue *JobQueue
}

func NewReminderScheduler(queue *JobQueue) *ReminderScheduler {
	return &ReminderScheduler{queue: queue}
}

func (s *ReminderScheduler) ScheduleDueReminder(task models.Task) error {
	if task.DueDate == nil {
		return nil
	}

	processAt := task.DueDate.Add(-reminderLead)
	if processAt.Before(time.Now()) {
		processAt = time.Now()
	}

	payload := map[string]interface{}{
		"task_id":  task.ID.String(),
		"owner_id": task.UserID.String(),
		"title":    task.Title,
		"due_date": task.DueDate.Format(time.RFC3339),
	}

	return s.queue.EnqueueAt(RemindersQueue, JobTypeTaskReminder, payload, processAt)
}

// ReminderHandler returns the handler that processes task_reminder jobs.
// Delivery is a log line for now; a mail sender can hang off the same payload.
func ReminderHandler(log *zap.Logger) JobHandler {
	return func(ctx context.Context, job *Job) error {
		log.Info("task due soon",
			zap.Any("task_id", job.Payload["task_id"]),
			zap.Any("title", job.Payload["title"]),
			zap.Any("due_date", job.Payload["due_date"]),
		)
		return nil
	}
}
