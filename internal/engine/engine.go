// internal/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/annolab/annolab/internal/models"
	"github.com/google/uuid"
)

const publishTimeout = 5 * time.Second

// Engine owns task lifecycle transitions, assignment rules, the rework
// audit trail, and the decision of which notifications to queue.
type Engine struct {
	store TaskStore
	queue Publisher
}

func New(store TaskStore, queue Publisher) *Engine {
	return &Engine{
		store: store,
		queue: queue,
	}
}

// CreateTasks bulk-creates pending tasks owned by the calling manager.
func (e *Engine) CreateTasks(ctx context.Context, callerID string, drafts []models.TaskDraft) ([]*models.Task, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}

	tasks := make([]*models.Task, 0, len(drafts))
	for _, draft := range drafts {
		tasks = append(tasks, models.NewTask(draft, callerID))
	}

	if err := e.store.CreateTasks(ctx, tasks); err != nil {
		return nil, fmt.Errorf("failed to create tasks: %w", err)
	}

	return tasks, nil
}

// GetTask resolves a single task by id.
func (e *Engine) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	return task, nil
}

// Submit records a completed work unit: content and time taken are stored
// and the submitted flag is set. The task status is left untouched.
func (e *Engine) Submit(ctx context.Context, taskID, content string, timeTaken int) (*models.Task, error) {
	task, err := e.store.SubmitTask(ctx, taskID, content, timeTaken)
	if err != nil {
		return nil, fmt.Errorf("failed to submit task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}

	e.publishEvent(task.ID, "submitted", map[string]interface{}{"timeTaken": timeTaken})

	return task, nil
}

// Delete removes a task and its automated-job records. Deleting a missing
// task succeeds with zero effect; rework records are left in place as the
// audit trail outlives the task.
func (e *Engine) Delete(ctx context.Context, taskID string) error {
	if err := e.store.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// ListReworks returns the rejection audit trail for a task, newest first.
func (e *Engine) ListReworks(ctx context.Context, taskID string) ([]*models.ReworkRecord, error) {
	records, err := e.store.ListReworks(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rework records: %w", err)
	}
	return records, nil
}

// publishNotification queues an email trigger without coupling the calling
// transition to dispatch latency or failure.
func (e *Engine) publishNotification(req *models.NotificationRequest) {
	if e.queue == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := e.queue.PublishNotification(ctx, req); err != nil {
		log.Printf("Failed to queue %q notification for task %s: %v", req.Trigger, req.TaskID, err)
	}
}

// publishEvent emits a best-effort lifecycle event for downstream consumers.
func (e *Engine) publishEvent(taskID, status string, metadata interface{}) {
	if e.queue == nil {
		return
	}

	msg := &models.StatusMessage{
		Type:      "task",
		ID:        taskID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := e.queue.PublishEvent(ctx, msg); err != nil {
		log.Printf("Failed to publish %q event for task %s: %v", status, taskID, err)
	}
}

func validTaskID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
