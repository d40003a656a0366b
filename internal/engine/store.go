// internal/engine/store.go
package engine

import (
	"context"

	"github.com/annolab/annolab/internal/models"
)

// TaskStore is the persistence contract the engine requires. Read methods
// return (nil, nil) when the entity does not exist. Mutations that carry a
// compare-and-swap guard report whether the guarded write was applied.
type TaskStore interface {
	// Task lifecycle.
	CreateTasks(ctx context.Context, tasks []*models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	SubmitTask(ctx context.Context, id, content string, timeTaken int) (*models.Task, error)
	SetTaskStatus(ctx context.Context, id string, status models.Status) (*models.Task, error)
	ReassignTask(ctx context.Context, id string, annotator *string) (*models.Task, error)
	// RejectTask applies the rejection reset and creates the rework audit
	// record in the same transaction. Returns the updated task.
	RejectTask(ctx context.Context, id, feedback, reviewerID string) (*models.Task, error)
	// DeleteTask removes the task's automated-job records before the task
	// itself; a missing task is not an error.
	DeleteTask(ctx context.Context, id string) error

	// Assignment. The guarded variants re-state the exclusivity rule in the
	// write itself so a concurrent assignment cannot slip between the
	// engine's check and the update.
	AssignAI(ctx context.Context, id, agentID string) (*models.Task, error)
	AssignAnnotator(ctx context.Context, id, annotatorID string) (*models.Task, bool, error)
	UnassignAnnotator(ctx context.Context, id string) (*models.Task, error)
	AssignReviewer(ctx context.Context, id, reviewerID string) (*models.Task, bool, error)
	UnassignReviewer(ctx context.Context, id string) (*models.Task, error)
	// SetReviewer is the unguarded manager variant; it always clears the
	// automated-agent assignment.
	SetReviewer(ctx context.Context, id string, reviewerID *string) (*models.Task, error)

	// Queries.
	ListTasks(ctx context.Context, projectID string, filter models.TaskFilter, limit, offset int) ([]*models.Task, int64, error)
	ListReviewQueue(ctx context.Context, reviewerID string) ([]*models.ReviewTask, error)
	DistinctProjectsByAnnotator(ctx context.Context, annotatorID string) ([]*models.Project, error)
	DistinctProjectsByReviewer(ctx context.Context, reviewerID string) ([]*models.Project, error)

	// Rework ledger (append-only; reads for the audit trail API).
	ListReworks(ctx context.Context, taskID string) ([]*models.ReworkRecord, error)

	// Onboarding seeds.
	CreateRepeatTasks(ctx context.Context, seeds []*models.TaskRepeat) error
	ListRepeatTasks(ctx context.Context) ([]*models.TaskRepeat, error)
}

// Publisher hands side-effect messages to the asynchronous channel after
// the primary write has landed. Failures are logged by the engine, never
// surfaced to its callers.
type Publisher interface {
	PublishNotification(ctx context.Context, req *models.NotificationRequest) error
	PublishEvent(ctx context.Context, msg *models.StatusMessage) error
}
