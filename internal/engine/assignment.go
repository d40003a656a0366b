// internal/engine/assignment.go
package engine

import (
	"context"
	"fmt"

	"github.com/annolab/annolab/internal/models"
)

// AssignmentOptions selects which assignment slot ChangeAssignment targets.
type AssignmentOptions struct {
	AsAI       bool `json:"asAI"`
	AsReviewer bool `json:"asReviewer"`
}

// ChangeAssignment changes a task's annotator, reviewer, or automated-agent
// assignment, enforcing the exclusivity rules between them.
//
// An AI agent replaces the human annotator unconditionally (it may coexist
// with a human reviewer). A human may never hold both the annotator and
// reviewer slots of the same task; the rule is checked against the current
// task and re-stated in the store's conditional update, so a concurrent
// assignment that would break it surfaces as ErrConflict rather than
// slipping through the read-then-write window.
//
// A successful annotator assignment queues a best-effort "assigned"
// notification for the new annotator; queue failure never fails the
// assignment.
func (e *Engine) ChangeAssignment(ctx context.Context, taskID, assigneeID string, opts AssignmentOptions) (*models.Task, error) {
	if opts.AsAI {
		updated, err := e.store.AssignAI(ctx, taskID, assigneeID)
		if err != nil {
			return nil, fmt.Errorf("failed to assign agent: %w", err)
		}
		if updated == nil {
			return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}
		return updated, nil
	}

	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}

	if opts.AsReviewer {
		if assigneeID == "" {
			updated, err := e.store.UnassignReviewer(ctx, taskID)
			if err != nil {
				return nil, fmt.Errorf("failed to unassign reviewer: %w", err)
			}
			if updated == nil {
				return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
			}
			return updated, nil
		}

		if task.Annotator != nil && *task.Annotator == assigneeID {
			return nil, conflictf("reviewer cannot equal annotator")
		}

		updated, applied, err := e.store.AssignReviewer(ctx, taskID, assigneeID)
		if err != nil {
			return nil, fmt.Errorf("failed to assign reviewer: %w", err)
		}
		if !applied {
			return nil, conflictf("reviewer cannot equal annotator")
		}
		return updated, nil
	}

	// Annotator path.
	if task.Reviewer != nil && *task.Reviewer == assigneeID {
		return nil, conflictf("annotator cannot equal reviewer")
	}

	if assigneeID == "" {
		updated, err := e.store.UnassignAnnotator(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to unassign annotator: %w", err)
		}
		if updated == nil {
			return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}
		return updated, nil
	}

	updated, applied, err := e.store.AssignAnnotator(ctx, taskID, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("failed to assign annotator: %w", err)
	}
	if !applied {
		return nil, conflictf("annotator cannot equal reviewer")
	}

	e.publishNotification(&models.NotificationRequest{
		TaskID:  updated.ID,
		Trigger: models.TriggerAssigned,
	})

	return updated, nil
}

// AssignReviewer is the manager-facing variant. It intentionally skips the
// annotator/reviewer conflict check applied by ChangeAssignment and always
// clears the automated-agent assignment. A nil reviewerID unassigns.
func (e *Engine) AssignReviewer(ctx context.Context, callerID, taskID string, reviewerID *string) (*models.Task, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}

	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}

	updated, err := e.store.SetReviewer(ctx, taskID, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to set reviewer: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}

	return updated, nil
}
