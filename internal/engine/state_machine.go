// internal/engine/state_machine.go
package engine

import (
	"context"
	"fmt"

	"github.com/annolab/annolab/internal/models"
)

// SetStatus drives a task through a lifecycle transition on behalf of an
// authenticated manager or reviewer.
//
// "reassigned" resets the work fields and hands the task to the supplied
// annotator. "rejected" applies the same reset, keeps the reviewer's
// feedback, and creates exactly one rework audit record with the calling
// reviewer's id. Every other value is stored as-is with feedback cleared,
// keeping a single settable-status entry point for custom transitions.
func (e *Engine) SetStatus(ctx context.Context, callerID, taskID string, status models.Status, feedback string, annotator *string) (models.Status, error) {
	if callerID == "" {
		return "", ErrUnauthorized
	}
	if !validTaskID(taskID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, taskID)
	}

	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return "", fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return "", fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}

	switch status {
	case models.StatusReassigned:
		updated, err := e.store.ReassignTask(ctx, taskID, annotator)
		if err != nil {
			return "", fmt.Errorf("failed to reassign task: %w", err)
		}
		if updated == nil {
			return "", fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}

		e.publishEvent(updated.ID, string(updated.Status), map[string]interface{}{"annotator": annotator})
		return updated.Status, nil

	case models.StatusRejected:
		// The rejection update and the rework audit record land in one
		// transaction so every rejection is durably audited.
		updated, err := e.store.RejectTask(ctx, taskID, feedback, callerID)
		if err != nil {
			return "", fmt.Errorf("failed to reject task: %w", err)
		}
		if updated == nil {
			return "", fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}

		e.publishEvent(updated.ID, string(updated.Status), map[string]interface{}{"reviewer": callerID})
		return updated.Status, nil

	default:
		updated, err := e.store.SetTaskStatus(ctx, taskID, status)
		if err != nil {
			return "", fmt.Errorf("failed to set task status: %w", err)
		}
		if updated == nil {
			return "", fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}

		e.publishEvent(updated.ID, string(updated.Status), nil)
		return updated.Status, nil
	}
}
