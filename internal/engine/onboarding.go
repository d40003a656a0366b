// internal/engine/onboarding.go
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/annolab/annolab/internal/models"
	"github.com/google/uuid"
)

// SaveRepeatTasks stores recurring-task seed definitions owned by the
// calling manager.
func (e *Engine) SaveRepeatTasks(ctx context.Context, callerID string, drafts []models.TaskDraft) ([]*models.TaskRepeat, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}

	seeds := make([]*models.TaskRepeat, 0, len(drafts))
	for _, draft := range drafts {
		seeds = append(seeds, &models.TaskRepeat{
			ID:             uuid.New().String(),
			ProjectID:      draft.ProjectID,
			ProjectManager: callerID,
			Name:           draft.Name,
			Content:        draft.Content,
			Timer:          draft.Timer,
			Reviewer:       draft.Reviewer,
			CreatedAt:      time.Now(),
		})
	}

	if err := e.store.CreateRepeatTasks(ctx, seeds); err != nil {
		return nil, fmt.Errorf("failed to save repeat tasks: %w", err)
	}

	return seeds, nil
}

// ListRepeatTasks returns all recurring-task seed definitions.
func (e *Engine) ListRepeatTasks(ctx context.Context) ([]*models.TaskRepeat, error) {
	seeds, err := e.store.ListRepeatTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list repeat tasks: %w", err)
	}
	return seeds, nil
}

// EnrollAnnotator instantiates one pending task per seed definition,
// pre-assigned to the new annotator. Used to hand onboarding test work to
// someone who just joined.
func (e *Engine) EnrollAnnotator(ctx context.Context, callerID, annotatorID string) ([]*models.Task, error) {
	if callerID == "" {
		return nil, ErrUnauthorized
	}
	if annotatorID == "" {
		return nil, fmt.Errorf("%w: annotator id required", ErrNotFound)
	}

	seeds, err := e.store.ListRepeatTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list repeat tasks: %w", err)
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	now := time.Now()
	tasks := make([]*models.Task, 0, len(seeds))
	for _, seed := range seeds {
		annotator := annotatorID
		tasks = append(tasks, &models.Task{
			ID:             uuid.New().String(),
			ProjectID:      seed.ProjectID,
			ProjectManager: seed.ProjectManager,
			Name:           seed.Name,
			Content:        seed.Content,
			Timer:          seed.Timer,
			Annotator:      &annotator,
			Reviewer:       seed.Reviewer,
			Status:         models.StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	if err := e.store.CreateTasks(ctx, tasks); err != nil {
		return nil, fmt.Errorf("failed to create onboarding tasks: %w", err)
	}

	return tasks, nil
}
