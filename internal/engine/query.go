// internal/engine/query.go
package engine

import (
	"context"
	"fmt"

	"github.com/annolab/annolab/internal/models"
)

// DefaultPageSize is used when a caller does not supply a page size.
const DefaultPageSize = 10

// ListTasks returns one page of a project's tasks under the given filter,
// with the total count and computed page count.
func (e *Engine) ListTasks(ctx context.Context, projectID string, page, pageSize int, filter models.TaskFilter) (*models.TaskPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if filter == "" {
		filter = models.FilterAll
	}

	offset := (page - 1) * pageSize
	tasks, total, err := e.store.ListTasks(ctx, projectID, filter, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	pages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &models.TaskPage{
		Tasks: tasks,
		Total: total,
		Page:  page,
		Pages: pages,
	}, nil
}

// ListReviewQueue returns the tasks awaiting the reviewer's attention:
// submitted work first, then by status, then newest first. Project name and
// annotator contact are denormalized for display.
func (e *Engine) ListReviewQueue(ctx context.Context, reviewerID string) ([]*models.ReviewTask, error) {
	if reviewerID == "" {
		return nil, ErrUnauthorized
	}

	tasks, err := e.store.ListReviewQueue(ctx, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review queue: %w", err)
	}
	return tasks, nil
}

// DistinctProjects returns the unique set of projects touched by a person's
// tasks, either as annotator or as reviewer. Order is unspecified.
func (e *Engine) DistinctProjects(ctx context.Context, by string, userID string) ([]*models.Project, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	var (
		projects []*models.Project
		err      error
	)
	switch by {
	case "reviewer":
		projects, err = e.store.DistinctProjectsByReviewer(ctx, userID)
	case "annotator":
		projects, err = e.store.DistinctProjectsByAnnotator(ctx, userID)
	default:
		return nil, fmt.Errorf("unknown projects filter %q", by)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list distinct projects: %w", err)
	}

	return projects, nil
}
