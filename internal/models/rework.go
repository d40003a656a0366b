// internal/models/rework.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ReworkRecord is an immutable audit entry created exactly once per
// rejection. It is never updated or deleted by the engine and survives
// deletion of its source task.
type ReworkRecord struct {
	ID             string    `json:"id"`
	TaskID         string    `json:"taskId"`
	TaskName       string    `json:"taskName"`
	ProjectID      string    `json:"projectId"`
	ProjectManager string    `json:"projectManager"`
	Annotator      *string   `json:"annotator"` // who did the work
	Reviewer       string    `json:"reviewer"`  // who rejected it
	Feedback       string    `json:"feedback"`
	TaskCreatedAt  time.Time `json:"taskCreatedAt"` // copied from the task
	CreatedAt      time.Time `json:"createdAt"`
}

// NewReworkRecord builds the audit entry for a rejected task. The task is
// read after the rejection update has been applied, so Feedback carries the
// reviewer's text and Annotator the worker being sent back.
func NewReworkRecord(task *Task, reviewerID string) *ReworkRecord {
	return &ReworkRecord{
		ID:             uuid.New().String(),
		TaskID:         task.ID,
		TaskName:       task.Name,
		ProjectID:      task.ProjectID,
		ProjectManager: task.ProjectManager,
		Annotator:      task.Annotator,
		Reviewer:       reviewerID,
		Feedback:       task.Feedback,
		TaskCreatedAt:  task.CreatedAt,
		CreatedAt:      time.Now(),
	}
}
