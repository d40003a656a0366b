// internal/models/task.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current lifecycle state of a task. Any value
// outside the four built-ins is treated as a caller-supplied custom status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusReassigned Status = "reassigned"
)

// Known reports whether the status is one of the built-in lifecycle states.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusReassigned:
		return true
	}
	return false
}

// TaskFilter selects which slice of a project's tasks a listing returns.
type TaskFilter string

const (
	FilterAll        TaskFilter = "all"
	FilterSubmitted  TaskFilter = "submitted"
	FilterUnassigned TaskFilter = "unassigned" // annotator is null
)

// Task represents a single unit of labeling or review work.
//
// Annotator and AI are mutually exclusive: assigning one clears the other.
// Annotator and Reviewer must never point at the same user.
type Task struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"projectId"`
	ProjectManager string    `json:"projectManager"` // creator, immutable
	Name           string    `json:"name"`
	Content        string    `json:"content"`
	Timer          int       `json:"timer"` // time budget in seconds
	Annotator      *string   `json:"annotator"`
	Reviewer       *string   `json:"reviewer"`
	AI             *string   `json:"ai"`
	Status         Status    `json:"status"`
	Submitted      bool      `json:"submitted"`
	TimeTaken      int       `json:"timeTaken"` // seconds
	Feedback       string    `json:"feedback"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TaskDraft carries the caller-supplied fields for bulk task creation.
type TaskDraft struct {
	ProjectID string  `json:"projectId"`
	Name      string  `json:"name"`
	Content   string  `json:"content"`
	Timer     int     `json:"timer"`
	Reviewer  *string `json:"reviewer"`
}

// NewTask creates a pending task owned by the given project manager.
func NewTask(draft TaskDraft, managerID string) *Task {
	now := time.Now()
	return &Task{
		ID:             uuid.New().String(),
		ProjectID:      draft.ProjectID,
		ProjectManager: managerID,
		Name:           draft.Name,
		Content:        draft.Content,
		Timer:          draft.Timer,
		Reviewer:       draft.Reviewer,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// TaskPage is one page of a filtered project task listing.
type TaskPage struct {
	Tasks []*Task `json:"tasks"`
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Pages int     `json:"pages"`
}

// ReviewTask is a task in a reviewer's queue with the project name and
// annotator contact denormalized for display.
type ReviewTask struct {
	Task
	ProjectName    string `json:"projectName"`
	AnnotatorName  string `json:"annotatorName,omitempty"`
	AnnotatorEmail string `json:"annotatorEmail,omitempty"`
}

// TaskRepeat is a recurring-task seed definition. It is created by
// managers and instantiated into concrete tasks when a new annotator is
// enrolled; the lifecycle engine never mutates it.
type TaskRepeat struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"projectId"`
	ProjectManager string    `json:"projectManager"`
	Name           string    `json:"name"`
	Content        string    `json:"content"`
	Timer          int       `json:"timer"`
	Reviewer       *string   `json:"reviewer"`
	CreatedAt      time.Time `json:"createdAt"`
}
