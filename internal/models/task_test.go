package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusKnown(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusAccepted, StatusRejected, StatusReassigned} {
		assert.True(t, status.Known(), "status %q", status)
	}

	assert.False(t, Status("needs-calibration").Known())
	assert.False(t, Status("").Known())
}

func TestNewTask(t *testing.T) {
	reviewer := "bob"
	task := NewTask(TaskDraft{
		ProjectID: "proj-1",
		Name:      "label frames",
		Content:   "instructions",
		Timer:     300,
		Reviewer:  &reviewer,
	}, "manager-1")

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "proj-1", task.ProjectID)
	assert.Equal(t, "manager-1", task.ProjectManager)
	assert.Equal(t, StatusPending, task.Status)
	assert.False(t, task.Submitted)
	assert.Nil(t, task.Annotator)
	assert.Nil(t, task.AI)
	require.NotNil(t, task.Reviewer)
	assert.Equal(t, "bob", *task.Reviewer)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestNewReworkRecordCopiesTaskFields(t *testing.T) {
	annotator := "alice"
	task := NewTask(TaskDraft{ProjectID: "proj-1", Name: "label frames"}, "manager-1")
	task.Annotator = &annotator
	task.Feedback = "redo the occlusions"

	record := NewReworkRecord(task, "bob")

	assert.NotEmpty(t, record.ID)
	assert.NotEqual(t, task.ID, record.ID)
	assert.Equal(t, task.ID, record.TaskID)
	assert.Equal(t, "label frames", record.TaskName)
	assert.Equal(t, "manager-1", record.ProjectManager)
	assert.Equal(t, "bob", record.Reviewer)
	assert.Equal(t, "redo the occlusions", record.Feedback)
	require.NotNil(t, record.Annotator)
	assert.Equal(t, "alice", *record.Annotator)
	assert.Equal(t, task.CreatedAt, record.TaskCreatedAt)
}
