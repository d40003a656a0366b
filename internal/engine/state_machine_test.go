package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/annolab/annolab/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStatusRequiresCaller(t *testing.T) {
	e := New(newFakeStore(), &fakePublisher{})

	_, err := e.SetStatus(context.Background(), "", "some-id", models.StatusAccepted, "", nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSetStatusRejectsMalformedID(t *testing.T) {
	e := New(newFakeStore(), &fakePublisher{})

	_, err := e.SetStatus(context.Background(), "reviewer-1", "not-a-uuid", models.StatusAccepted, "", nil)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestSetStatusUnknownTask(t *testing.T) {
	e := New(newFakeStore(), &fakePublisher{})

	_, err := e.SetStatus(context.Background(), "reviewer-1", "b2c0e5a0-1111-4222-8333-444455556666", models.StatusAccepted, "", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetStatusRejectedCreatesOneReworkRecord(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	e := New(store, pub)

	task := newTestTask("proj-1")
	task.Annotator = strPtr("alice")
	task.Submitted = true
	task.TimeTaken = 240
	store.put(task)

	status, err := e.SetStatus(context.Background(), "reviewer-1", task.ID, models.StatusRejected, "bounding boxes too loose", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, status)

	updated, err := e.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.False(t, updated.Submitted)
	assert.Equal(t, 0, updated.TimeTaken)
	assert.Equal(t, "bounding boxes too loose", updated.Feedback)
	assert.Nil(t, updated.AI)
	require.NotNil(t, updated.Annotator)
	assert.Equal(t, "alice", *updated.Annotator)

	records, err := e.ListReworks(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, task.ID, records[0].TaskID)
	assert.Equal(t, "reviewer-1", records[0].Reviewer)
	assert.Equal(t, "bounding boxes too loose", records[0].Feedback)
	require.NotNil(t, records[0].Annotator)
	assert.Equal(t, "alice", *records[0].Annotator)

	require.Len(t, pub.events, 1)
	assert.Equal(t, string(models.StatusRejected), pub.events[0].Status)
}

func TestSetStatusReassignedResetsWorkFields(t *testing.T) {
	store := newFakeStore()
	e := New(store, &fakePublisher{})

	task := newTestTask("proj-1")
	task.Annotator = strPtr("alice")
	task.AI = strPtr("agent-7")
	task.Submitted = true
	task.TimeTaken = 500
	task.Feedback = "previous round"
	store.put(task)

	status, err := e.SetStatus(context.Background(), "manager-1", task.ID, models.StatusReassigned, "", strPtr("bob"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusReassigned, status)

	updated, err := e.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.False(t, updated.Submitted)
	assert.Equal(t, 0, updated.TimeTaken)
	assert.Empty(t, updated.Feedback)
	assert.Nil(t, updated.AI)
	require.NotNil(t, updated.Annotator)
	assert.Equal(t, "bob", *updated.Annotator)

	// No rework record on reassignment, only on rejection.
	records, err := e.ListReworks(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSetStatusCustomValueStoredVerbatim(t *testing.T) {
	store := newFakeStore()
	e := New(store, &fakePublisher{})

	task := newTestTask("proj-1")
	task.Feedback = "stale feedback"
	store.put(task)

	status, err := e.SetStatus(context.Background(), "manager-1", task.ID, models.Status("needs-calibration"), "ignored", nil)
	require.NoError(t, err)
	assert.Equal(t, models.Status("needs-calibration"), status)

	updated, err := e.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Status("needs-calibration"), updated.Status)
	assert.Empty(t, updated.Feedback)

	records, err := e.ListReworks(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSubmitSetsWorkFields(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	e := New(store, pub)

	task := newTestTask("proj-1")
	store.put(task)

	updated, err := e.Submit(context.Background(), task.ID, `{"labels":[1,2]}`, 180)
	require.NoError(t, err)
	assert.True(t, updated.Submitted)
	assert.Equal(t, 180, updated.TimeTaken)
	assert.Equal(t, `{"labels":[1,2]}`, updated.Content)
	assert.Equal(t, models.StatusPending, updated.Status)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "submitted", pub.events[0].Status)
}

func TestSubmitUnknownTask(t *testing.T) {
	e := New(newFakeStore(), &fakePublisher{})

	_, err := e.Submit(context.Background(), "missing", "content", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsIdempotentAndKeepsReworks(t *testing.T) {
	store := newFakeStore()
	e := New(store, &fakePublisher{})

	task := newTestTask("proj-1")
	task.Annotator = strPtr("alice")
	store.put(task)
	store.aiJobs[task.ID] = []string{"job-1", "job-2"}

	_, err := e.SetStatus(context.Background(), "reviewer-1", task.ID, models.StatusRejected, "redo", nil)
	require.NoError(t, err)

	require.NoError(t, e.Delete(context.Background(), task.ID))
	assert.Empty(t, store.aiJobs[task.ID])

	_, err = e.GetTask(context.Background(), task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The audit trail outlives the task.
	records, err := e.ListReworks(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// Deleting again is a no-op.
	assert.NoError(t, e.Delete(context.Background(), task.ID))
}

func TestCreateTasksRequiresCaller(t *testing.T) {
	e := New(newFakeStore(), &fakePublisher{})

	_, err := e.CreateTasks(context.Background(), "", []models.TaskDraft{{ProjectID: "proj-1"}})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateTasksBuildsPendingTasks(t *testing.T) {
	store := newFakeStore()
	e := New(store, &fakePublisher{})

	drafts := []models.TaskDraft{
		{ProjectID: "proj-1", Name: "frame 1", Timer: 300},
		{ProjectID: "proj-1", Name: "frame 2", Timer: 300, Reviewer: strPtr("carol")},
	}

	tasks, err := e.CreateTasks(context.Background(), "manager-1", drafts)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	for _, task := range tasks {
		assert.Equal(t, models.StatusPending, task.Status)
		assert.Equal(t, "manager-1", task.ProjectManager)
		assert.False(t, task.Submitted)
		assert.NotEmpty(t, task.ID)

		stored, err := e.GetTask(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.Name, stored.Name)
	}

	require.NotNil(t, tasks[1].Reviewer)
	assert.Equal(t, "carol", *tasks[1].Reviewer)
}

func TestPublishFailureDoesNotFailTransition(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{failNext: errors.New("broker down")}
	e := New(store, pub)

	task := newTestTask("proj-1")
	task.Reviewer = strPtr("carol")
	store.put(task)

	updated, err := e.ChangeAssignment(context.Background(), task.ID, "alice", AssignmentOptions{})
	require.NoError(t, err)
	require.NotNil(t, updated.Annotator)
	assert.Equal(t, "alice", *updated.Annotator)
}
