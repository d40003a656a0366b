package engine

import (
	"context"
	"testing"

	"github.com/annolab/annolab/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRepeatTasks(t *testing.T) {
	store := newFakeStore()
	e := New(store, &fakePublisher{})

	drafts := []models.TaskDraft{
		{ProjectID: "proj-1", Name: "calibration set", Timer: 600},
		{ProjectID: "proj-1", Name: "edge cases", Timer: 900, Reviewer: strPtr("bob")},
	}

	seeds, err := e.SaveRepeatTasks(context.Background(), "manager-1", drafts)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "manager-1", seeds[0].ProjectManager)
	assert.NotEmpty(t, seeds[0].ID)
	require.NotNil(t, seeds[1].Reviewer)
	assert.Equal(t, "bob", *seeds[1].Reviewer)

	listed, err := e.ListRepeatTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestSaveRepeatTasksRequiresCaller(t *testing.T) {
	e := New(newFakeStore(), &fakePublisher{})

	_, err := e.SaveRepeatTasks(context.Background(), "", []models.TaskDraft{{ProjectID: "proj-1"}})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEnrollAnnotatorInstantiatesSeeds(t *testing.T) {
	store := newFakeStore()
	e := New(store, &fakePublisher{})

	_, err := e.SaveRepeatTasks(context.Background(), "manager-1", []models.TaskDraft{
		{ProjectID: "proj-1", Name: "calibration set", Content: "instructions", Timer: 600},
		{ProjectID: "proj-2", Name: "edge cases", Timer: 900, Reviewer: strPtr("bob")},
	})
	require.NoError(t, err)

	tasks, err := e.EnrollAnnotator(context.Background(), "manager-1", "dave")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	for _, task := range tasks {
		require.NotNil(t, task.Annotator)
		assert.Equal(t, "dave", *task.Annotator)
		assert.Equal(t, models.StatusPending, task.Status)
		assert.False(t, task.Submitted)

		stored, err := e.GetTask(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.Name, stored.Name)
	}

	// Seed fields carry over, including the pre-wired reviewer.
	byProject := map[string]*models.Task{}
	for _, task := range tasks {
		byProject[task.ProjectID] = task
	}
	assert.Equal(t, "instructions", byProject["proj-1"].Content)
	require.NotNil(t, byProject["proj-2"].Reviewer)
	assert.Equal(t, "bob", *byProject["proj-2"].Reviewer)
}

func TestEnrollAnnotatorNoSeeds(t *testing.T) {
	e := New(newFakeStore(), &fakePublisher{})

	tasks, err := e.EnrollAnnotator(context.Background(), "manager-1", "dave")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestEnrollAnnotatorValidation(t *testing.T) {
	e := New(newFakeStore(), &fakePublisher{})

	_, err := e.EnrollAnnotator(context.Background(), "", "dave")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.EnrollAnnotator(context.Background(), "manager-1", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
