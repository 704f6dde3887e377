package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/logging"
	"taskflow/internal/model"
)

func newTaskRepo(store Store) *TaskRepository {
	return NewTaskRepository(store, logging.Discard())
}

func TestTaskRepositoryAddThenList(t *testing.T) {
	ctx := context.Background()
	repo := newTaskRepo(NewMemoryStore())

	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	input := model.Task{
		Title:       "Rédiger le rapport",
		Description: "avant vendredi",
		DueDate:     &due,
		Priority:    model.PriorityHigh,
		Category:    "work",
	}

	added, err := repo.Add(ctx, "u1", input)
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.False(t, added.CreatedAt.IsZero())

	tasks, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	got := tasks[0]
	assert.Equal(t, added.ID, got.ID)
	assert.Equal(t, input.Title, got.Title)
	assert.Equal(t, input.Description, got.Description)
	assert.Equal(t, input.Priority, got.Priority)
	assert.Equal(t, input.Category, got.Category)
	assert.False(t, got.Completed)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	assert.True(t, added.CreatedAt.Equal(got.CreatedAt))
}

func TestTaskRepositoryIsScopedByUser(t *testing.T) {
	ctx := context.Background()
	repo := newTaskRepo(NewMemoryStore())

	_, err := repo.Add(ctx, "u1", model.Task{Title: "a"})
	require.NoError(t, err)

	tasks, err := repo.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newTaskRepo(NewMemoryStore())

	added, err := repo.Add(ctx, "u1", model.Task{Title: "a", Category: "c1"})
	require.NoError(t, err)

	done := true
	category := "c2"
	updated, err := repo.Update(ctx, "u1", added.ID, model.TaskPatch{Completed: &done, Category: &category})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.True(t, updated.Completed)
	assert.Equal(t, "c2", updated.Category)
	assert.Equal(t, "a", updated.Title)

	tasks, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, *updated, tasks[0])
}

func TestTaskRepositoryUpdateMissingReturnsNil(t *testing.T) {
	repo := newTaskRepo(NewMemoryStore())

	title := "x"
	updated, err := repo.Update(context.Background(), "u1", "missing", model.TaskPatch{Title: &title})
	assert.NoError(t, err)
	assert.Nil(t, updated)
}

func TestTaskRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTaskRepo(NewMemoryStore())

	first, err := repo.Add(ctx, "u1", model.Task{Title: "a"})
	require.NoError(t, err)
	_, err = repo.Add(ctx, "u1", model.Task{Title: "b"})
	require.NoError(t, err)

	removed, err := repo.Delete(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	tasks, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "b", tasks[0].Title)
}

func TestTaskRepositoryCorruptedDataReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, Key("tasks", "u1"), "{not json"))
	repo := newTaskRepo(store)

	tasks, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = repo.Add(ctx, "u1", model.Task{Title: "fresh"})
	require.NoError(t, err)
	tasks, err = repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestTaskRepositoryPropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	repo := newTaskRepo(brokenStore{})

	_, err := repo.List(ctx, "u1")
	assert.ErrorIs(t, err, errBroken)

	_, err = repo.Add(ctx, "u1", model.Task{Title: "a"})
	assert.ErrorIs(t, err, errBroken)

	_, err = repo.Delete(ctx, "u1", "x")
	assert.ErrorIs(t, err, errBroken)
}
