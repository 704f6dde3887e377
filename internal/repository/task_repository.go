package repository

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"taskflow/internal/model"
)

// TaskRepository stores each user's tasks as one ordered collection.
// Every mutation reads the full collection, changes it in memory and writes
// it back in a single Set.
type TaskRepository struct {
	store  Store
	logger *log.Logger
	now    func() time.Time
}

func NewTaskRepository(store Store, logger *log.Logger) *TaskRepository {
	return &TaskRepository{store: store, logger: logger, now: time.Now}
}

func (r *TaskRepository) key(userID string) string {
	return Key(recordTasks, userID)
}

// List returns the user's tasks in stored order. Missing or unreadable data
// yields an empty list.
func (r *TaskRepository) List(ctx context.Context, userID string) ([]model.Task, error) {
	tasks, _, err := loadJSON[[]model.Task](ctx, r.store, r.logger, r.key(userID))
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Add appends task, filling in ID and CreatedAt when they are unset.
func (r *TaskRepository) Add(ctx context.Context, userID string, task model.Task) (*model.Task, error) {
	tasks, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = r.now()
	}
	tasks = append(tasks, task)
	if err := saveCollection(ctx, r.store, r.key(userID), tasks); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies patch to the task with the given ID. It returns nil without
// an error when no such task exists.
func (r *TaskRepository) Update(ctx context.Context, userID, taskID string, patch model.TaskPatch) (*model.Task, error) {
	tasks, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].ID != taskID {
			continue
		}
		patch.Apply(&tasks[i])
		if err := saveCollection(ctx, r.store, r.key(userID), tasks); err != nil {
			return nil, err
		}
		updated := tasks[i]
		return &updated, nil
	}
	r.logger.Warn("task not found", "task", taskID, "user", userID)
	return nil, nil
}

// Delete removes the task and reports whether anything was removed.
// Nothing is written when the task is absent.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID string) (bool, error) {
	tasks, err := r.List(ctx, userID)
	if err != nil {
		return false, err
	}
	kept := tasks[:0:0]
	for _, task := range tasks {
		if task.ID != taskID {
			kept = append(kept, task)
		}
	}
	if len(kept) == len(tasks) {
		return false, nil
	}
	if err := saveCollection(ctx, r.store, r.key(userID), kept); err != nil {
		return false, err
	}
	return true, nil
}

// Replace overwrites the user's whole task collection.
func (r *TaskRepository) Replace(ctx context.Context, userID string, tasks []model.Task) error {
	return saveCollection(ctx, r.store, r.key(userID), tasks)
}

// Remove drops the user's task collection entirely.
func (r *TaskRepository) Remove(ctx context.Context, userID string) error {
	return r.store.Remove(ctx, r.key(userID))
}
