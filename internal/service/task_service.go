package service

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"taskflow/internal/category"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string
	Description string
	Category    string
	DueDate     *time.Time
	Priority    model.Priority
}

// TaskService wraps task-related business logic. Every mutation that can
// move a task between categories is followed by a count reconciliation.
type TaskService struct {
	tasks      *repository.TaskRepository
	categories *CategoryService
	logger     *log.Logger
}

func NewTaskService(tasks *repository.TaskRepository, categories *CategoryService, logger *log.Logger) *TaskService {
	return &TaskService{tasks: tasks, categories: categories, logger: logger}
}

func (s *TaskService) List(ctx context.Context, userID string) ([]model.Task, error) {
	return s.tasks.List(ctx, userID)
}

// Get returns the task with the given ID, or nil when it does not exist.
func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	tasks, err := s.tasks.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, task := range tasks {
		if task.ID == taskID {
			return &task, nil
		}
	}
	return nil, nil
}

func (s *TaskService) Add(ctx context.Context, userID string, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	unlock := s.categories.locks.Lock(userID)
	defer unlock()

	ref, err := s.normalizeCategory(ctx, userID, input.Category)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.Add(ctx, userID, model.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		DueDate:     input.DueDate,
		Priority:    input.Priority,
		Category:    ref,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("task created", "task", task.ID, "user", userID)

	s.categories.reconcileLogged(ctx, userID)
	return task, nil
}

// Update applies patch to a task. It returns nil without an error when the
// task does not exist.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, patch model.TaskPatch) (*model.Task, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		patch.Title = &title
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	unlock := s.categories.locks.Lock(userID)
	defer unlock()

	if patch.Category != nil {
		ref, err := s.normalizeCategory(ctx, userID, *patch.Category)
		if err != nil {
			return nil, err
		}
		patch.Category = &ref
	}

	task, err := s.tasks.Update(ctx, userID, taskID, patch)
	if err != nil || task == nil {
		return nil, err
	}

	s.categories.reconcileLogged(ctx, userID)
	return task, nil
}

// ToggleComplete flips the completed flag. Counts do not depend on it, so no
// reconciliation follows.
func (s *TaskService) ToggleComplete(ctx context.Context, userID, taskID string) (*model.Task, error) {
	unlock := s.categories.locks.Lock(userID)
	defer unlock()
	task, err := s.Get(ctx, userID, taskID)
	if err != nil || task == nil {
		return nil, err
	}
	completed := !task.Completed
	return s.tasks.Update(ctx, userID, taskID, model.TaskPatch{Completed: &completed})
}

// Delete removes a task and reports whether it existed.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) (bool, error) {
	unlock := s.categories.locks.Lock(userID)
	defer unlock()
	removed, err := s.tasks.Delete(ctx, userID, taskID)
	if err != nil {
		return false, err
	}
	if removed {
		s.categories.reconcileLogged(ctx, userID)
	}
	return removed, nil
}

// normalizeCategory stores legacy literals as the ID of the matching current
// category when there is one. The caller holds the user's lock.
func (s *TaskService) normalizeCategory(ctx context.Context, userID, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	if _, legacy := category.ParseLegacy(ref); !legacy {
		return ref, nil
	}
	categories, err := s.categories.list(ctx, userID)
	if err != nil {
		return "", err
	}
	return category.NormalizeLegacyID(ref, categories), nil
}
