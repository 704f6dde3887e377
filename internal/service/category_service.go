package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"taskflow/internal/category"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// CategoryService manages categories and keeps their cached task counts in
// line with the task collection.
type CategoryService struct {
	categories *repository.CategoryRepository
	tasks      *repository.TaskRepository
	users      *repository.UserRepository
	locks      *UserLocks
	logger     *log.Logger
}

func NewCategoryService(categories *repository.CategoryRepository, tasks *repository.TaskRepository, users *repository.UserRepository, locks *UserLocks, logger *log.Logger) *CategoryService {
	return &CategoryService{categories: categories, tasks: tasks, users: users, locks: locks, logger: logger}
}

// List returns the user's categories, seeding the defaults on first read.
func (s *CategoryService) List(ctx context.Context, userID string) ([]model.Category, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.categories.List(ctx, userID)
}

func (s *CategoryService) Create(ctx context.Context, userID, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCategoryNameRequired
	}
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.categories.Create(ctx, userID, name)
}

// Rename changes the name of a category. Renaming can make a legacy bucket
// start or stop bridging onto it, so counts are refreshed afterwards.
func (s *CategoryService) Rename(ctx context.Context, userID, categoryID, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCategoryNameRequired
	}
	unlock := s.locks.Lock(userID)
	defer unlock()
	renamed, err := s.categories.Rename(ctx, userID, categoryID, name)
	if err != nil {
		return nil, err
	}
	s.reconcileLogged(ctx, userID)
	return renamed, nil
}

// Delete removes a category without touching the tasks that reference it.
func (s *CategoryService) Delete(ctx context.Context, userID, categoryID string) (bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	removed, err := s.categories.Delete(ctx, userID, categoryID)
	if err != nil {
		return false, err
	}
	if removed {
		s.reconcileLogged(ctx, userID)
	}
	return removed, nil
}

// Reconcile recomputes every category count from the user's tasks. Legacy
// references are bridged onto categories by name. The collection is written
// back in one piece, and only when at least one count changed.
func (s *CategoryService) Reconcile(ctx context.Context, userID string) ([]model.Category, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.reconcile(ctx, userID)
}

// reconcile does the work of Reconcile. The caller holds the user's lock.
func (s *CategoryService) reconcile(ctx context.Context, userID string) ([]model.Category, error) {
	categories, err := s.categories.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	tasks, err := s.tasks.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	counts := Tally(tasks, categories)

	changed := false
	for _, c := range categories {
		if c.Count != counts[c.ID] {
			changed = true
			break
		}
	}
	if !changed {
		return categories, nil
	}

	updated := make([]model.Category, len(categories))
	for i, c := range categories {
		c.Count = counts[c.ID]
		updated[i] = c
	}
	if err := s.categories.Replace(ctx, userID, updated); err != nil {
		return nil, fmt.Errorf("save categories: %w", err)
	}
	s.logger.Info("category counts updated", "user", userID)
	return updated, nil
}

// ReconcileInBackground runs Reconcile as a side effect of another
// operation. Failures are logged and swallowed.
func (s *CategoryService) ReconcileInBackground(ctx context.Context, userID string) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	s.reconcileLogged(ctx, userID)
}

// reconcileLogged is ReconcileInBackground for callers already holding the
// user's lock.
func (s *CategoryService) reconcileLogged(ctx context.Context, userID string) {
	if _, err := s.reconcile(ctx, userID); err != nil {
		s.logger.Error("reconcile category counts", "user", userID, "err", err)
	}
}

// list reads categories for callers already holding the user's lock.
func (s *CategoryService) list(ctx context.Context, userID string) ([]model.Category, error) {
	return s.categories.List(ctx, userID)
}

// ReconcileAll reconciles every registered account. Per-user failures are
// logged; only failing to enumerate accounts or a cancelled context is
// returned.
func (s *CategoryService) ReconcileAll(ctx context.Context) error {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.reconcileRegistered(ctx, user.ID)
	}
	return nil
}

// reconcileRegistered reconciles a user found by the sweep, unless the
// account was deleted while the sweep waited for its lock. Reading the
// categories of a deleted account would seed them again.
func (s *CategoryService) reconcileRegistered(ctx context.Context, userID string) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logger.Error("reconcile category counts", "user", userID, "err", err)
		return
	}
	if user == nil {
		return
	}
	s.reconcileLogged(ctx, userID)
}

// Tally counts tasks per current category ID. Tasks without a category or
// with a reference that resolves to no category are not counted.
func Tally(tasks []model.Task, categories []model.Category) map[string]int {
	bridge := category.Bridge(categories)
	counts := make(map[string]int)
	for _, task := range tasks {
		if target, ok := category.Target(task.Category, categories, bridge); ok {
			counts[target]++
		}
	}
	return counts
}
