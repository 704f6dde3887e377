package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskflow/internal/logging"
	"taskflow/internal/repository"
)

var errWriteFailed = errors.New("write failed")

// countingStore records writes per key and can be told to fail them.
type countingStore struct {
	repository.Store

	mu       sync.Mutex
	sets     map[string]int
	failKeys map[string]bool
	onGet    func(key string)
}

func newCountingStore() *countingStore {
	return &countingStore{
		Store:    repository.NewMemoryStore(),
		sets:     make(map[string]int),
		failKeys: make(map[string]bool),
	}
}

func (s *countingStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	hook := s.onGet
	s.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return s.Store.Get(ctx, key)
}

// setOnGet installs a hook run before every read, outside the store lock.
func (s *countingStore) setOnGet(hook func(key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onGet = hook
}

func (s *countingStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	fail := s.failKeys[key]
	if !fail {
		s.sets[key]++
	}
	s.mu.Unlock()
	if fail {
		return errWriteFailed
	}
	return s.Store.Set(ctx, key, value)
}

func (s *countingStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	fail := s.failKeys[key]
	s.mu.Unlock()
	if fail {
		return errWriteFailed
	}
	return s.Store.Remove(ctx, key)
}

func (s *countingStore) writes(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[key]
}

func (s *countingStore) failWrites(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failKeys[key] = true
}

type testEnv struct {
	store      *countingStore
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
	users      *repository.UserRepository

	categorySvc *CategoryService
	taskSvc     *TaskService
	authSvc     *AuthService
	statsSvc    *StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logging.Discard()
	store := newCountingStore()

	tasks := repository.NewTaskRepository(store, logger)
	categories := repository.NewCategoryRepository(store, logger)
	users := repository.NewUserRepository(store, logger)

	locks := NewUserLocks()
	categorySvc := NewCategoryService(categories, tasks, users, locks, logger)
	return &testEnv{
		store:       store,
		tasks:       tasks,
		categories:  categories,
		users:       users,
		categorySvc: categorySvc,
		taskSvc:     NewTaskService(tasks, categorySvc, logger),
		authSvc:     NewAuthService(users, tasks, categories, locks, logger),
		statsSvc:    NewStatsService(tasks, categories, locks),
	}
}

func categoriesKey(userID string) string {
	return repository.Key("categories", userID)
}

func tasksKey(userID string) string {
	return repository.Key("tasks", userID)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
