package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
)

// Store is the persistence port: string values under namespaced keys.
type Store interface {
	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Record types used as key namespaces.
const (
	recordTasks      = "tasks"
	recordCategories = "categories"
	keyAccounts      = "accounts"
	keySessions      = "sessions"
)

// Key builds the per-user key for a record type, e.g. "tasks_<userID>".
func Key(recordType, userID string) string {
	return recordType + "_" + userID
}

// loadJSON reads and decodes the value under key. A value that fails to
// decode is logged and treated as absent-but-present: found is true and the
// zero value is returned, so corrupted data is discarded on the next write.
func loadJSON[T any](ctx context.Context, store Store, logger *log.Logger, key string) (T, bool, error) {
	var out T
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return out, false, fmt.Errorf("read %s: %w", key, err)
	}
	if !found {
		return out, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.Warn("discarding unreadable stored value", "key", key, "err", err)
		var zero T
		return zero, true, nil
	}
	return out, true, nil
}

func saveJSON(ctx context.Context, store Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func saveCollection[T any](ctx context.Context, store Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	return saveJSON(ctx, store, key, items)
}
