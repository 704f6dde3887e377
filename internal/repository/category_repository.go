package repository

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"taskflow/internal/model"
)

// ErrCategoryNotFound is returned by Rename for an unknown category.
var ErrCategoryNotFound = errors.New("category not found")

// DefaultCategoryNames are seeded for a user whose collection does not exist yet.
var DefaultCategoryNames = []string{"Personnel", "Travail", "Courses"}

// CategoryRepository stores each user's categories as one ordered collection.
type CategoryRepository struct {
	store  Store
	logger *log.Logger
}

func NewCategoryRepository(store Store, logger *log.Logger) *CategoryRepository {
	return &CategoryRepository{store: store, logger: logger}
}

func (r *CategoryRepository) key(userID string) string {
	return Key(recordCategories, userID)
}

// List returns the user's categories. The first read of an absent collection
// seeds and persists the defaults. An unreadable collection is returned empty
// and is not reseeded.
func (r *CategoryRepository) List(ctx context.Context, userID string) ([]model.Category, error) {
	categories, found, err := loadJSON[[]model.Category](ctx, r.store, r.logger, r.key(userID))
	if err != nil {
		return nil, err
	}
	if found {
		return categories, nil
	}

	defaults := make([]model.Category, 0, len(DefaultCategoryNames))
	for _, name := range DefaultCategoryNames {
		defaults = append(defaults, model.Category{ID: uuid.NewString(), Name: name})
	}
	if err := saveCollection(ctx, r.store, r.key(userID), defaults); err != nil {
		return nil, err
	}
	r.logger.Debug("seeded default categories", "user", userID)
	return defaults, nil
}

// Replace overwrites the user's whole category collection.
func (r *CategoryRepository) Replace(ctx context.Context, userID string, categories []model.Category) error {
	return saveCollection(ctx, r.store, r.key(userID), categories)
}

// Create appends a new category with a zero count.
func (r *CategoryRepository) Create(ctx context.Context, userID, name string) (*model.Category, error) {
	categories, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	category := model.Category{ID: uuid.NewString(), Name: name}
	categories = append(categories, category)
	if err := r.Replace(ctx, userID, categories); err != nil {
		return nil, err
	}
	return &category, nil
}

// Rename changes a category's name, keeping its ID and count.
func (r *CategoryRepository) Rename(ctx context.Context, userID, categoryID, name string) (*model.Category, error) {
	categories, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].ID != categoryID {
			continue
		}
		categories[i].Name = name
		if err := r.Replace(ctx, userID, categories); err != nil {
			return nil, err
		}
		renamed := categories[i]
		return &renamed, nil
	}
	return nil, ErrCategoryNotFound
}

// Delete removes a category. Tasks that reference it keep the dangling ID.
func (r *CategoryRepository) Delete(ctx context.Context, userID, categoryID string) (bool, error) {
	categories, err := r.List(ctx, userID)
	if err != nil {
		return false, err
	}
	kept := categories[:0:0]
	for _, c := range categories {
		if c.ID != categoryID {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(categories) {
		return false, nil
	}
	if err := r.Replace(ctx, userID, kept); err != nil {
		return false, err
	}
	return true, nil
}

// Remove drops the user's category collection entirely.
func (r *CategoryRepository) Remove(ctx context.Context, userID string) error {
	return r.store.Remove(ctx, r.key(userID))
}
