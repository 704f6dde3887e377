package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/logging"
	"taskflow/internal/model"
)

func newCategoryRepo(store Store) *CategoryRepository {
	return NewCategoryRepository(store, logging.Discard())
}

func TestCategoryRepositorySeedsDefaultsOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := newCategoryRepo(store)

	first, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, first, len(DefaultCategoryNames))
	for i, c := range first {
		assert.Equal(t, DefaultCategoryNames[i], c.Name)
		assert.Zero(t, c.Count)
		assert.NotEmpty(t, c.ID)
	}

	second, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCategoryRepositoryEmptyCollectionIsNotReseeded(t *testing.T) {
	ctx := context.Background()
	repo := newCategoryRepo(NewMemoryStore())

	require.NoError(t, repo.Replace(ctx, "u1", nil))

	categories, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestCategoryRepositoryCorruptedDataIsNotReseeded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, Key("categories", "u1"), "]]"))

	categories, err := newCategoryRepo(store).List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestCategoryRepositoryCreateRenameDelete(t *testing.T) {
	ctx := context.Background()
	repo := newCategoryRepo(NewMemoryStore())
	require.NoError(t, repo.Replace(ctx, "u1", []model.Category{{ID: "c1", Name: "Travail", Count: 3}}))

	created, err := repo.Create(ctx, "u1", "Loisirs")
	require.NoError(t, err)
	assert.Equal(t, "Loisirs", created.Name)
	assert.Zero(t, created.Count)

	renamed, err := repo.Rename(ctx, "u1", "c1", "Boulot")
	require.NoError(t, err)
	assert.Equal(t, model.Category{ID: "c1", Name: "Boulot", Count: 3}, *renamed)

	_, err = repo.Rename(ctx, "u1", "missing", "x")
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	removed, err := repo.Delete(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.False(t, removed)

	categories, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, created.ID, categories[0].ID)
}

func TestCategoryRepositoryRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := newCategoryRepo(store)

	_, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, repo.Remove(ctx, "u1"))

	_, found, err := store.Get(ctx, Key("categories", "u1"))
	require.NoError(t, err)
	assert.False(t, found)
}
