package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/category"
	"taskflow/internal/model"
)

var statsNow = time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

func due(days int) *time.Time {
	d := statsNow.AddDate(0, 0, days)
	return &d
}

func statsFixture() ([]model.Task, []model.Category) {
	categories := []model.Category{
		{ID: "c1", Name: "Personnel"},
		{ID: "c2", Name: "Travail"},
	}
	tasks := []model.Task{
		{ID: "t1", Title: "today open", DueDate: due(0), Category: "c1"},
		{ID: "t2", Title: "today done", DueDate: due(0), Completed: true, Category: "work"},
		{ID: "t3", Title: "late", DueDate: due(-2), Category: "work"},
		{ID: "t4", Title: "late done", DueDate: due(-3), Completed: true},
		{ID: "t5", Title: "future", DueDate: due(4), Category: "orphan"},
		{ID: "t6", Title: "undated", Category: "health"},
	}
	return tasks, categories
}

func TestComputeDashboard(t *testing.T) {
	tasks, categories := statsFixture()

	d := ComputeDashboard(tasks, categories, statsNow)

	assert.Equal(t, 6, d.Total)
	assert.Equal(t, 2, d.Completed)
	assert.Equal(t, 33, d.CompletionRate)
	assert.Equal(t, 1, d.DueToday)
	assert.Equal(t, 1, d.Overdue)

	require.Len(t, d.Categories, 5)
	assert.Equal(t, CategoryStat{ID: "c2", Name: "Travail", Color: "purple", Count: 2}, d.Categories[0])

	byID := map[string]CategoryStat{}
	for _, stat := range d.Categories {
		byID[stat.ID] = stat
	}
	assert.Equal(t, 1, byID["none"].Count)
	assert.Equal(t, category.ColorNone, byID["none"].Color)
	assert.Equal(t, 1, byID["c1"].Count)
	assert.Equal(t, CategoryStat{ID: "orphan", Name: "orphan", Color: category.ColorNone, Count: 1}, byID["orphan"])
	assert.Equal(t, CategoryStat{ID: "health", Name: "Santé", Color: "pink", Count: 1}, byID["health"])
}

func TestComputeDashboardEmpty(t *testing.T) {
	d := ComputeDashboard(nil, nil, statsNow)
	assert.Zero(t, d.Total)
	assert.Zero(t, d.CompletionRate)
	require.Len(t, d.Categories, 1)
	assert.Equal(t, "none", d.Categories[0].ID)
}

func TestFilterTasks(t *testing.T) {
	tasks, _ := statsFixture()

	ids := func(tasks []model.Task) []string {
		var out []string
		for _, task := range tasks {
			out = append(out, task.ID)
		}
		return out
	}

	assert.Equal(t, []string{"t1", "t2"}, ids(FilterTasks(tasks, FilterToday, statsNow)))
	assert.Equal(t, []string{"t3"}, ids(FilterTasks(tasks, FilterOverdue, statsNow)))
	assert.Len(t, FilterTasks(tasks, FilterAll, statsNow), len(tasks))
}

func TestParseFilter(t *testing.T) {
	assert.Equal(t, FilterToday, ParseFilter(" Today"))
	assert.Equal(t, FilterOverdue, ParseFilter("overdue"))
	assert.Equal(t, FilterAll, ParseFilter(""))
	assert.Equal(t, FilterAll, ParseFilter("someday"))
}

func TestSortByDueDate(t *testing.T) {
	older := statsNow.Add(-time.Hour)
	tasks := []model.Task{
		{ID: "undated-old", CreatedAt: older},
		{ID: "later", DueDate: due(3)},
		{ID: "undated-new", CreatedAt: statsNow},
		{ID: "sooner", DueDate: due(1)},
	}
	SortByDueDate(tasks)

	var order []string
	for _, task := range tasks {
		order = append(order, task.ID)
	}
	assert.Equal(t, []string{"sooner", "later", "undated-new", "undated-old"}, order)
}

func TestDigest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.statsSvc.now = fixedClock(statsNow)

	tasks, categories := statsFixture()
	require.NoError(t, env.categories.Replace(ctx, "u1", categories))
	require.NoError(t, env.tasks.Replace(ctx, "u1", append(tasks, model.Task{ID: "t7", Title: "<b>x</b>"})))

	text, err := env.statsSvc.Digest(ctx, "u1")
	require.NoError(t, err)

	assert.Contains(t, text, "18/10/2026")
	assert.Contains(t, text, "⚠️ late <i>(Travail)</i>")
	assert.Contains(t, text, "⏳ today open <i>(Personnel)</i>")
	assert.Contains(t, text, "&lt;b&gt;x&lt;/b&gt;")
	assert.NotContains(t, text, "late done")
}

func TestStatsServiceDashboardAndTasks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.statsSvc.now = fixedClock(statsNow)

	tasks, categories := statsFixture()
	require.NoError(t, env.categories.Replace(ctx, "u1", categories))
	require.NoError(t, env.tasks.Replace(ctx, "u1", tasks))

	d, err := env.statsSvc.Dashboard(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, d.Total)

	overdue, err := env.statsSvc.Tasks(ctx, "u1", FilterOverdue)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "t3", overdue[0].ID)
}

func TestDashboardCountsLegacyOnBridgedCategory(t *testing.T) {
	categories := []model.Category{{ID: "c1", Name: "Travail"}}
	tasks := []model.Task{
		{ID: "t1", Title: "legacy", Category: "work"},
		{ID: "t2", Title: "current", Category: "c1"},
	}

	d := ComputeDashboard(tasks, categories, statsNow)

	byID := map[string]CategoryStat{}
	for _, stat := range d.Categories {
		byID[stat.ID] = stat
	}
	assert.Equal(t, 2, byID["c1"].Count)
	assert.NotContains(t, byID, "work")
}
