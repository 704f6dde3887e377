package service

import (
	"context"
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"taskflow/internal/category"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// maxCategoryStats caps the per-category breakdown of the dashboard.
const maxCategoryStats = 5

const uncategorizedKey = "none"

// Filter selects a subset of tasks on the dashboard.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterToday   Filter = "today"
	FilterOverdue Filter = "overdue"
)

// ParseFilter maps user input to a Filter, defaulting to FilterAll.
func ParseFilter(raw string) Filter {
	switch Filter(strings.ToLower(strings.TrimSpace(raw))) {
	case FilterToday:
		return FilterToday
	case FilterOverdue:
		return FilterOverdue
	default:
		return FilterAll
	}
}

// CategoryStat is one bucket of the per-category breakdown.
type CategoryStat struct {
	ID    string
	Name  string
	Color category.Color
	Count int
}

// Dashboard summarizes a user's tasks.
type Dashboard struct {
	Total          int
	Completed      int
	CompletionRate int
	DueToday       int
	Overdue        int
	Categories     []CategoryStat
}

// StatsService builds dashboard statistics and the daily digest.
type StatsService struct {
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
	locks      *UserLocks
	now        func() time.Time
}

func NewStatsService(tasks *repository.TaskRepository, categories *repository.CategoryRepository, locks *UserLocks) *StatsService {
	return &StatsService{tasks: tasks, categories: categories, locks: locks, now: time.Now}
}

func (s *StatsService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	tasks, categories, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	dashboard := ComputeDashboard(tasks, categories, s.now())
	return &dashboard, nil
}

// Tasks returns the user's tasks narrowed by filter.
func (s *StatsService) Tasks(ctx context.Context, userID string, filter Filter) ([]model.Task, error) {
	tasks, err := s.tasks.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FilterTasks(tasks, filter, s.now()), nil
}

// load holds the user's lock since reading categories may seed them.
func (s *StatsService) load(ctx context.Context, userID string) ([]model.Task, []model.Category, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	tasks, err := s.tasks.List(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	categories, err := s.categories.List(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return tasks, categories, nil
}

// ComputeDashboard derives the dashboard from tasks and categories as of now.
// Due dates are compared by calendar day in now's location.
func ComputeDashboard(tasks []model.Task, categories []model.Category, now time.Time) Dashboard {
	var d Dashboard
	d.Total = len(tasks)
	for _, task := range tasks {
		if task.Completed {
			d.Completed++
			continue
		}
		switch {
		case isDueToday(task, now):
			d.DueToday++
		case isOverdue(task, now):
			d.Overdue++
		}
	}
	if d.Total > 0 {
		d.CompletionRate = int(math.Round(float64(d.Completed) / float64(d.Total) * 100))
	}
	d.Categories = categoryStats(tasks, categories)
	return d
}

// categoryStats always includes the uncategorized bucket and every current
// category, plus any dangling reference still carried by a task. Legacy
// references are counted on the category they bridge to.
func categoryStats(tasks []model.Task, categories []model.Category) []CategoryStat {
	bridge := category.Bridge(categories)
	counts := make(map[string]int)
	var dangling []string
	for _, task := range tasks {
		key := uncategorizedKey
		if task.Category != "" {
			if target, ok := category.Target(task.Category, categories, bridge); ok {
				key = target
			} else {
				key = task.Category
				if counts[key] == 0 {
					dangling = append(dangling, key)
				}
			}
		}
		counts[key]++
	}

	stats := []CategoryStat{{
		ID:    uncategorizedKey,
		Name:  category.Uncategorized.Name,
		Color: category.Uncategorized.Color,
		Count: counts[uncategorizedKey],
	}}
	for _, c := range categories {
		display := category.Resolve(c.ID, categories)
		stats = append(stats, CategoryStat{ID: c.ID, Name: display.Name, Color: display.Color, Count: counts[c.ID]})
	}
	for _, ref := range dangling {
		display := category.Resolve(ref, categories)
		color := display.Color
		if _, legacy := category.ParseLegacy(ref); !legacy {
			color = category.ColorNone
		}
		stats = append(stats, CategoryStat{ID: ref, Name: display.Name, Color: color, Count: counts[ref]})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})
	if len(stats) > maxCategoryStats {
		stats = stats[:maxCategoryStats]
	}
	return stats
}

// FilterTasks narrows tasks. FilterToday keeps tasks due today whether or not
// they are completed; FilterOverdue keeps incomplete tasks due before today.
func FilterTasks(tasks []model.Task, filter Filter, now time.Time) []model.Task {
	if filter != FilterToday && filter != FilterOverdue {
		return tasks
	}
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		switch filter {
		case FilterToday:
			if isDueToday(task, now) {
				out = append(out, task)
			}
		case FilterOverdue:
			if !task.Completed && isOverdue(task, now) {
				out = append(out, task)
			}
		}
	}
	return out
}

// Digest renders the HTML daily digest sent to logged-in chats.
func (s *StatsService) Digest(ctx context.Context, userID string) (string, error) {
	tasks, categories, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	now := s.now()
	dashboard := ComputeDashboard(tasks, categories, now)

	var pending []model.Task
	for _, task := range tasks {
		if !task.Completed {
			pending = append(pending, task)
		}
	}
	SortByDueDate(pending)

	var builder strings.Builder
	builder.WriteString("📋 <b>Votre journée</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("02/01/2006")))
	builder.WriteString(fmt.Sprintf("✅ %d / %d terminées (%d%%) · ⏰ %d aujourd'hui · ⚠️ %d en retard\n\n",
		dashboard.Completed, dashboard.Total, dashboard.CompletionRate, dashboard.DueToday, dashboard.Overdue))

	builder.WriteString("🔥 <b>À faire</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— aucune tâche en cours\n")
	}
	for _, task := range pending {
		builder.WriteString(formatDigestLine(task, categories, now))
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatDigestLine(task model.Task, categories []model.Category, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case isOverdue(task, now):
		icon = "⚠️"
	case isDueToday(task, now):
		icon = "⏳"
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))

	if task.Category != "" {
		display := category.Resolve(task.Category, categories)
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(display.Name)))
	}
	if task.DueDate != nil {
		sb.WriteString(fmt.Sprintf(" · échéance %s", task.DueDate.In(now.Location()).Format("02/01")))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// SortByDueDate orders tasks by due date, undated tasks last and newest first.
func SortByDueDate(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return a.CreatedAt.After(b.CreatedAt)
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		default:
			return a.DueDate.Before(*b.DueDate)
		}
	})
}

func isDueToday(task model.Task, now time.Time) bool {
	if task.DueDate == nil {
		return false
	}
	return startOfDay(*task.DueDate, now.Location()).Equal(startOfDay(now, now.Location()))
}

func isOverdue(task model.Task, now time.Time) bool {
	if task.DueDate == nil {
		return false
	}
	return startOfDay(*task.DueDate, now.Location()).Before(startOfDay(now, now.Location()))
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
