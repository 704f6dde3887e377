package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/category"
	"taskflow/internal/model"
	"taskflow/internal/service"
)

func TestParsePriority(t *testing.T) {
	cases := map[string]model.Priority{
		"high":       model.PriorityHigh,
		"Haute":      model.PriorityHigh,
		"🟡 moyenne":  model.PriorityMedium,
		" low ":      model.PriorityLow,
		"🟢 basse":    model.PriorityLow,
	}
	for input, want := range cases {
		got, ok := parsePriority(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}

	_, ok := parsePriority("urgent")
	assert.False(t, ok)
}

func TestParseDueDate(t *testing.T) {
	got, err := parseDueDate("2026-11-30")
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, time.November, got.Month())
	assert.Equal(t, 30, got.Day())

	got, err = parseDueDate("05/12/2026")
	require.NoError(t, err)
	assert.Equal(t, time.December, got.Month())
	assert.Equal(t, 5, got.Day())

	_, err = parseDueDate("demain")
	assert.Error(t, err)
}

func TestParsePosition(t *testing.T) {
	n, err := parsePosition(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, bad := range []string{"", "0", "-1", "deux"} {
		_, err := parsePosition(bad)
		assert.ErrorIs(t, err, errPositionInvalid, bad)
	}
}

func TestColorIcon(t *testing.T) {
	assert.Equal(t, "🔵", colorIcon("blue"))
	assert.Equal(t, "⚪", colorIcon(category.ColorNone))
	assert.Equal(t, colorIcon(category.ColorDefault), colorIcon("unknown"))
}

func TestFormatTaskResolvesCategories(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	categories := []model.Category{{ID: "c1", Name: "Maison"}}

	line := formatTask(1, model.Task{Title: "payer <loyer>", Category: "c1", DueDate: &yesterday}, categories, now)
	assert.Contains(t, line, "1. ⬜ <b>Payer &lt;loyer&gt;</b>")
	assert.Contains(t, line, "🔵 Maison")
	assert.Contains(t, line, "17/10 ⚠️")

	line = formatTask(2, model.Task{Title: "rapport", Category: "work", Completed: true, DueDate: &yesterday}, categories, now)
	assert.Contains(t, line, "2. ✅")
	assert.Contains(t, line, "Travail")
	assert.NotContains(t, line, "⚠️")

	line = formatTask(3, model.Task{Title: "sans rien"}, categories, now)
	assert.NotContains(t, line, category.UncategorizedName)
}

func TestFormatDashboard(t *testing.T) {
	text := formatDashboard(service.Dashboard{
		Total:          4,
		Completed:      1,
		CompletionRate: 25,
		DueToday:       2,
		Overdue:        1,
		Categories: []service.CategoryStat{
			{ID: "c1", Name: "Travail", Color: "blue", Count: 3},
		},
	})

	assert.Contains(t, text, "Terminées : 1 (25%)")
	assert.Contains(t, text, "En retard : 1")
	assert.Contains(t, text, "🔵 Travail — 3")
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "court", shortTitle("court", 10))
	got := shortTitle("une tâche au titre très long", 10)
	assert.Equal(t, 10, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestCategoryKeyboardLayout(t *testing.T) {
	keyboard := categoryKeyboard([]model.Category{
		{ID: "a", Name: "Personnel"},
		{ID: "b", Name: "Travail"},
		{ID: "c", Name: "Courses"},
	})

	require.Len(t, keyboard.Keyboard, 4)
	assert.Len(t, keyboard.Keyboard[0], 2)
	assert.Equal(t, "Courses", keyboard.Keyboard[1][0].Text)
	assert.Equal(t, btnSkip, keyboard.Keyboard[2][0].Text)
}

func TestDialogInputs(t *testing.T) {
	assert.True(t, isSkipInput("passer"))
	assert.True(t, isSkipInput(btnSkip))
	assert.True(t, isConfirmInput("Oui"))
	assert.True(t, isCancelInput(btnCancel))
	assert.True(t, isCancelDialogInput(btnCancelDialog))
	assert.False(t, isSkipInput("lait"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Alice", displayName(model.Profile{Name: "Alice", Email: "a@x.fr"}))
	assert.Equal(t, "bob", displayName(model.Profile{Email: "bob@x.fr"}))
}
