package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/category"
	"taskflow/internal/model"
	"taskflow/internal/service"
)

var (
	errPositionInvalid    = errors.New("invalid position")
	errPositionOutOfRange = errors.New("position out of range")
)

var colorIcons = map[category.Color]string{
	"blue":                "🔵",
	"purple":              "🟣",
	"green":               "🟢",
	"yellow":              "🟡",
	"pink":                "🩷",
	"indigo":              "🫐",
	"teal":                "🩵",
	"amber":               "🟠",
	"red":                 "🔴",
	"sky":                 "💧",
	category.ColorDefault: "🟤",
	category.ColorNone:    "⚪",
}

func colorIcon(c category.Color) string {
	if icon, ok := colorIcons[c]; ok {
		return icon
	}
	return colorIcons[category.ColorDefault]
}

func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴 haute"
	case model.PriorityMedium:
		return "🟡 moyenne"
	case model.PriorityLow:
		return "🟢 basse"
	default:
		return string(p)
	}
}

// parsePriority accepts the stored values as well as the French labels
// offered by the keyboard.
func parsePriority(input string) (model.Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "low", "basse", "🟢 basse":
		return model.PriorityLow, true
	case "medium", "moyenne", "🟡 moyenne":
		return model.PriorityMedium, true
	case "high", "haute", "🔴 haute":
		return model.PriorityHigh, true
	}
	return "", false
}

// parseDueDate reads a YYYY-MM-DD or DD/MM/YYYY date in local time.
func parseDueDate(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	for _, layout := range []string{dateLayout, "02/01/2006"} {
		if t, err := time.ParseInLocation(layout, input, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse due date %q", input)
}

// parsePosition reads a 1-based list position.
func parsePosition(args string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 1 {
		return 0, errPositionInvalid
	}
	return n, nil
}

func filterTitle(filter service.Filter) string {
	switch filter {
	case service.FilterToday:
		return "Tâches du jour"
	case service.FilterOverdue:
		return "Tâches en retard"
	default:
		return "Toutes les tâches"
	}
}

func formatTask(position int, task model.Task, categories []model.Category, now time.Time) string {
	var sb strings.Builder

	status := "⬜"
	if task.Completed {
		status = "✅"
	}
	sb.WriteString(fmt.Sprintf("%d. %s <b>%s</b>", position, status, escape(normalizeTitle(task.Title))))

	if task.Category != "" {
		display := category.Resolve(task.Category, categories)
		sb.WriteString(fmt.Sprintf(" %s %s", colorIcon(display.Color), escape(display.Name)))
	}
	if task.Priority != "" {
		sb.WriteString(" · " + priorityLabel(task.Priority))
	}
	if task.DueDate != nil {
		due := task.DueDate.In(now.Location())
		sb.WriteString(" · " + due.Format("02/01"))
		if !task.Completed && due.Before(startOfDay(now)) {
			sb.WriteString(" ⚠️")
		}
	}
	sb.WriteByte('\n')
	if task.Description != "" {
		sb.WriteString("   <i>" + escape(task.Description) + "</i>\n")
	}
	return sb.String()
}

func formatDashboard(d service.Dashboard) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Tableau de bord</b>\n")
	sb.WriteString(fmt.Sprintf("• Tâches : %d\n", d.Total))
	sb.WriteString(fmt.Sprintf("• Terminées : %d (%d%%)\n", d.Completed, d.CompletionRate))
	sb.WriteString(fmt.Sprintf("• Pour aujourd'hui : %d\n", d.DueToday))
	sb.WriteString(fmt.Sprintf("• En retard : %d\n", d.Overdue))
	if len(d.Categories) > 0 {
		sb.WriteString("\n<b>Par catégorie</b>\n")
		for _, stat := range d.Categories {
			sb.WriteString(fmt.Sprintf("%s %s — %d\n", colorIcon(stat.Color), escape(stat.Name), stat.Count))
		}
	}
	return strings.TrimSpace(sb.String())
}

func shortTitle(title string, max int) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max-1]) + "…"
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func isSkipInput(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnSkip), "passer", "-":
		return true
	}
	return false
}

func isConfirmInput(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnConfirm), "confirmer", "oui":
		return true
	}
	return false
}

func isCancelInput(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnCancel), "annuler", "non":
		return true
	}
	return false
}

func isCancelDialogInput(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), btnCancelDialog)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelCategories),
			tgbotapi.NewKeyboardButton(menuLabelStats),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSkip)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	keyboard.ResizeKeyboard = true
	keyboard.OneTimeKeyboard = true
	return keyboard
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(priorityLabel(model.PriorityHigh)),
			tgbotapi.NewKeyboardButton(priorityLabel(model.PriorityMedium)),
			tgbotapi.NewKeyboardButton(priorityLabel(model.PriorityLow)),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSkip)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// categoryKeyboard lays out the user's categories two per row.
func categoryKeyboard(categories []model.Category) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, c := range categories {
		row = append(row, tgbotapi.NewKeyboardButton(c.Name))
		if len(row) == 2 {
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
	}
	rows = append(rows,
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSkip)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}
