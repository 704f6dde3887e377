package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

type dialogStep int

const (
	stepAdvanced dialogStep = iota
	stepRejected
	stepDone
	stepReset
)

// advance records text for the current stage of the task dialog and moves
// to the next stage. A rejected input leaves the stage unchanged. The typed
// category name is kept as is; the handler turns it into an ID.
func (c *conversationState) advance(text string) dialogStep {
	text = strings.TrimSpace(text)
	switch c.stage {
	case stageTitle:
		if text == "" {
			return stepRejected
		}
		c.input.Title = text
		c.stage = stageDescription
	case stageDescription:
		if !isSkipInput(text) {
			c.input.Description = text
		}
		c.stage = stageCategory
	case stageCategory:
		c.categoryName = ""
		if !isSkipInput(text) {
			c.categoryName = text
		}
		c.stage = stageDueDate
	case stageDueDate:
		if !isSkipInput(text) {
			due, err := parseDueDate(text)
			if err != nil {
				return stepRejected
			}
			c.input.DueDate = &due
		}
		c.stage = stagePriority
	case stagePriority:
		if !isSkipInput(text) {
			priority, ok := parsePriority(text)
			if !ok {
				return stepRejected
			}
			c.input.Priority = priority
		}
		return stepDone
	default:
		return stepReset
	}
	return stepAdvanced
}

// prompt is the question asked on entering the current stage. categories
// fill the keyboard of the category stage.
func (c *conversationState) prompt(categories []model.Category) (string, tgbotapi.ReplyKeyboardMarkup) {
	switch c.stage {
	case stageDescription:
		return "✏️ Ajoutez une description (ou « Passer »).", skipKeyboard()
	case stageCategory:
		return "🏷 Choisissez une catégorie ou tapez-en une nouvelle (ou « Passer »).", categoryKeyboard(categories)
	case stageDueDate:
		return "⏰ Date d'échéance au format <code>2026-11-30</code> (ou « Passer »).", skipKeyboard()
	case stagePriority:
		return "🚦 Priorité ?", priorityKeyboard()
	default:
		return "🆕 Nouvelle tâche.\n<b>Étape 1 :</b> quel est son titre ?", cancelKeyboard()
	}
}

// rejection is the reply to an input advance refused.
func (c *conversationState) rejection() (string, tgbotapi.ReplyKeyboardMarkup) {
	switch c.stage {
	case stageDueDate:
		return "Date invalide. Utilisez le format <code>2026-11-30</code> ou « Passer ».", skipKeyboard()
	case stagePriority:
		return service.ErrInvalidPriority.Error(), priorityKeyboard()
	default:
		return service.ErrTitleRequired.Error(), cancelKeyboard()
	}
}

type confirmationReply int

const (
	replyUnknown confirmationReply = iota
	replyConfirm
	replyCancel
)

func parseConfirmationReply(text string) confirmationReply {
	switch {
	case isConfirmInput(text):
		return replyConfirm
	case isCancelInput(text):
		return replyCancel
	default:
		return replyUnknown
	}
}
