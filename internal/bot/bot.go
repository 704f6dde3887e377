package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/category"
	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageCategory
	stageDueDate
	stagePriority
)

const (
	cbTogglePrefix = "toggle:"
	cbDeletePrefix = "delete:"
)

const (
	btnSkip             = "⏭️ Passer"
	btnConfirm          = "✅ Confirmer"
	btnCancel           = "↩️ Annuler"
	btnCancelDialog     = "⏪ Abandonner la saisie"
	menuLabelNewTask    = "➕ Nouvelle tâche"
	menuLabelTasks      = "📋 Tâches"
	menuLabelCategories = "📂 Catégories"
	menuLabelStats      = "📊 Statistiques"
	dateLayout          = "2006-01-02"
)

type conversationState struct {
	stage        conversationStage
	input        service.TaskInput
	categoryName string
}

type confirmationAction int

const (
	actionDeleteTask confirmationAction = iota
	actionDeleteAccount
)

type confirmationRequest struct {
	taskID string
	action confirmationAction
}

// Bot is the Telegram front end. Each private chat is one session; a chat
// must sign up or log in before it can see tasks.
type Bot struct {
	api           *tgbotapi.BotAPI
	auth          *service.AuthService
	tasks         *service.TaskService
	categories    *service.CategoryService
	stats         *service.StatsService
	logger        *log.Logger
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	listings      map[int64][]string
	mu            sync.Mutex
}

func New(token string, auth *service.AuthService, tasks *service.TaskService, categories *service.CategoryService, stats *service.StatsService, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("bot authorized", "account", api.Self.UserName)

	return &Bot{
		api:           api,
		auth:          auth,
		tasks:         tasks,
		categories:    categories,
		stats:         stats,
		logger:        logger,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
		listings:      make(map[int64][]string),
	}, nil
}

// Start polls updates until ctx is cancelled. Updates are handled one at a
// time, so operations for a session never overlap.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.logger.Error("handle callback", "err", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.logger.Error("handle message", "err", err)
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Saisie abandonnée.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.logger.Debug("command", "chat", chatID, "command", msg.Command())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(chatID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(chatID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(chatID, "Je n'ai pas compris. Utilisez /newtask pour ajouter une tâche ou /help pour la liste des commandes.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "signup":
		return b.handleSignup(ctx, msg)
	case "login":
		return b.handleLogin(ctx, msg)
	case "logout":
		return b.handleLogout(ctx, msg)
	case "profile":
		return b.handleProfile(ctx, msg)
	case "password":
		return b.handlePassword(ctx, msg)
	case "deleteaccount":
		return b.askDeleteAccountConfirmation(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "done":
		return b.handleToggle(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "newcategory":
		return b.handleNewCategory(ctx, msg)
	case "renamecategory":
		return b.handleRenameCategory(ctx, msg)
	case "deletecategory":
		return b.handleDeleteCategory(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "cancel":
		b.clearConversation(msg.Chat.ID)
		b.clearConfirmation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Saisie abandonnée.")
	default:
		return b.sendText(msg.Chat.ID, "Commande inconnue. Consultez /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	profile, err := b.auth.CurrentUser(ctx, sessionKey(msg.Chat.ID))
	if err != nil {
		return b.fail(msg.Chat.ID, "la récupération de l'utilisateur", err)
	}

	if profile == nil {
		text := "👋 Bienvenue sur <b>TaskFlow</b> !\n\n" +
			"• /signup &lt;email&gt; &lt;mot de passe&gt; [nom] — créer un compte\n" +
			"• /login &lt;email&gt; &lt;mot de passe&gt; — se connecter"
		return b.sendText(msg.Chat.ID, text)
	}

	return b.sendText(msg.Chat.ID, fmt.Sprintf("👋 Bonjour %s ! Tapez /help pour voir les commandes.", escape(displayName(*profile))))
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commandes</b>\n" +
		"• /newtask — ajouter une tâche pas à pas\n" +
		"• /tasks [today|overdue] — lister les tâches\n" +
		"• /done &lt;n&gt; — basculer l'état terminé de la tâche n\n" +
		"• /delete &lt;n&gt; — supprimer la tâche n\n" +
		"• /categories — catégories et nombre de tâches\n" +
		"• /newcategory &lt;nom&gt; — créer une catégorie\n" +
		"• /renamecategory &lt;n&gt; &lt;nom&gt; — renommer une catégorie\n" +
		"• /deletecategory &lt;n&gt; — supprimer une catégorie\n" +
		"• /stats — tableau de bord\n" +
		"• /profile [nom] — voir ou changer son nom\n" +
		"• /password &lt;actuel&gt; &lt;nouveau&gt; — changer de mot de passe\n" +
		"• /logout — se déconnecter\n" +
		"• /deleteaccount — supprimer son compte\n" +
		"• /cancel — abandonner la saisie en cours"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleSignup(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		return b.sendText(msg.Chat.ID, "Usage : /signup &lt;email&gt; &lt;mot de passe&gt; [nom]")
	}
	creds := service.Credentials{Email: args[0], Password: args[1], Name: strings.Join(args[2:], " ")}

	profile, err := b.auth.Signup(ctx, sessionKey(msg.Chat.ID), creds)
	if err != nil {
		return b.fail(msg.Chat.ID, "l'inscription", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🎉 Compte créé. Bienvenue %s ! Vos premières tâches vous attendent dans /tasks.", escape(displayName(*profile))))
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage : /login &lt;email&gt; &lt;mot de passe&gt;")
	}

	profile, err := b.auth.Login(ctx, sessionKey(msg.Chat.ID), service.Credentials{Email: args[0], Password: args[1]})
	if err != nil {
		return b.fail(msg.Chat.ID, "la connexion", err)
	}
	b.categories.ReconcileInBackground(ctx, profile.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Connecté en tant que %s.", escape(displayName(*profile))))
}

func (b *Bot) handleLogout(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.auth.Logout(ctx, sessionKey(msg.Chat.ID)); err != nil {
		return b.fail(msg.Chat.ID, "la déconnexion", err)
	}
	b.forgetChat(msg.Chat.ID)
	return b.sendTextWithRemove(msg.Chat.ID, "👋 Vous êtes déconnecté.")
}

func (b *Bot) handleProfile(ctx context.Context, msg *tgbotapi.Message) error {
	session := sessionKey(msg.Chat.ID)
	name := strings.TrimSpace(msg.CommandArguments())

	var profile *model.Profile
	var err error
	if name == "" {
		profile, err = b.auth.CurrentUser(ctx, session)
		if err == nil && profile == nil {
			err = service.ErrNotLoggedIn
		}
	} else {
		profile, err = b.auth.UpdateProfile(ctx, session, service.ProfileUpdate{Name: &name})
	}
	if err != nil {
		return b.fail(msg.Chat.ID, "la mise à jour du profil", err)
	}

	return b.sendText(msg.Chat.ID, fmt.Sprintf("👤 <b>%s</b>\n%s", escape(displayName(*profile)), escape(profile.Email)))
}

func (b *Bot) handlePassword(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage : /password &lt;actuel&gt; &lt;nouveau&gt;")
	}
	if err := b.auth.UpdatePassword(ctx, sessionKey(msg.Chat.ID), args[0], args[1]); err != nil {
		return b.fail(msg.Chat.ID, "la mise à jour du mot de passe", err)
	}
	return b.sendText(msg.Chat.ID, "🔑 Mot de passe mis à jour.")
}

func (b *Bot) askDeleteAccountConfirmation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, ok, err := b.requireUser(ctx, msg.Chat.ID); !ok {
		return err
	}
	b.setConfirmation(msg.Chat.ID, confirmationRequest{action: actionDeleteAccount})
	return b.sendWithReplyMarkup(msg.Chat.ID, "Supprimer définitivement votre compte, vos tâches et vos catégories ?", confirmKeyboard())
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, ok, err := b.requireUser(ctx, msg.Chat.ID); !ok {
		return err
	}
	state := &conversationState{stage: stageTitle}
	b.setConversation(msg.Chat.ID, state)
	text, keyboard := state.prompt(nil)
	return b.sendWithReplyMarkup(msg.Chat.ID, text, keyboard)
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	state := b.getConversation(chatID)
	if state == nil {
		return nil
	}

	switch state.advance(msg.Text) {
	case stepRejected:
		text, keyboard := state.rejection()
		return b.sendWithReplyMarkup(chatID, text, keyboard)
	case stepDone:
		err := b.finishTaskCreation(ctx, chatID, state.input)
		b.clearConversation(chatID)
		return err
	case stepReset:
		b.clearConversation(chatID)
		return b.sendText(chatID, "Saisie réinitialisée. Recommencez avec /newtask.")
	}

	var categories []model.Category
	switch state.stage {
	case stageCategory:
		user, ok, err := b.requireUser(ctx, chatID)
		if !ok {
			b.clearConversation(chatID)
			return err
		}
		categories, err = b.categories.List(ctx, user.ID)
		if err != nil {
			b.clearConversation(chatID)
			return b.fail(chatID, "la récupération des catégories", err)
		}
	case stageDueDate:
		if state.categoryName != "" {
			ref, err := b.categoryRefFromName(ctx, chatID, state.categoryName)
			if err != nil {
				b.clearConversation(chatID)
				return b.fail(chatID, "la création de la catégorie", err)
			}
			state.input.Category = ref
		}
	}

	text, keyboard := state.prompt(categories)
	return b.sendWithReplyMarkup(chatID, text, keyboard)
}

// categoryRefFromName maps a typed category name to a category ID, creating
// the category when no current or legacy name matches.
func (b *Bot) categoryRefFromName(ctx context.Context, chatID int64, name string) (string, error) {
	user, ok, err := b.requireUser(ctx, chatID)
	if !ok {
		if err == nil {
			err = service.ErrNotLoggedIn
		}
		return "", err
	}
	categories, err := b.categories.List(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if id, found := category.ResolveIDByName(name, categories); found {
		return id, nil
	}
	created, err := b.categories.Create(ctx, user.ID, name)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, input service.TaskInput) error {
	user, ok, err := b.requireUser(ctx, chatID)
	if !ok {
		return err
	}

	task, err := b.tasks.Add(ctx, user.ID, input)
	if err != nil {
		return b.fail(chatID, "l'ajout de la tâche", err)
	}

	categories, _ := b.categories.List(ctx, user.ID)
	display := category.Resolve(task.Category, categories)

	var summary strings.Builder
	summary.WriteString("✅ <b>Tâche ajoutée</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Titre :</b> %s\n", escape(normalizeTitle(task.Title))))
	if task.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Description :</b> %s\n", escape(task.Description)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Catégorie :</b> %s %s\n", colorIcon(display.Color), escape(display.Name)))
	if task.DueDate != nil {
		summary.WriteString(fmt.Sprintf("• <b>Échéance :</b> %s\n", task.DueDate.Format(dateLayout)))
	}
	if task.Priority != "" {
		summary.WriteString(fmt.Sprintf("• <b>Priorité :</b> %s\n", priorityLabel(task.Priority)))
	}

	if err := b.sendTextWithRemove(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user.ID, service.FilterAll)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.requireUser(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user.ID, service.ParseFilter(msg.CommandArguments()))
}

func (b *Bot) handleToggle(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.requireUser(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	taskID, err := b.taskIDFromArgs(ctx, msg.Chat.ID, user.ID, msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Indiquez le numéro de la tâche affiché par /tasks, par exemple /done 2.")
	}
	return b.toggleTaskAndRefresh(ctx, msg.Chat.ID, user.ID, taskID)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.requireUser(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	taskID, err := b.taskIDFromArgs(ctx, msg.Chat.ID, user.ID, msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Indiquez le numéro de la tâche affiché par /tasks, par exemple /delete 2.")
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, user.ID, taskID)
}

// handleCategories reconciles counts before listing. The user asked for
// them directly, so a reconciliation failure is reported.
func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.requireUser(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	categories, err := b.categories.Reconcile(ctx, user.ID)
	if err != nil {
		return b.fail(msg.Chat.ID, "la mise à jour des compteurs", err)
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "Aucune catégorie. Créez-en une avec /newcategory.")
	}

	var builder strings.Builder
	builder.WriteString("📂 <b>Catégories</b>\n")
	for i, c := range categories {
		display := category.Resolve(c.ID, categories)
		builder.WriteString(fmt.Sprintf("%d. %s %s — %d\n", i+1, colorIcon(display.Color), escape(c.Name), c.Count))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleNewCategory(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.requireUser(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	created, err := b.categories.Create(ctx, user.ID, msg.CommandArguments())
	if err != nil {
		return b.fail(msg.Chat.ID, "la création de la catégorie", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📁 Catégorie « %s » créée.", escape(created.Name)))
}

func (b *Bot) handleRenameCategory(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.requireUser(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	position, name, _ := strings.Cut(strings.TrimSpace(msg.CommandArguments()), " ")
	categoryID, err := b.categoryIDFromPosition(ctx, user.ID, position)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage : /renamecategory &lt;n&gt; &lt;nom&gt; (n affiché par /categories)")
	}
	renamed, err := b.categories.Rename(ctx, user.ID, categoryID, name)
	if err != nil {
		return b.fail(msg.Chat.ID, "la mise à jour de la catégorie", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✏️ Catégorie renommée en « %s ».", escape(renamed.Name)))
}

func (b *Bot) handleDeleteCategory(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.requireUser(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	categoryID, err := b.categoryIDFromPosition(ctx, user.ID, msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage : /deletecategory &lt;n&gt; (n affiché par /categories)")
	}
	removed, err := b.categories.Delete(ctx, user.ID, categoryID)
	if err != nil {
		return b.fail(msg.Chat.ID, "la suppression de la catégorie", err)
	}
	if !removed {
		return b.sendText(msg.Chat.ID, "Catégorie introuvable.")
	}
	return b.sendText(msg.Chat.ID, "🗑 Catégorie supprimée. Les tâches associées sont conservées.")
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.requireUser(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	dashboard, err := b.stats.Dashboard(ctx, user.ID)
	if err != nil {
		return b.fail(msg.Chat.ID, "le calcul des statistiques", err)
	}
	return b.sendText(msg.Chat.ID, formatDashboard(*dashboard))
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	chatID := msg.Chat.ID
	switch parseConfirmationReply(msg.Text) {
	case replyConfirm:
		b.clearConfirmation(chatID)
		if req.action == actionDeleteAccount {
			return b.deleteAccount(ctx, chatID)
		}
		user, ok, err := b.requireUser(ctx, chatID)
		if !ok {
			return err
		}
		return b.deleteTaskAndRefresh(ctx, chatID, user.ID, req.taskID)
	case replyCancel:
		b.clearConfirmation(chatID)
		return b.sendTextWithRemove(chatID, "Opération annulée.")
	default:
		return b.sendWithReplyMarkup(chatID, "Confirmez ou annulez la suppression.", confirmKeyboard())
	}
}

// SendDigests sends the daily digest to every logged-in chat.
func (b *Bot) SendDigests(ctx context.Context) error {
	sessions, err := b.auth.Sessions(ctx)
	if err != nil {
		return err
	}
	for session, userID := range sessions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		chatID, err := strconv.ParseInt(session, 10, 64)
		if err != nil {
			continue
		}
		text, err := b.stats.Digest(ctx, userID)
		if err != nil {
			b.logger.Error("build digest", "user", userID, "err", err)
			continue
		}
		if err := b.sendText(chatID, text); err != nil {
			b.logger.Error("send digest", "chat", chatID, "err", err)
		}
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("callback ack", "err", err)
	}

	chatID := cb.Message.Chat.ID
	user, ok, err := b.requireUser(ctx, chatID)
	if !ok {
		return err
	}

	switch {
	case strings.HasPrefix(cb.Data, cbTogglePrefix):
		return b.toggleTaskAndRefresh(ctx, chatID, user.ID, strings.TrimPrefix(cb.Data, cbTogglePrefix))
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		return b.askDeleteConfirmation(ctx, chatID, user.ID, strings.TrimPrefix(cb.Data, cbDeletePrefix))
	default:
		return nil
	}
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, userID, taskID string) error {
	task, err := b.tasks.Get(ctx, userID, taskID)
	if err != nil {
		return b.fail(chatID, "la récupération de la tâche", err)
	}
	if task == nil {
		return b.sendText(chatID, "Tâche non trouvée.")
	}

	text := fmt.Sprintf("Supprimer la tâche « %s » ?", escape(normalizeTitle(task.Title)))
	b.setConfirmation(chatID, confirmationRequest{taskID: task.ID, action: actionDeleteTask})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) toggleTaskAndRefresh(ctx context.Context, chatID int64, userID, taskID string) error {
	task, err := b.tasks.ToggleComplete(ctx, userID, taskID)
	if err != nil {
		return b.fail(chatID, "la mise à jour du statut", err)
	}
	if task == nil {
		return b.sendText(chatID, "Échec de la mise à jour de la tâche.")
	}

	status := "à faire"
	if task.Completed {
		status = "terminée"
	}
	if err := b.sendText(chatID, fmt.Sprintf("✅ « %s » : %s.", escape(normalizeTitle(task.Title)), status)); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, userID, service.FilterAll)
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, userID, taskID string) error {
	removed, err := b.tasks.Delete(ctx, userID, taskID)
	if err != nil {
		return b.fail(chatID, "la suppression de la tâche", err)
	}
	if !removed {
		return b.sendTextWithRemove(chatID, "Échec de la suppression de la tâche.")
	}
	if err := b.sendTextWithRemove(chatID, "🗑 Tâche supprimée."); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, userID, service.FilterAll)
}

func (b *Bot) deleteAccount(ctx context.Context, chatID int64) error {
	if err := b.auth.DeleteAccount(ctx, sessionKey(chatID)); err != nil {
		return b.fail(chatID, "la suppression du compte", err)
	}
	b.forgetChat(chatID)
	return b.sendTextWithRemove(chatID, "Votre compte a été supprimé.")
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, userID string, filter service.Filter) error {
	tasks, err := b.stats.Tasks(ctx, userID, filter)
	if err != nil {
		return b.fail(chatID, "la récupération des tâches", err)
	}
	categories, err := b.categories.List(ctx, userID)
	if err != nil {
		return b.fail(chatID, "la récupération des catégories", err)
	}

	service.SortByDueDate(tasks)
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	b.setListing(chatID, ids)

	if len(tasks) == 0 {
		return b.sendText(chatID, "Vous n'avez aucune tâche pour le moment. Commencez par en ajouter une avec /newtask !")
	}

	now := time.Now()
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>%s</b>\n\n", filterTitle(filter)))

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		builder.WriteString(formatTask(i+1, task, categories, now))
		mark := "✅"
		if task.Completed {
			mark = "↩️"
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d · %s", mark, i+1, shortTitle(task.Title, 20)), cbTogglePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

// taskIDFromArgs maps the 1-based position from the chat's last listing to
// a task ID. Without a listing the full sorted list is used.
func (b *Bot) taskIDFromArgs(ctx context.Context, chatID int64, userID, args string) (string, error) {
	position, err := parsePosition(args)
	if err != nil {
		return "", err
	}
	ids := b.getListing(chatID)
	if ids == nil {
		tasks, err := b.tasks.List(ctx, userID)
		if err != nil {
			return "", err
		}
		service.SortByDueDate(tasks)
		for _, task := range tasks {
			ids = append(ids, task.ID)
		}
	}
	if position > len(ids) {
		return "", errPositionOutOfRange
	}
	return ids[position-1], nil
}

func (b *Bot) categoryIDFromPosition(ctx context.Context, userID, args string) (string, error) {
	position, err := parsePosition(args)
	if err != nil {
		return "", err
	}
	categories, err := b.categories.List(ctx, userID)
	if err != nil {
		return "", err
	}
	if position > len(categories) {
		return "", errPositionOutOfRange
	}
	return categories[position-1].ID, nil
}

// requireUser returns the logged-in account for the chat. When nobody is
// logged in it tells the user and returns ok=false.
func (b *Bot) requireUser(ctx context.Context, chatID int64) (*model.Profile, bool, error) {
	profile, err := b.auth.CurrentUser(ctx, sessionKey(chatID))
	if err != nil {
		return nil, false, b.fail(chatID, "la récupération de l'utilisateur", err)
	}
	if profile == nil {
		return nil, false, b.sendText(chatID, "Vous devez être connecté : /login ou /signup.")
	}
	return profile, true, nil
}

// fail reports err to the chat. Validation errors are shown as is; anything
// else is logged and replaced by a generic message naming the operation.
func (b *Bot) fail(chatID int64, operation string, err error) error {
	if service.IsValidationError(err) {
		return b.sendText(chatID, escape(err.Error()))
	}
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return b.sendText(chatID, "Catégorie introuvable.")
	}
	b.logger.Error("operation failed", "chat", chatID, "operation", operation, "err", err)
	return b.sendText(chatID, fmt.Sprintf("Erreur lors de %s.", operation))
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelCategories):
		return true, b.handleCategories(ctx, msg)
	case strings.ToLower(menuLabelStats):
		return true, b.handleStats(ctx, msg)
	default:
		return false, nil
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(chatID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[chatID]
	return req, ok
}

func (b *Bot) setConfirmation(chatID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = req
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

func (b *Bot) setListing(chatID int64, ids []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listings[chatID] = ids
}

func (b *Bot) getListing(chatID int64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listings[chatID]
}

func (b *Bot) forgetChat(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
	delete(b.confirmations, chatID)
	delete(b.listings, chatID)
}

func sessionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func displayName(p model.Profile) string {
	if p.Name != "" {
		return p.Name
	}
	if local := strings.Split(p.Email, "@")[0]; local != "" {
		return local
	}
	return "Utilisateur"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}
