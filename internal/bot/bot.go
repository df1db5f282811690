package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-tracker/internal/config"
	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
	"daily-tracker/internal/service"
)

// messenger is the part of the Telegram API the bot talks to.
type messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// viewState is the filter and sort order a chat is looking at.
type viewState struct {
	filter service.StatusFilter
	order  service.SortOrder
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           messenger
	users         *repository.UserRepository
	sessions      *service.SessionRegistry
	digests       *service.DigestService
	config        *config.Config
	log           *slog.Logger
	now           func() time.Time
	conversations map[int64]*conversationState
	confirmations map[int64]string
	views         map[int64]viewState
	mu            sync.Mutex
}

func New(token string, users *repository.UserRepository, sessions *service.SessionRegistry, digests *service.DigestService, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("bot authorized", "account", api.Self.UserName)
	return newBot(api, users, sessions, digests, cfg, log), nil
}

func newBot(api messenger, users *repository.UserRepository, sessions *service.SessionRegistry, digests *service.DigestService, cfg *config.Config, log *slog.Logger) *Bot {
	return &Bot{
		api:           api,
		users:         users,
		sessions:      sessions,
		digests:       digests,
		config:        cfg,
		log:           log,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]string),
		views:         make(map[int64]viewState),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error("handle callback", "err", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error("handle message", "err", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Info("command", "user", msg.From.ID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if id, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, id)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Send /new to add an activity or /help for the list of commands.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "new":
		return b.startNewConversation(ctx, msg)
	case "list":
		return b.handleList(ctx, msg)
	case "filter":
		return b.handleFilter(ctx, msg)
	case "sort":
		return b.handleSort(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "edit":
		return b.startEditConversation(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "notify":
		return b.handleNotify(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	m, err := b.manager(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		return nil
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	perm, err := m.RequestReminderPermission(ctx)
	if err != nil {
		b.log.Warn("request reminder permission", "user", msg.From.ID, "err", err)
	}
	var reminders string
	if perm != service.PermissionGranted {
		reminders = "🔕 Reminders are off, so nothing will be scheduled. Turn them on with /notify on."
	} else {
		reminders = "🔔 Reminders are on. I will message you before your activities start."
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep track of your daily study and training activities.</b>\n\n%s\n\n%s",
		escape(name), reminders, helpText)
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "Commands:\n" +
	"• /new — add an activity step by step\n" +
	"• /list — show activities\n" +
	"• /filter all|pending|done — choose which activities are listed\n" +
	"• /sort — cycle the order: as added, A→Z, Z→A\n" +
	"• /done &lt;id&gt; — mark done or pending again\n" +
	"• /edit &lt;id&gt; — change name and duration\n" +
	"• /delete &lt;id&gt; — delete after confirmation\n" +
	"• /notify on|off — turn reminders on or off\n" +
	"• /report — summary of pending activities\n" +
	"• /cancel — cancel the current input"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+helpText)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.digests.DailySummary(ctx, *user, b.now())
	if err != nil {
		return b.sendLoadError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

// SendDailyReports sends a digest to every user with reminders on.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.users.ListAll(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.RemindersMuted {
			continue
		}
		text, err := b.digests.DailySummary(ctx, user, now)
		if err != nil {
			b.log.Error("build digest", "user", user.TelegramID, "err", err)
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			b.log.Error("send digest", "user", user.TelegramID, "err", err)
		}
	}
	return nil
}

// SendReminder delivers a fired reminder to the chat of ownerID.
func (b *Bot) SendReminder(ownerID int64, title, body string) error {
	return b.sendText(ownerID, fmt.Sprintf("🔔 <b>%s</b>\n%s", escape(title), escape(body)))
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

// manager returns the session manager of ownerID. A collection that cannot
// be read is reported to the chat and returned as an error.
func (b *Bot) manager(ctx context.Context, chatID, ownerID int64) (*service.SessionManager, error) {
	m, err := b.sessions.For(ctx, ownerID)
	if err != nil {
		b.log.Error("load activities", "user", ownerID, "err", err)
		if sendErr := b.sendLoadError(chatID, err); sendErr != nil {
			return nil, sendErr
		}
		return nil, err
	}
	return m, nil
}

func (b *Bot) sendLoadError(chatID int64, err error) error {
	if errors.Is(err, service.ErrCorruptSessions) {
		return b.sendText(chatID, "⚠️ Your saved activities could not be read. Nothing was changed; please contact the bot owner.")
	}
	return b.sendText(chatID, fmt.Sprintf("Could not load activities: %s", escape(err.Error())))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
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

func (b *Bot) ack(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		b.log.Warn("callback ack", "err", err)
	}
}

func (b *Bot) getConfirmation(userID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.confirmations[userID]
	return id, ok
}

func (b *Bot) setConfirmation(userID int64, activityID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = activityID
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func (b *Bot) getView(userID int64) viewState {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.views[userID]
	if !ok {
		return viewState{filter: service.FilterAll, order: service.SortDefault}
	}
	return v
}

func (b *Bot) setView(userID int64, v viewState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.views[userID] = v
}
