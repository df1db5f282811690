package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"daily-tracker/internal/service"
)

const (
	cbTogglePrefix = "toggle:"
	cbEditPrefix   = "edit:"
	cbDeletePrefix = "delete:"
	cbFilterPrefix = "filter:"
	cbSort         = "sort"
)

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	return b.sendList(ctx, msg.Chat.ID, msg.From.ID)
}

func (b *Bot) sendList(ctx context.Context, chatID, ownerID int64) error {
	m, err := b.manager(ctx, chatID, ownerID)
	if err != nil {
		return nil
	}

	view := b.getView(ownerID)
	activities := m.View(view.filter, view.order)

	msg := tgbotapi.NewMessage(chatID, formatList(activities, view))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = listKeyboard(activities, view)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleFilter(ctx context.Context, msg *tgbotapi.Message) error {
	filter, err := service.ParseStatusFilter(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	view := b.getView(msg.From.ID)
	view.filter = filter
	b.setView(msg.From.ID, view)
	return b.sendList(ctx, msg.Chat.ID, msg.From.ID)
}

func (b *Bot) handleSort(ctx context.Context, msg *tgbotapi.Message) error {
	b.cycleSort(msg.From.ID)
	return b.sendList(ctx, msg.Chat.ID, msg.From.ID)
}

func (b *Bot) cycleSort(userID int64) {
	view := b.getView(userID)
	view.order = view.order.Next()
	b.setView(userID, view)
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Give the activity id: /done 1758877200000")
	}
	return b.toggleAndRefresh(ctx, msg.Chat.ID, msg.From.ID, id)
}

func (b *Bot) toggleAndRefresh(ctx context.Context, chatID, ownerID int64, id string) error {
	m, err := b.manager(ctx, chatID, ownerID)
	if err != nil {
		return nil
	}

	found, err := m.ToggleDone(ctx, id)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the activity: %s", escape(err.Error())))
	}
	if !found {
		return b.sendText(chatID, "Activity not found.")
	}
	b.log.Info("activity toggled", "user", ownerID, "id", id)
	return b.sendList(ctx, chatID, ownerID)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Give the activity id: /delete 1758877200000")
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From, id)
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, id string) error {
	m, err := b.manager(ctx, chatID, from.ID)
	if err != nil {
		return nil
	}
	activity, ok := m.Find(id)
	if !ok {
		return b.sendText(chatID, "Activity not found.")
	}

	b.clearConversation(from.ID)
	b.setConfirmation(from.ID, id)
	text := fmt.Sprintf("Delete «%s» (%s)?", escape(activity.Task), escape(activity.Time))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, id string) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.deleteAndRefresh(ctx, msg.Chat.ID, msg.From.ID, id)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Nothing was deleted.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) deleteAndRefresh(ctx context.Context, chatID, ownerID int64, id string) error {
	m, err := b.manager(ctx, chatID, ownerID)
	if err != nil {
		return nil
	}

	activity, _ := m.Find(id)
	found, err := m.Delete(ctx, id)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not delete the activity: %s", escape(err.Error())))
	}
	if !found {
		return b.sendText(chatID, "Activity not found or already deleted.")
	}

	if err := b.sendText(chatID, fmt.Sprintf("🗑 «%s» deleted.", escape(activity.Task))); err != nil {
		return err
	}
	return b.sendList(ctx, chatID, ownerID)
}

func (b *Bot) handleNotify(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	var muted bool
	switch strings.ToLower(strings.TrimSpace(msg.CommandArguments())) {
	case "on":
		muted = false
	case "off":
		muted = true
	default:
		return b.sendText(msg.Chat.ID, "Use /notify on or /notify off.")
	}

	if err := b.users.SetRemindersMuted(ctx, msg.From.ID, muted); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(msg.Chat.ID, "Send /start first.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not update reminders: %s", escape(err.Error())))
	}

	b.log.Info("reminder permission changed", "user", msg.From.ID, "muted", muted)
	if muted {
		return b.sendText(msg.Chat.ID, "🔕 Reminders are off. New activities will not be reminded.")
	}
	return b.sendText(msg.Chat.ID, "🔔 Reminders are on.")
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	b.log.Debug("callback", "user", cb.From.ID, "data", data)

	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		b.ack(cb, "")
		return b.toggleAndRefresh(ctx, chatID, cb.From.ID, strings.TrimPrefix(data, cbTogglePrefix))
	case strings.HasPrefix(data, cbEditPrefix):
		b.ack(cb, "")
		return b.beginEdit(ctx, chatID, cb.From, strings.TrimPrefix(data, cbEditPrefix))
	case strings.HasPrefix(data, cbDeletePrefix):
		b.ack(cb, "")
		return b.askDeleteConfirmation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbDeletePrefix))
	case strings.HasPrefix(data, cbFilterPrefix):
		filter, err := service.ParseStatusFilter(strings.TrimPrefix(data, cbFilterPrefix))
		if err != nil {
			b.ack(cb, "")
			return nil
		}
		b.ack(cb, filterLabel(filter))
		view := b.getView(cb.From.ID)
		view.filter = filter
		b.setView(cb.From.ID, view)
		return b.sendList(ctx, chatID, cb.From.ID)
	case data == cbSort:
		b.cycleSort(cb.From.ID)
		b.ack(cb, sortLabel(b.getView(cb.From.ID).order))
		return b.sendList(ctx, chatID, cb.From.ID)
	default:
		b.ack(cb, "")
		return nil
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNew):
		return true, b.startNewConversation(ctx, msg)
	case strings.ToLower(menuLabelList):
		return true, b.handleList(ctx, msg)
	case strings.ToLower(menuLabelReport):
		return true, b.handleReport(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}
