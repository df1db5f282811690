package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-tracker/internal/model"
	"daily-tracker/internal/parser"
	"daily-tracker/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTask
	stageCategory
	stageHours
	stageMinutes
	stageDate
	stageTime
	stageReminderHours
	stageReminderMinutes
	stageEditTask
	stageEditHours
	stageEditMinutes
)

type conversationState struct {
	stage  conversationStage
	input  service.AddInput
	editID string
}

func (b *Bot) startNewConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	if _, err := b.manager(ctx, msg.Chat.ID, msg.From.ID); err != nil {
		return nil
	}
	b.clearConfirmation(msg.From.ID)
	b.log.Info("start new activity conversation", "user", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTask})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New activity.\n<b>Step 1:</b> what is the task?", cancelKeyboard())
}

func (b *Bot) startEditConversation(ctx context.Context, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Give the activity id: /edit 1758877200000")
	}
	return b.beginEdit(ctx, msg.Chat.ID, msg.From, id)
}

func (b *Bot) beginEdit(ctx context.Context, chatID int64, from *tgbotapi.User, id string) error {
	m, err := b.manager(ctx, chatID, from.ID)
	if err != nil {
		return nil
	}
	activity, ok := m.Find(id)
	if !ok {
		return b.sendText(chatID, "Activity not found.")
	}

	b.clearConfirmation(from.ID)
	hours, minutes := int(activity.Duration)/60, int(activity.Duration)%60
	b.setConversation(from.ID, &conversationState{
		stage:  stageEditTask,
		editID: id,
		input: service.AddInput{
			Task:    activity.Task,
			Hours:   strconv.Itoa(hours),
			Minutes: strconv.Itoa(minutes),
		},
	})
	text := fmt.Sprintf("✏️ Editing «%s».\nSend the new task name (or «Skip» to keep it).", escape(activity.Task))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	skip := isSkipInput(text)
	switch state.stage {
	case stageTask:
		state.input.Task = text
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Pick a category (or «Skip» for Study).", categoryKeyboard())
	case stageCategory:
		state.input.Category = model.CategoryStudy
		if !skip {
			category, err := model.ParseCategory(stripIcon(text))
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Choose Study or Training.", categoryKeyboard())
			}
			state.input.Category = category
		}
		state.stage = stageHours
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏱ Duration: how many <b>hours</b>? (or «Skip» for 0)", skipKeyboard())
	case stageHours:
		if !skip {
			state.input.Hours = text
		}
		state.stage = stageMinutes
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏱ And how many <b>minutes</b>? (or «Skip» for 0)", skipKeyboard())
	case stageMinutes:
		if !skip {
			state.input.Minutes = text
		}
		state.stage = stageDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "📅 Which day? <code>26/09/2025</code>, today or tomorrow (or «Skip» for today).", skipKeyboard())
	case stageDate:
		now := b.now().In(b.config.Location)
		if skip {
			text = "today"
		}
		date, err := parser.ParseDate(text, now)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("%s.", escape(err.Error())), skipKeyboard())
		}
		state.input.Date = date
		state.stage = stageTime
		return b.sendWithReplyMarkup(msg.Chat.ID, "🕒 At what time? <code>15:45</code> (or «Skip» for now).", skipKeyboard())
	case stageTime:
		if skip {
			state.input.Clock = b.now().In(b.config.Location)
		} else {
			clock, err := parser.ParseClock(text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("%s.", escape(err.Error())), skipKeyboard())
			}
			state.input.Clock = clock
		}
		state.stage = stageReminderHours
		prompt := fmt.Sprintf("🔔 Remind me how many <b>hours</b> before? (or «Skip» for %d)", b.config.ReminderHours)
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, skipKeyboard())
	case stageReminderHours:
		state.input.ReminderHours = strconv.Itoa(b.config.ReminderHours)
		if !skip {
			state.input.ReminderHours = text
		}
		state.stage = stageReminderMinutes
		prompt := fmt.Sprintf("🔔 And how many <b>minutes</b> before? (or «Skip» for %d)", b.config.ReminderMinutes)
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, skipKeyboard())
	case stageReminderMinutes:
		state.input.ReminderMinutes = strconv.Itoa(b.config.ReminderMinutes)
		if !skip {
			state.input.ReminderMinutes = text
		}
		b.clearConversation(msg.From.ID)
		return b.finishAdd(ctx, msg.Chat.ID, msg.From.ID, state.input)
	case stageEditTask:
		if !skip {
			state.input.Task = text
		}
		state.stage = stageEditHours
		prompt := fmt.Sprintf("⏱ Hours? (or «Skip» to keep %s)", escape(state.input.Hours))
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, skipKeyboard())
	case stageEditHours:
		if !skip {
			state.input.Hours = text
		}
		state.stage = stageEditMinutes
		prompt := fmt.Sprintf("⏱ Minutes? (or «Skip» to keep %s)", escape(state.input.Minutes))
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, skipKeyboard())
	case stageEditMinutes:
		if !skip {
			state.input.Minutes = text
		}
		b.clearConversation(msg.From.ID)
		return b.finishEdit(ctx, msg.Chat.ID, msg.From.ID, state.editID, state.input)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Start again with /new.")
	}
}

func (b *Bot) finishAdd(ctx context.Context, chatID, ownerID int64, input service.AddInput) error {
	m, err := b.manager(ctx, chatID, ownerID)
	if err != nil {
		return nil
	}

	res, err := m.Add(ctx, input)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return b.sendText(chatID, "⚠️ Please "+escape(err.Error())+". Start again with /new.")
		}
		return b.sendText(chatID, fmt.Sprintf("Could not save the activity: %s", escape(err.Error())))
	}

	if err := b.sendText(chatID, formatAddResult(res)); err != nil {
		return err
	}
	return b.sendList(ctx, chatID, ownerID)
}

func (b *Bot) finishEdit(ctx context.Context, chatID, ownerID int64, id string, input service.AddInput) error {
	m, err := b.manager(ctx, chatID, ownerID)
	if err != nil {
		return nil
	}

	activity, err := m.Edit(ctx, id, input.Task, input.Hours, input.Minutes)
	switch {
	case errors.Is(err, service.ErrValidation):
		return b.sendText(chatID, "⚠️ Please "+escape(err.Error())+". Nothing was changed.")
	case errors.Is(err, service.ErrActivityNotFound):
		return b.sendText(chatID, "Activity not found. It may have been deleted.")
	case err != nil:
		return b.sendText(chatID, fmt.Sprintf("Could not save the activity: %s", escape(err.Error())))
	}

	b.log.Info("activity edited", "user", ownerID, "id", activity.ID)
	text := fmt.Sprintf("✏️ Saved «%s», %s.", escape(activity.Task), service.FormatMinutes(int(activity.Duration)))
	if err := b.sendText(chatID, text); err != nil {
		return err
	}
	return b.sendList(ctx, chatID, ownerID)
}
