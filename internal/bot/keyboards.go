package bot

import (
	"fmt"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-tracker/internal/model"
	"daily-tracker/internal/service"
)

const (
	btnSkip          = "⏭️ Skip"
	btnConfirm       = "✅ Confirm"
	btnCancel        = "↩️ Cancel"
	btnCancelDialog  = "⏪ Cancel input"
	btnStudy         = "📚 Study"
	btnTraining      = "🏋️ Training"
	menuLabelNew     = "➕ New activity"
	menuLabelList    = "📋 Activities"
	menuLabelReport  = "📊 Report"
	menuLabelHelp    = "ℹ️ Help"
	shortTitleLength = 22
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNew),
			tgbotapi.NewKeyboardButton(menuLabelList),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelReport),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func categoryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStudy),
			tgbotapi.NewKeyboardButton(btnTraining),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// listKeyboard has one row per activity and the filter and sort controls.
func listKeyboard(activities []model.Activity, view viewState) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range activities {
		toggle := "✅ " + shortTitle(a.Task, shortTitleLength)
		if a.Done {
			toggle = "↩️ " + shortTitle(a.Task, shortTitleLength)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggle, cbTogglePrefix+a.ID),
			tgbotapi.NewInlineKeyboardButtonData("✏️", cbEditPrefix+a.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+a.ID),
		))
	}

	var filters []tgbotapi.InlineKeyboardButton
	for _, f := range []service.StatusFilter{service.FilterAll, service.FilterPending, service.FilterDone} {
		label := filterLabel(f)
		if f == view.filter {
			label = "• " + label
		}
		filters = append(filters, tgbotapi.NewInlineKeyboardButtonData(label, cbFilterPrefix+string(f)))
	}
	rows = append(rows, filters)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("↕️ Order: %s", sortLabel(view.order)), cbSort),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel input"
}

// stripIcon drops a leading emoji from a keyboard label.
func stripIcon(text string) string {
	return strings.TrimLeftFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
