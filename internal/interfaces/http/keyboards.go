package http

import (
	"llamachat/internal/entities"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackNewChat     = "action_new"
	callbackModels      = "action_models"
	callbackModelPrefix = "model:"

	// maxCallbackData is the Telegram limit for inline button payloads.
	maxCallbackData = 64
)

// CreateFollowUpMenu creates the buttons shown under each reply
func CreateFollowUpMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆕 New chat", callbackNewChat),
			tgbotapi.NewInlineKeyboardButtonData("🤖 Models", callbackModels),
		),
	)
}

// CreateModelKeyboard lists selectable models, two per row.
// Models whose name does not fit in a callback payload are skipped.
func CreateModelKeyboard(models []entities.ModelInfo) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, m := range models {
		if m.Name == entities.NoModelsAvailable || len(callbackModelPrefix+m.Name) > maxCallbackData {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(m.Name, callbackModelPrefix+m.Name))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
