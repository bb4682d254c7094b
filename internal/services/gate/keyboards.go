package gate

import (
	"strings"

	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

// Данные callback-кнопок навигации.
const (
	cbRegister       = "reg"
	cbCommands       = "commands"
	cbGates          = "gate"
	cbCardGate       = "ccn"
	cbBatchGate      = "mccn"
	cbCredits        = "credits"
	cbBackToCommands = "back_to_commands"
	cbBackToMenu     = "back_to_menu"
	cbClose          = "close"
)

func kbStart(registered bool) *telegram.InlineKeyboardMarkup {
	if !registered {
		return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "📝 Register", CallbackData: cbRegister}},
		}}
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{
			{Text: "🧭 Commands", CallbackData: cbCommands},
			{Text: "✖️ Close", CallbackData: cbClose},
		},
	}}
}

func kbCommands() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{
			{Text: "🛠️ Gates", CallbackData: cbGates},
			{Text: "💰 Credits", CallbackData: cbCredits},
			{Text: "✖️ Close", CallbackData: cbClose},
		},
	}}
}

func kbGates() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{
			{Text: "⚡ CCN", CallbackData: cbCardGate},
			{Text: "📦 MASS CCN", CallbackData: cbBatchGate},
		},
		{
			{Text: "⬅️ Back", CallbackData: cbBackToCommands},
		},
	}}
}

func kbBack() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{{Text: "⬅️ Back", CallbackData: cbBackToCommands}},
	}}
}

func kbContactBack(ownerUsername string) *telegram.InlineKeyboardMarkup {
	url := "https://t.me/"
	if ownerUsername != "" {
		url += strings.TrimPrefix(ownerUsername, "@")
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{{Text: "📨 Contact Owner", URL: url}},
		{{Text: "🏠 Back to Menu", CallbackData: cbBackToMenu}},
	}}
}
