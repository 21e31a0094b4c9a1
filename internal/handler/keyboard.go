package handler

import (
	"strings"

	tele "gopkg.in/telebot.v3"

	"habit-tracker-bot/internal/model"
)

// Callback data of the /pass keyboard.
const (
	CallbackPassLazy  = "pass_lazy"
	CallbackPassForce = "pass_force"
)

// BuildPassPanel creates the pass reason keyboard.
func BuildPassPanel() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	lazyBtn := markup.Data("😴 Лень / забыл", CallbackPassLazy)
	forceBtn := markup.Data("🛡 Форс-мажор", CallbackPassForce)

	markup.Inline(
		markup.Row(lazyBtn),
		markup.Row(forceBtn),
	)
	return markup
}

// TrimCallbackData strips the marker telebot prepends to button data
// and drops the payload after the unique part.
func TrimCallbackData(data string) string {
	data = strings.TrimPrefix(data, "\f")
	if i := strings.IndexByte(data, '|'); i >= 0 {
		data = data[:i]
	}
	return data
}

// PassActionOf maps callback data to the pass action it records.
func PassActionOf(data string) (model.ActionKind, bool) {
	switch TrimCallbackData(data) {
	case CallbackPassLazy:
		return model.ActionPass, true
	case CallbackPassForce:
		return model.ActionForceMajeure, true
	}
	return "", false
}

// IsPassCallback reports whether the callback belongs to the pass keyboard.
func IsPassCallback(data string) bool {
	return strings.HasPrefix(TrimCallbackData(data), "pass_")
}
