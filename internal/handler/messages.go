// Package handler provides Telegram bot command handlers.
package handler

import (
	"fmt"
	"strings"

	"habit-tracker-bot/internal/catalog"
	"habit-tracker-bot/internal/model"
	"habit-tracker-bot/internal/service"
)

// User-facing replies.
const (
	msgStart = "👋 Привет! Я считаю тренировки этого чата.\n\n" +
		"Каждый день присылай доказательство: /check, а потом фото или видео.\n" +
		"Полный список команд: /help"

	msgHelp = "📋 Команды\n" +
		"━━━━━━━━━━━━━━━\n" +
		"/check - отметить тренировку за сегодня\n" +
		"/debt - отметить тренировку за вчера\n" +
		"/pass - пропустить день\n" +
		"/stat - моя статистика\n" +
		"/gift - кому я должен подарок\n" +
		"/plan - план тренировки\n" +
		"━━━━━━━━━━━━━━━\n" +
		"После /check или /debt пришли одно фото или видео."

	msgAwaitToday       = "📸 Жду фото или видео тренировки за сегодня"
	msgAwaitYesterday   = "📸 Жду фото или видео тренировки за вчера"
	msgAlreadyToday     = "✅ Тренировка за сегодня уже записана"
	msgAlreadyYesterday = "✅ Тренировка за вчера уже записана"
	msgWrongFormat      = "❌ Нужно фото или видео. Начни заново: /check или /debt"
	msgRecorded         = "✅ Тренировка записана"
	msgPassPrompt       = "🤔 Почему пропускаешь сегодня?"
	msgPassLazy         = "😴 Пропуск записан, рейтинг снижен. Загляни в /gift"
	msgPassForce        = "🛡 Форс-мажор записан, рейтинг не изменился"
	msgPassAlready      = "⚠️ На сегодня уже есть запись"
	msgNoStats          = "📭 Пока нет записей. Загрузи первую тренировку: /check"
	msgNoGift           = "🎁 Дарить некому: в этом чате больше никто не тренируется"
	msgNoPlan           = "📭 Планов пока нет"
	msgBusy             = "⏳ Предыдущее сообщение ещё обрабатывается, попробуй чуть позже"
	msgFailure          = "❌ Что-то пошло не так, попробуй позже"
	msgUnknownAction    = "❌ Неизвестное действие"
)

// Mention renders a user reference, preferring the @handle.
func Mention(p model.Profile, userID int64) string {
	if p.Handle != "" {
		return "@" + p.Handle
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return fmt.Sprintf("id%d", userID)
}

// FormatRating renders a rating value.
func FormatRating(r float64) string {
	return fmt.Sprintf("%.2f", r)
}

// FormatRecorded renders the reply to a committed check-in.
// giftTo is the mention of the gift recipient and is used only after a miss.
func FormatRecorded(res *service.SubmitResult, giftTo string) string {
	var sb strings.Builder
	sb.WriteString(msgRecorded)
	if res.Record != nil {
		fmt.Fprintf(&sb, " (%s, %s)", res.Record.Date.Format("02.01.2006"), res.Record.Time)
	}
	fmt.Fprintf(&sb, "\n📈 Рейтинг: %s", FormatRating(res.Rating))

	for _, line := range res.Progress.Lines() {
		sb.WriteString("\n")
		sb.WriteString(line)
	}

	if res.Miss != nil {
		sb.WriteString("\n\n")
		sb.WriteString(FormatMiss(res.Miss, giftTo))
	}
	return sb.String()
}

// FormatMiss renders the missed-day notice.
func FormatMiss(m *service.Miss, giftTo string) string {
	msg := fmt.Sprintf("😱 Пропуск! Последняя запись была %s", m.PreviousDate.Format("02.01.2006"))
	if m.HasGift {
		msg += fmt.Sprintf("\n🎁 С тебя подарок для %s", giftTo)
	}
	return msg
}

// FormatStats renders a /stat report.
func FormatStats(st *service.Stats, who string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Статистика %s\n", who)
	sb.WriteString("━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&sb, "🏋️ Тренировок: %d\n", st.Tasks)
	fmt.Fprintf(&sb, "😴 Пропусков: %d\n", st.Passes)
	fmt.Fprintf(&sb, "🛡 Форс-мажоров: %d\n", st.ForceMajeure)
	fmt.Fprintf(&sb, "🔥 Серия: %d\n", st.Streak)
	fmt.Fprintf(&sb, "⭐ %s\n", st.LevelText)
	fmt.Fprintf(&sb, "📈 Рейтинг: %s\n", FormatRating(st.Rating))
	if len(st.Achievements) > 0 {
		sb.WriteString("━━━━━━━━━━━━━━━\n")
		for _, a := range st.Achievements {
			sb.WriteString(catalog.FormatAchievement(a))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatGift renders the /gift reply.
func FormatGift(from, to string) string {
	return fmt.Sprintf("🎁 %s дарит подарок %s", from, to)
}
