package bot

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"habit-tracker-bot/internal/config"
	"habit-tracker-bot/internal/metrics"
)

// SeenUsers tracks users who have written in a whitelisted group.
// Only they may talk to the bot in private.
type SeenUsers struct {
	mu    sync.RWMutex
	users map[int64]bool
}

// NewSeenUsers creates an empty SeenUsers set.
func NewSeenUsers() *SeenUsers {
	return &SeenUsers{users: make(map[int64]bool)}
}

// Add marks a user as seen.
func (s *SeenUsers) Add(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = true
}

// Has reports whether the user was seen.
func (s *SeenUsers) Has(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID]
}

// Allowed decides whether an update from sender in chat is processed.
func Allowed(cfg *config.Config, seen *SeenUsers, chat *tele.Chat, sender *tele.User) bool {
	if chat == nil || sender == nil {
		return false
	}
	if chat.Type == tele.ChatPrivate {
		return len(cfg.Whitelist.Chats) == 0 || seen.Has(sender.ID)
	}
	return cfg.IsChatAllowed(chat.ID)
}

// WhitelistMiddleware drops updates from chats outside the whitelist.
func WhitelistMiddleware(cfg *config.Config, seen *SeenUsers) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if !Allowed(cfg, seen, chat, sender) {
				if chat != nil {
					log.Debug().
						Int64("chat_id", chat.ID).
						Str("chat_type", string(chat.Type)).
						Msg("Ignoring update from non-whitelisted chat")
				}
				return nil
			}

			if chat.Type != tele.ChatPrivate {
				seen.Add(sender.ID)
			}
			return next(c)
		}
	}
}

// LoggingMiddleware logs all incoming updates.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("op", OperationName(c)).
				Msg("Received update")

			return next(c)
		}
	}
}

// ErrorBoundaryMiddleware logs handler errors with the operation name and
// swallows them so that one failed event never reaches the poller.
func ErrorBoundaryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			op := OperationName(c)
			metrics.HandlerErrorsTotal.WithLabelValues(op).Inc()
			logEvent := log.Error().Err(err).Str("op", op)
			if sender := c.Sender(); sender != nil {
				logEvent = logEvent.Int64("user_id", sender.ID)
			}
			logEvent.Msg("Handler failed")
			return nil
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					op := OperationName(c)
					metrics.HandlerErrorsTotal.WithLabelValues(op).Inc()
					log.Error().
						Interface("panic", r).
						Str("op", op).
						Msg("Recovered from panic in handler")
					err = nil
				}
			}()
			return next(c)
		}
	}
}

// OperationName names the update for logs and metrics: the command,
// "callback" or the media kind.
func OperationName(c tele.Context) string {
	if c.Callback() != nil {
		return "callback"
	}
	msg := c.Message()
	if msg == nil {
		return "update"
	}
	if strings.HasPrefix(msg.Text, "/") {
		cmd := strings.Fields(msg.Text)[0]
		if i := strings.IndexByte(cmd, '@'); i >= 0 {
			cmd = cmd[:i]
		}
		return cmd
	}
	switch {
	case msg.Photo != nil:
		return "photo"
	case msg.Video != nil:
		return "video"
	case msg.Animation != nil:
		return "animation"
	case msg.Document != nil:
		return "document"
	case msg.Audio != nil:
		return "audio"
	case msg.Voice != nil:
		return "voice"
	case msg.Sticker != nil:
		return "sticker"
	case msg.VideoNote != nil:
		return "video_note"
	}
	return "message"
}
