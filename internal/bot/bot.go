// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"habit-tracker-bot/internal/config"
	"habit-tracker-bot/internal/handler"
	"habit-tracker-bot/internal/metrics"
)

// Bot wraps the telebot instance with application handlers.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	checkinHandler *handler.CheckinHandler
	statsHandler   *handler.StatsHandler
}

// Handlers holds the command handlers registered on the bot.
type Handlers struct {
	Checkin *handler.CheckinHandler
	Stats   *handler.StatsHandler
}

// NewTelebot creates the telebot client. It is built before the services
// because profile lookups go through its API.
func NewTelebot(cfg *config.Config) (*tele.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:       cfg.Bot.Token,
		Poller:      &tele.LongPoller{Timeout: cfg.Bot.PollTimeout},
		Synchronous: cfg.Bot.Synchronous,
		OnError:     onError,
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// onError is the last resort for errors that escape the middleware chain.
func onError(err error, c tele.Context) {
	op := "unknown"
	if c != nil {
		op = OperationName(c)
	}
	metrics.HandlerErrorsTotal.WithLabelValues(op).Inc()
	log.Error().Err(err).Str("op", op).Msg("Unhandled bot error")
}

// New registers middleware and handlers on an existing telebot client.
func New(teleBot *tele.Bot, cfg *config.Config, handlers *Handlers) *Bot {
	b := &Bot{
		bot:            teleBot,
		cfg:            cfg,
		checkinHandler: handlers.Checkin,
		statsHandler:   handlers.Stats,
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(ErrorBoundaryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, NewSeenUsers()))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command, media and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.statsHandler.HandleStart)
	b.bot.Handle("/help", b.statsHandler.HandleHelp)
	b.bot.Handle("/stat", b.statsHandler.HandleStat)
	b.bot.Handle("/gift", b.statsHandler.HandleGift)
	b.bot.Handle("/plan", b.statsHandler.HandlePlan)

	b.bot.Handle("/check", b.checkinHandler.HandleCheck)
	b.bot.Handle("/debt", b.checkinHandler.HandleDebt)
	b.bot.Handle("/pass", b.checkinHandler.HandlePass)

	for _, endpoint := range MediaEndpoints {
		b.bot.Handle(endpoint, b.checkinHandler.HandleMedia)
	}

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// MediaEndpoints are the update kinds that may carry proof.
var MediaEndpoints = []string{
	tele.OnPhoto,
	tele.OnVideo,
	tele.OnDocument,
	tele.OnAudio,
	tele.OnVoice,
	tele.OnAnimation,
	tele.OnSticker,
	tele.OnVideoNote,
}

// handleCallback routes callbacks to the handler owning the keyboard.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	log.Debug().Str("raw_data", callback.Data).Msg("Callback received")

	if handler.IsPassCallback(callback.Data) {
		return b.checkinHandler.HandlePassCallback(c)
	}
	return c.Respond(&tele.CallbackResponse{})
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
