package handler

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"habit-tracker-bot/internal/assets"
	"habit-tracker-bot/internal/service"
)

// StatsHandler handles /stat, /gift and the informational commands.
type StatsHandler struct {
	stats    *service.StatsService
	gifts    *service.GiftService
	profiles *Profiles
	assets   *assets.Provider
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats *service.StatsService, gifts *service.GiftService, profiles *Profiles, media *assets.Provider) *StatsHandler {
	return &StatsHandler{
		stats:    stats,
		gifts:    gifts,
		profiles: profiles,
		assets:   media,
	}
}

// HandleStart handles the /start command.
func (h *StatsHandler) HandleStart(c tele.Context) error {
	return reply(c, msgStart)
}

// HandleHelp handles the /help command.
func (h *StatsHandler) HandleHelp(c tele.Context) error {
	return reply(c, msgHelp)
}

// HandleStat handles the /stat command.
func (h *StatsHandler) HandleStat(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	st, err := h.stats.Report(ctx, sender.ID, chat.ID, eventTime(c))
	if err != nil {
		_ = reply(c, msgFailure)
		return err
	}
	if st.Empty() {
		return reply(c, msgNoStats)
	}
	return reply(c, FormatStats(st, Mention(ProfileOf(sender), sender.ID)))
}

// HandleGift handles the /gift command.
func (h *StatsHandler) HandleGift(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	userID, ok, err := h.gifts.Pick(ctx, chat.ID, sender.ID)
	if err != nil {
		_ = reply(c, msgFailure)
		return err
	}
	if !ok {
		return reply(c, msgNoGift)
	}

	from := Mention(ProfileOf(sender), sender.ID)
	to := h.profiles.mention(ctx, chat.ID, userID)
	return reply(c, FormatGift(from, to))
}

// HandlePlan handles the /plan command by sending a random animation.
func (h *StatsHandler) HandlePlan(c tele.Context) error {
	path, err := h.assets.Animations.Random()
	if err != nil {
		log.Warn().Err(err).Msg("No animation for plan")
		return reply(c, msgNoPlan)
	}
	return reply(c, &tele.Animation{File: tele.FromDisk(path)})
}
