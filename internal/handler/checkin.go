package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"habit-tracker-bot/internal/assets"
	"habit-tracker-bot/internal/model"
	"habit-tracker-bot/internal/pkg/lock"
	"habit-tracker-bot/internal/service"
)

const (
	lockTimeout    = 30 * time.Second
	handlerTimeout = time.Minute
)

// CheckinHandler handles /check, /debt, /pass and proof media.
type CheckinHandler struct {
	checkin  *service.CheckinService
	profiles *Profiles
	assets   *assets.Provider
	userLock *lock.UserLock
}

// NewCheckinHandler creates a new CheckinHandler.
func NewCheckinHandler(checkin *service.CheckinService, profiles *Profiles, media *assets.Provider, userLock *lock.UserLock) *CheckinHandler {
	return &CheckinHandler{
		checkin:  checkin,
		profiles: profiles,
		assets:   media,
		userLock: userLock,
	}
}

// HandleCheck handles the /check command.
func (h *CheckinHandler) HandleCheck(c tele.Context) error {
	return h.begin(c, model.IntentCheck)
}

// HandleDebt handles the /debt command.
func (h *CheckinHandler) HandleDebt(c tele.Context) error {
	return h.begin(c, model.IntentDebt)
}

func (h *CheckinHandler) begin(c tele.Context, intent model.Intent) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	var res *service.BeginResult
	err := h.userLock.WithLockContext(ctx, sender.ID, lockTimeout, func() error {
		var err error
		res, err = h.checkin.Begin(ctx, sender.ID, intent, eventTime(c))
		return err
	})
	if err != nil {
		return h.fail(c, err)
	}

	switch {
	case res.Status == service.BeginAlreadyRecorded && intent == model.IntentDebt:
		return reply(c, msgAlreadyYesterday)
	case res.Status == service.BeginAlreadyRecorded:
		return reply(c, msgAlreadyToday)
	case intent == model.IntentDebt:
		return reply(c, msgAwaitYesterday)
	default:
		return reply(c, msgAwaitToday)
	}
}

// HandleMedia handles every media message. Media without a pending
// intent, or for a day already recorded, is dropped without a reply.
func (h *CheckinHandler) HandleMedia(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	msg := c.Message()
	if sender == nil || chat == nil || msg == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	sub := service.Submission{
		UserID: sender.ID,
		ChatID: chat.ID,
		Proof:  ProofOf(msg),
		At:     eventTime(c),
	}

	var res *service.SubmitResult
	err := h.userLock.WithLockContext(ctx, sender.ID, lockTimeout, func() error {
		var err error
		res, err = h.checkin.Submit(ctx, sub)
		return err
	})
	if err != nil {
		return h.fail(c, err)
	}

	switch res.Status {
	case service.SubmitIgnored, service.SubmitDuplicate:
		return nil
	case service.SubmitWrongFormat:
		return reply(c, msgWrongFormat)
	}

	giftTo := ""
	if res.Miss != nil && res.Miss.HasGift {
		giftTo = h.profiles.mention(ctx, chat.ID, res.Miss.GiftTo)
	}
	if err := reply(c, FormatRecorded(res, giftTo)); err != nil {
		return err
	}

	if res.Progress != nil && res.Progress.LevelUp != nil {
		h.sendSticker(c)
	}
	return nil
}

// HandlePass handles the /pass command.
func (h *CheckinHandler) HandlePass(c tele.Context) error {
	return reply(c, msgPassPrompt, BuildPassPanel())
}

// HandlePassCallback handles the pass keyboard buttons.
func (h *CheckinHandler) HandlePassCallback(c tele.Context) error {
	callback := c.Callback()
	sender := c.Sender()
	chat := c.Chat()
	if callback == nil || sender == nil || chat == nil {
		return nil
	}

	action, ok := PassActionOf(callback.Data)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: msgUnknownAction})
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	var res *service.PassResult
	err := h.userLock.WithLockContext(ctx, sender.ID, lockTimeout, func() error {
		var err error
		res, err = h.checkin.Pass(ctx, sender.ID, chat.ID, action, time.Now())
		return err
	})
	if err != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: msgFailure})
		return err
	}

	var text string
	switch {
	case res.Status == service.PassAlreadyRecorded:
		text = msgPassAlready
	case action == model.ActionPass:
		text = fmt.Sprintf("%s\n📈 Рейтинг: %s", msgPassLazy, FormatRating(res.Rating))
	default:
		text = msgPassForce
	}

	_ = c.Respond(&tele.CallbackResponse{})
	if err := c.Delete(); err != nil {
		log.Warn().Err(err).Int64("chat_id", chat.ID).Msg("Failed to delete pass panel")
	}
	return send(c, fmt.Sprintf("%s: %s", Mention(ProfileOf(sender), sender.ID), text))
}

func (h *CheckinHandler) sendSticker(c tele.Context) {
	path, err := h.assets.Stickers.Random()
	if err != nil {
		log.Warn().Err(err).Msg("No sticker for level up")
		return
	}
	if err := send(c, &tele.Sticker{File: tele.FromDisk(path)}); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Failed to send sticker")
	}
}

// fail replies to the user and hands the error to the error boundary.
func (h *CheckinHandler) fail(c tele.Context, err error) error {
	if errors.Is(err, lock.ErrLockTimeout) {
		_ = reply(c, msgBusy)
		return err
	}
	_ = reply(c, msgFailure)
	return err
}

// ProofOf classifies the media carried by a message.
func ProofOf(msg *tele.Message) model.ProofKind {
	switch {
	case msg.Photo != nil:
		return model.ProofPhoto
	case msg.Video != nil:
		return model.ProofVideo
	case msg.Animation != nil, msg.Document != nil, msg.Audio != nil,
		msg.Voice != nil, msg.Sticker != nil, msg.VideoNote != nil:
		return model.ProofOther
	}
	return model.ProofNone
}

// eventTime returns the message timestamp, or now for updates without one.
func eventTime(c tele.Context) time.Time {
	if msg := c.Message(); msg != nil && msg.Unixtime != 0 {
		return msg.Time()
	}
	return time.Now()
}
