package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"habit-tracker-bot/internal/model"
)

// memberAPI is the part of *tele.Bot used for profile lookups.
type memberAPI interface {
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// Profiles resolves chat members through getChatMember.
type Profiles struct {
	api memberAPI
}

// NewProfiles creates a Profiles lookup backed by the bot API.
func NewProfiles(api memberAPI) *Profiles {
	return &Profiles{api: api}
}

// LookupProfile returns the member's display name and handle.
func (p *Profiles) LookupProfile(_ context.Context, chatID, userID int64) (model.Profile, error) {
	member, err := p.api.ChatMemberOf(&tele.Chat{ID: chatID}, &tele.User{ID: userID})
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to get chat member %d: %w", userID, err)
	}
	if member == nil || member.User == nil {
		return model.Profile{}, fmt.Errorf("chat member %d has no user", userID)
	}
	return ProfileOf(member.User), nil
}

// ProfileOf builds a Profile from a Telegram user.
func ProfileOf(u *tele.User) model.Profile {
	if u == nil {
		return model.Profile{}
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	return model.Profile{DisplayName: name, Handle: u.Username}
}

// mention resolves a user for display, falling back to the id.
func (p *Profiles) mention(ctx context.Context, chatID, userID int64) string {
	profile, err := p.LookupProfile(ctx, chatID, userID)
	if err != nil {
		return Mention(model.Profile{}, userID)
	}
	return Mention(profile, userID)
}
