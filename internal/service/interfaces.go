// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"time"

	"habit-tracker-bot/internal/catalog"
	"habit-tracker-bot/internal/model"
)

// ErrMalformedInput is returned for requests that no state transition accepts.
var ErrMalformedInput = errors.New("malformed input")

// Minimal repository contracts used by the services.

type ActivityStore interface {
	Record(ctx context.Context, rec *model.ActivityRecord) error
	List(ctx context.Context, userID, chatID int64, filter model.ActivityFilter) ([]model.ActivityRecord, error)
	ExistsOn(ctx context.Context, userID int64, date time.Time) (bool, error)
	LastBefore(ctx context.Context, userID, chatID int64, date time.Time) (*model.ActivityRecord, error)
	OtherUsers(ctx context.Context, chatID, excludeUserID int64) ([]int64, error)
	CountByAction(ctx context.Context, userID, chatID int64) (map[model.ActionKind]int, error)
}

type IntentStore interface {
	SetIntent(ctx context.Context, userID int64, intent model.Intent) error
	ConsumeIntent(ctx context.Context, userID int64) (model.Intent, bool, error)
}

type RatingStore interface {
	Get(ctx context.Context, userID int64) (float64, bool, error)
	Save(ctx context.Context, userID int64, value float64) error
}

type ProgressStore interface {
	GetLevel(ctx context.Context, userID int64) (*model.LevelState, error)
	SaveLevel(ctx context.Context, st *model.LevelState) error
	GrantAchievement(ctx context.Context, userID int64, id catalog.AchievementID) (bool, error)
	ListAchievements(ctx context.Context, userID int64) ([]catalog.AchievementID, error)
}

// ProfileLookup resolves a chat member's display name and handle.
type ProfileLookup interface {
	LookupProfile(ctx context.Context, chatID, userID int64) (model.Profile, error)
}

// localDay splits an event timestamp into the civil date and time of day in loc.
func localDay(at time.Time, loc *time.Location) (time.Time, model.Clock) {
	local := at.In(loc)
	return model.CivilDate(local), model.ClockOf(local)
}
