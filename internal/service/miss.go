package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"habit-tracker-bot/internal/metrics"
	"habit-tracker-bot/internal/model"
	"habit-tracker-bot/internal/repository"
)

// Miss describes a detected gap before a new record.
type Miss struct {
	PreviousDate time.Time
	GiftTo       int64
	HasGift      bool
	Rating       float64
}

// MissDetector decides whether a new record follows a gap.
type MissDetector struct {
	activity ActivityStore
	gifts    *GiftService
	rating   *RatingService
}

// NewMissDetector creates a new MissDetector instance.
func NewMissDetector(activity ActivityStore, gifts *GiftService, rating *RatingService) *MissDetector {
	return &MissDetector{activity: activity, gifts: gifts, rating: rating}
}

// Check looks at the latest record strictly before recordDate, of any action kind.
// A miss fires when such a record exists and is not on the previous day.
// Users with no earlier record never miss.
func (d *MissDetector) Check(ctx context.Context, userID, chatID int64, recordDate time.Time) (*Miss, error) {
	prior, err := d.activity.LastBefore(ctx, userID, chatID, recordDate)
	if err != nil {
		if errors.Is(err, repository.ErrNoActivity) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find previous record: %w", err)
	}
	if model.SameDay(prior.Date, recordDate.AddDate(0, 0, -1)) {
		return nil, nil
	}

	miss := &Miss{PreviousDate: prior.Date}
	miss.GiftTo, miss.HasGift, err = d.gifts.Pick(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	miss.Rating, err = d.rating.Update(ctx, userID, SignalMiss)
	if err != nil {
		return nil, err
	}

	metrics.MissesTotal.Inc()
	log.Info().
		Int64("user_id", userID).
		Time("previous", prior.Date).
		Time("record", recordDate).
		Msg("Miss detected")
	return miss, nil
}
