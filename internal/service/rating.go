package service

import (
	"context"
	"fmt"
	"math"
)

// Signal is the input of one rating update.
type Signal float64

const (
	// SignalSuccess is applied after every committed workout.
	SignalSuccess Signal = 1
	// SignalMiss is applied when a gap is detected or a lazy pass is taken.
	SignalMiss Signal = -1
	// SignalNeutral only reads the rating, creating the default one if missing.
	SignalNeutral Signal = math.MaxFloat64

	// DefaultRating is the prior of users without a stored rating.
	DefaultRating = 100.0
	// DefaultRatingAlpha is the smoothing factor.
	DefaultRatingAlpha = 0.01

	minRating = 0.0
	maxRating = 100.0
)

// Smooth applies one exponential smoothing step and clamps the result.
func Smooth(prior float64, signal Signal, alpha float64) float64 {
	if math.IsNaN(prior) || math.IsInf(prior, 0) {
		prior = DefaultRating
	}
	prior = clamp(prior, minRating, maxRating)
	if signal == SignalNeutral || math.IsNaN(float64(signal)) || math.IsInf(float64(signal), 0) {
		return prior
	}

	next := (1-alpha)*prior + alpha*float64(signal)
	if math.IsNaN(next) {
		return prior
	}
	return clamp(next, minRating, maxRating)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// RatingService keeps the smoothed rating of each user.
type RatingService struct {
	store RatingStore
	alpha float64
}

// NewRatingService creates a RatingService. Out-of-range alpha falls back to the default.
func NewRatingService(store RatingStore, alpha float64) *RatingService {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultRatingAlpha
	}
	return &RatingService{store: store, alpha: alpha}
}

// Update applies signal to the user's rating and returns the new value.
// SignalNeutral returns the current value and only writes when the user had none.
func (s *RatingService) Update(ctx context.Context, userID int64, signal Signal) (float64, error) {
	prior, found, err := s.store.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to read rating: %w", err)
	}
	if !found {
		prior = DefaultRating
	}

	next := Smooth(prior, signal, s.alpha)
	if signal == SignalNeutral && found && next == prior {
		return next, nil
	}

	if err := s.store.Save(ctx, userID, next); err != nil {
		return 0, fmt.Errorf("failed to update rating: %w", err)
	}
	return next, nil
}
