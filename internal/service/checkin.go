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

// BeginStatus is the outcome of declaring an intent.
type BeginStatus int

const (
	BeginAwaitingProof BeginStatus = iota
	BeginAlreadyRecorded
)

// BeginResult is returned by CheckinService.Begin.
type BeginResult struct {
	Status BeginStatus
	Date   time.Time // day the proof will be recorded for
}

// SubmitStatus is the outcome of a media submission.
type SubmitStatus int

const (
	SubmitIgnored     SubmitStatus = iota // no pending intent
	SubmitWrongFormat                     // intent consumed, nothing recorded
	SubmitDuplicate                       // lost the race for the day
	SubmitRecorded
)

// Submission is a media message that may carry proof.
type Submission struct {
	UserID int64
	ChatID int64
	Proof  model.ProofKind
	At     time.Time
}

// SubmitResult is returned by CheckinService.Submit.
type SubmitResult struct {
	Status   SubmitStatus
	Intent   model.Intent
	Record   *model.ActivityRecord
	Rating   float64
	Progress *Progress
	Miss     *Miss
}

// PassStatus is the outcome of a pass request.
type PassStatus int

const (
	PassRecorded PassStatus = iota
	PassAlreadyRecorded
)

// PassResult is returned by CheckinService.Pass.
type PassResult struct {
	Status PassStatus
	Action model.ActionKind
	Rating float64
}

// CheckinService drives the per-user check-in state machine.
type CheckinService struct {
	activity    ActivityStore
	intents     IntentStore
	rating      *RatingService
	progression *ProgressionService
	misses      *MissDetector
	timezone    *time.Location
}

// NewCheckinService creates a new CheckinService instance.
func NewCheckinService(
	activity ActivityStore,
	intents IntentStore,
	rating *RatingService,
	progression *ProgressionService,
	misses *MissDetector,
	timezone *time.Location,
) *CheckinService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &CheckinService{
		activity:    activity,
		intents:     intents,
		rating:      rating,
		progression: progression,
		misses:      misses,
		timezone:    timezone,
	}
}

// targetDate returns the day an intent refers to.
func (s *CheckinService) targetDate(intent model.Intent, at time.Time) (time.Time, model.Clock) {
	today, clock := localDay(at, s.timezone)
	if intent == model.IntentDebt {
		return today.AddDate(0, 0, -1), clock
	}
	return today, clock
}

// Begin declares that proof for today (check) or yesterday (debt) will follow.
// The latest command always replaces a pending intent: when the day is
// already recorded the user is left idle.
func (s *CheckinService) Begin(ctx context.Context, userID int64, intent model.Intent, at time.Time) (*BeginResult, error) {
	if _, err := model.ParseIntent(string(intent)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	date, _ := s.targetDate(intent, at)
	exists, err := s.activity.ExistsOn(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing record: %w", err)
	}
	if exists {
		if _, _, err := s.intents.ConsumeIntent(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to clear intent: %w", err)
		}
		return &BeginResult{Status: BeginAlreadyRecorded, Date: date}, nil
	}

	if err := s.intents.SetIntent(ctx, userID, intent); err != nil {
		return nil, fmt.Errorf("failed to store intent: %w", err)
	}
	return &BeginResult{Status: BeginAwaitingProof, Date: date}, nil
}

// Submit consumes the pending intent and records the proof.
// A committed record is followed by the success signal, progression
// and miss detection, in that order.
func (s *CheckinService) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	intent, ok, err := s.intents.ConsumeIntent(ctx, sub.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume intent: %w", err)
	}
	if !ok {
		return &SubmitResult{Status: SubmitIgnored}, nil
	}
	if !sub.Proof.Valid() {
		return &SubmitResult{Status: SubmitWrongFormat, Intent: intent}, nil
	}

	date, clock := s.targetDate(intent, sub.At)
	rec := &model.ActivityRecord{
		UserID: sub.UserID,
		ChatID: sub.ChatID,
		Date:   date,
		Time:   clock,
		Action: model.ActionTask,
		Proof:  sub.Proof,
	}
	if err := s.activity.Record(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			metrics.DuplicateRecordsTotal.WithLabelValues(string(model.ActionTask)).Inc()
			log.Info().Int64("user_id", sub.UserID).Time("date", date).Msg("Record already added")
			return &SubmitResult{Status: SubmitDuplicate, Intent: intent}, nil
		}
		return nil, err
	}
	metrics.CheckinsTotal.WithLabelValues(string(sub.Proof)).Inc()

	result := &SubmitResult{Status: SubmitRecorded, Intent: intent, Record: rec}
	if result.Rating, err = s.rating.Update(ctx, sub.UserID, SignalSuccess); err != nil {
		return nil, err
	}
	if result.Progress, err = s.progression.Evaluate(ctx, sub.UserID, sub.ChatID); err != nil {
		return nil, err
	}
	if result.Miss, err = s.misses.Check(ctx, sub.UserID, sub.ChatID, date); err != nil {
		return nil, err
	}
	if result.Miss != nil {
		result.Rating = result.Miss.Rating
	}
	return result, nil
}

// Pass records a skipped day for today. Only pass and force majeure are accepted.
// A lazy pass applies the miss signal; force majeure leaves the rating alone.
func (s *CheckinService) Pass(ctx context.Context, userID, chatID int64, action model.ActionKind, at time.Time) (*PassResult, error) {
	if action != model.ActionPass && action != model.ActionForceMajeure {
		return nil, fmt.Errorf("%w: action %q cannot be recorded as a pass", ErrMalformedInput, action)
	}

	date, clock := localDay(at, s.timezone)
	rec := &model.ActivityRecord{
		UserID: userID,
		ChatID: chatID,
		Date:   date,
		Time:   clock,
		Action: action,
		Proof:  model.ProofNone,
	}
	if err := s.activity.Record(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			metrics.DuplicateRecordsTotal.WithLabelValues(string(action)).Inc()
			return &PassResult{Status: PassAlreadyRecorded, Action: action}, nil
		}
		return nil, err
	}
	metrics.PassesTotal.WithLabelValues(string(action)).Inc()

	signal := SignalNeutral
	if action == model.ActionPass {
		signal = SignalMiss
	}
	rating, err := s.rating.Update(ctx, userID, signal)
	if err != nil {
		return nil, err
	}
	return &PassResult{Status: PassRecorded, Action: action, Rating: rating}, nil
}
