package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"habit-tracker-bot/internal/catalog"
	"habit-tracker-bot/internal/model"
	"habit-tracker-bot/internal/repository"
)

// Stats summarizes a user's history in a chat.
type Stats struct {
	Tasks        int
	Passes       int
	ForceMajeure int
	Level        int
	LevelText    string
	Rating       float64
	Streak       int
	Achievements []catalog.Achievement
}

// Empty reports whether the user has no records at all.
func (s *Stats) Empty() bool {
	return s.Tasks == 0 && s.Passes == 0 && s.ForceMajeure == 0
}

// StatsService builds /stat reports.
type StatsService struct {
	activity ActivityStore
	progress ProgressStore
	rating   *RatingService
	timezone *time.Location
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(activity ActivityStore, progress ProgressStore, rating *RatingService, timezone *time.Location) *StatsService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &StatsService{activity: activity, progress: progress, rating: rating, timezone: timezone}
}

// Report returns the user's stats. The rating is read with the neutral signal.
func (s *StatsService) Report(ctx context.Context, userID, chatID int64, at time.Time) (*Stats, error) {
	counts, err := s.activity.CountByAction(ctx, userID, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	st := &Stats{
		Tasks:        counts[model.ActionTask],
		Passes:       counts[model.ActionPass],
		ForceMajeure: counts[model.ActionForceMajeure],
	}
	if st.Empty() {
		return st, nil
	}

	tasks, err := s.activity.List(ctx, userID, chatID, model.TaskOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	today, _ := localDay(at, s.timezone)
	st.Streak = CurrentStreak(tasks, today)

	level, err := s.progress.GetLevel(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrLevelNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to get level: %w", err)
	default:
		st.Level = level.Level
	}
	st.LevelText = catalog.FormatLevel(st.Level)

	if st.Rating, err = s.rating.Update(ctx, userID, SignalNeutral); err != nil {
		return nil, err
	}

	ids, err := s.progress.ListAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	for _, id := range ids {
		if a, ok := catalog.GetAchievement(id); ok {
			st.Achievements = append(st.Achievements, a)
		}
	}
	return st, nil
}

// CurrentStreak counts consecutive task days ending today or yesterday.
// records must be ordered by date ascending.
func CurrentStreak(records []model.ActivityRecord, today time.Time) int {
	if len(records) == 0 {
		return 0
	}
	expect := model.CivilDate(today)
	last := records[len(records)-1].Date
	if !model.SameDay(last, expect) {
		expect = expect.AddDate(0, 0, -1)
	}

	streak := 0
	for i := len(records) - 1; i >= 0; i-- {
		d := records[i].Date
		if records[i].Action != model.ActionTask {
			continue
		}
		if !model.SameDay(d, expect) {
			break
		}
		streak++
		expect = expect.AddDate(0, 0, -1)
	}
	return streak
}
