package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"habit-tracker-bot/internal/catalog"
	"habit-tracker-bot/internal/metrics"
	"habit-tracker-bot/internal/model"
	"habit-tracker-bot/internal/repository"
)

// Defaults for progression thresholds.
const (
	DefaultLevelStep            = 30
	DefaultAchievementThreshold = 20
)

// Bucket is a time-of-day slot used by the time achievements.
type Bucket int

// Time buckets. BucketNone covers 04:00:00 exactly, which belongs to no slot.
const (
	BucketNone Bucket = iota - 1
	BucketMorning
	BucketMidday
	BucketEvening
	BucketNight
)

const bucketCount = 4

var bucketAchievements = [bucketCount]catalog.AchievementID{
	BucketMorning: catalog.AchievementEarlyBird,
	BucketMidday:  catalog.AchievementDayButterfly,
	BucketEvening: catalog.AchievementLateBird,
	BucketNight:   catalog.AchievementNightButterfly,
}

// ClassifyTime maps a time of day to its bucket.
// Morning is (04:00, 11:00], midday (11:00, 15:00], evening (15:00, 23:00]
// and night is after 23:00 or before 04:00.
func ClassifyTime(c model.Clock) Bucket {
	d := c.Duration()
	switch {
	case d > 4*time.Hour && d <= 11*time.Hour:
		return BucketMorning
	case d > 11*time.Hour && d <= 15*time.Hour:
		return BucketMidday
	case d > 15*time.Hour && d <= 23*time.Hour:
		return BucketEvening
	case d > 23*time.Hour || d < 4*time.Hour:
		return BucketNight
	}
	return BucketNone
}

// Tally counts task records per time bucket and proof kind.
type Tally struct {
	Tasks   int
	Buckets [bucketCount]int
	Photo   int
	Video   int
}

// TallyRecords builds a Tally from task records. Other actions are ignored.
func TallyRecords(records []model.ActivityRecord) Tally {
	var t Tally
	for _, rec := range records {
		if rec.Action != model.ActionTask {
			continue
		}
		t.Tasks++
		if b := ClassifyTime(rec.Time); b != BucketNone {
			t.Buckets[b]++
		}
		switch rec.Proof {
		case model.ProofPhoto:
			t.Photo++
		case model.ProofVideo:
			t.Video++
		}
	}
	return t
}

// LevelFor returns the level reached after taskCount tasks.
func LevelFor(taskCount, step int) int {
	if step <= 0 {
		step = DefaultLevelStep
	}
	if taskCount <= 0 {
		return 0
	}
	return taskCount / step
}

// LevelUp describes a level transition.
type LevelUp struct {
	Level int
	Text  string
}

// Progress is the result of one evaluation: an optional level change
// followed by newly granted achievements in evaluation order.
type Progress struct {
	LevelUp      *LevelUp
	Achievements []catalog.Achievement
}

// Empty reports whether the evaluation produced nothing to announce.
func (p *Progress) Empty() bool {
	return p == nil || (p.LevelUp == nil && len(p.Achievements) == 0)
}

// Lines renders the progress as announcement lines in order.
func (p *Progress) Lines() []string {
	if p == nil {
		return nil
	}
	lines := make([]string, 0, len(p.Achievements)+1)
	if p.LevelUp != nil {
		lines = append(lines, p.LevelUp.Text)
	}
	for _, a := range p.Achievements {
		lines = append(lines, catalog.FormatAchievement(a))
	}
	return lines
}

// ProgressionService derives levels and achievements from the ledger.
type ProgressionService struct {
	activity  ActivityStore
	progress  ProgressStore
	profiles  ProfileLookup
	levelStep int
	threshold int
}

// NewProgressionService creates a new ProgressionService instance.
// profiles may be nil, in which case cached names are left empty.
func NewProgressionService(
	activity ActivityStore,
	progress ProgressStore,
	profiles ProfileLookup,
	levelStep int,
	threshold int,
) *ProgressionService {
	if levelStep <= 0 {
		levelStep = DefaultLevelStep
	}
	if threshold <= 0 {
		threshold = DefaultAchievementThreshold
	}
	return &ProgressionService{
		activity:  activity,
		progress:  progress,
		profiles:  profiles,
		levelStep: levelStep,
		threshold: threshold,
	}
}

// Evaluate recomputes level and achievements for a user in a chat.
// A second call with an unchanged ledger returns an empty Progress.
func (s *ProgressionService) Evaluate(ctx context.Context, userID, chatID int64) (*Progress, error) {
	records, err := s.activity.List(ctx, userID, chatID, model.TaskOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	result := &Progress{}
	tally := TallyRecords(records)
	if tally.Tasks == 0 {
		return result, nil
	}

	levelUp, err := s.evaluateLevel(ctx, userID, chatID, tally.Tasks)
	if err != nil {
		return nil, err
	}
	result.LevelUp = levelUp

	for b := 0; b < bucketCount; b++ {
		if err := s.grantIfReached(ctx, userID, bucketAchievements[b], tally.Buckets[b], result); err != nil {
			return nil, err
		}
	}
	if err := s.grantIfReached(ctx, userID, catalog.AchievementPhotoHunter, tally.Photo, result); err != nil {
		return nil, err
	}
	if err := s.grantIfReached(ctx, userID, catalog.AchievementDirector, tally.Video, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *ProgressionService) evaluateLevel(ctx context.Context, userID, chatID int64, tasks int) (*LevelUp, error) {
	level := LevelFor(tasks, s.levelStep)

	// Users without a stored level are at level 0.
	current, err := s.progress.GetLevel(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrLevelNotFound):
		current = nil
	case err != nil:
		return nil, fmt.Errorf("failed to get level: %w", err)
	}
	stored := 0
	if current != nil {
		stored = current.Level
	}
	if stored == level {
		return nil, nil
	}

	state := &model.LevelState{UserID: userID, Level: level}
	if current != nil {
		state.DisplayName = current.DisplayName
		state.Handle = current.Handle
	}
	if s.profiles != nil {
		profile, err := s.profiles.LookupProfile(ctx, chatID, userID)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("Profile lookup failed, keeping cached names")
		} else {
			state.DisplayName = profile.DisplayName
			state.Handle = profile.Handle
		}
	}

	if err := s.progress.SaveLevel(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save level: %w", err)
	}
	metrics.LevelUpsTotal.Inc()
	log.Info().Int64("user_id", userID).Int("level", level).Msg("Level changed")

	return &LevelUp{Level: level, Text: catalog.FormatLevel(level)}, nil
}

func (s *ProgressionService) grantIfReached(ctx context.Context, userID int64, id catalog.AchievementID, count int, result *Progress) error {
	if count < s.threshold {
		return nil
	}
	granted, err := s.progress.GrantAchievement(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to grant achievement: %w", err)
	}
	if !granted {
		return nil
	}

	a, _ := catalog.GetAchievement(id)
	result.Achievements = append(result.Achievements, a)
	metrics.AchievementsGrantedTotal.WithLabelValues(strconv.Itoa(int(id))).Inc()
	log.Info().Int64("user_id", userID).Str("achievement", a.Name).Msg("Achievement granted")
	return nil
}
