package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"habit-tracker-bot/internal/catalog"
	"habit-tracker-bot/internal/model"
	"habit-tracker-bot/internal/repository"
)

// In-memory stores mirroring the repository contracts.

type memActivity struct {
	mu      sync.Mutex
	records []model.ActivityRecord
	err     error
}

func (m *memActivity) Record(_ context.Context, rec *model.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, r := range m.records {
		if r.UserID == rec.UserID && model.SameDay(r.Date, rec.Date) {
			return repository.ErrAlreadyExists
		}
	}
	cp := *rec
	cp.Date = model.CivilDate(rec.Date)
	m.records = append(m.records, cp)
	return nil
}

func (m *memActivity) List(_ context.Context, userID, chatID int64, filter model.ActivityFilter) ([]model.ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ActivityRecord
	for _, r := range m.records {
		if r.UserID != userID || r.ChatID != chatID {
			continue
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, r.Action) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (m *memActivity) ExistsOn(_ context.Context, userID int64, date time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == userID && model.SameDay(r.Date, date) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memActivity) LastBefore(_ context.Context, userID, chatID int64, date time.Time) (*model.ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := model.CivilDate(date)
	var best *model.ActivityRecord
	for i := range m.records {
		r := m.records[i]
		if r.UserID != userID || r.ChatID != chatID || !r.Date.Before(day) {
			continue
		}
		if best == nil || r.Date.After(best.Date) {
			best = &r
		}
	}
	if best == nil {
		return nil, repository.ErrNoActivity
	}
	return best, nil
}

func (m *memActivity) OtherUsers(_ context.Context, chatID, excludeUserID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]bool{}
	var out []int64
	for _, r := range m.records {
		if r.ChatID != chatID || r.UserID == excludeUserID || seen[r.UserID] {
			continue
		}
		seen[r.UserID] = true
		out = append(out, r.UserID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memActivity) CountByAction(_ context.Context, userID, chatID int64) (map[model.ActionKind]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[model.ActionKind]int{}
	for _, r := range m.records {
		if r.UserID == userID && r.ChatID == chatID {
			counts[r.Action]++
		}
	}
	return counts, nil
}

func (m *memActivity) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func containsAction(actions []model.ActionKind, a model.ActionKind) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

type memIntents struct {
	mu      sync.Mutex
	pending map[int64]model.Intent
}

func newMemIntents() *memIntents {
	return &memIntents{pending: map[int64]model.Intent{}}
}

func (m *memIntents) SetIntent(_ context.Context, userID int64, intent model.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[userID] = intent
	return nil
}

func (m *memIntents) ConsumeIntent(_ context.Context, userID int64) (model.Intent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.pending[userID]
	delete(m.pending, userID)
	return intent, ok, nil
}

func (m *memIntents) get(userID int64) (model.Intent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.pending[userID]
	return intent, ok
}

type memRatings struct {
	mu     sync.Mutex
	values map[int64]float64
	saves  int
}

func newMemRatings() *memRatings {
	return &memRatings{values: map[int64]float64{}}
}

func (m *memRatings) Get(_ context.Context, userID int64) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[userID]
	return v, ok, nil
}

func (m *memRatings) Save(_ context.Context, userID int64, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[userID] = value
	m.saves++
	return nil
}

type memProgress struct {
	mu           sync.Mutex
	levels       map[int64]model.LevelState
	achievements map[int64]map[catalog.AchievementID]bool
	levelSaves   int
}

func newMemProgress() *memProgress {
	return &memProgress{
		levels:       map[int64]model.LevelState{},
		achievements: map[int64]map[catalog.AchievementID]bool{},
	}
}

func (m *memProgress) GetLevel(_ context.Context, userID int64) (*model.LevelState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.levels[userID]
	if !ok {
		return nil, repository.ErrLevelNotFound
	}
	return &st, nil
}

func (m *memProgress) SaveLevel(_ context.Context, st *model.LevelState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[st.UserID] = *st
	m.levelSaves++
	return nil
}

func (m *memProgress) GrantAchievement(_ context.Context, userID int64, id catalog.AchievementID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.achievements[userID] == nil {
		m.achievements[userID] = map[catalog.AchievementID]bool{}
	}
	if m.achievements[userID][id] {
		return false, nil
	}
	m.achievements[userID][id] = true
	return true, nil
}

func (m *memProgress) ListAchievements(_ context.Context, userID int64) ([]catalog.AchievementID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []catalog.AchievementID
	for id := range m.achievements[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type staticProfiles struct {
	profile model.Profile
	err     error
	calls   int
}

func (p *staticProfiles) LookupProfile(_ context.Context, _, _ int64) (model.Profile, error) {
	p.calls++
	return p.profile, p.err
}

var errLookup = errors.New("lookup failed")

// harness wires every service over in-memory stores.
type harness struct {
	activity    *memActivity
	intents     *memIntents
	ratings     *memRatings
	progress    *memProgress
	profiles    *staticProfiles
	rating      *RatingService
	progression *ProgressionService
	gifts       *GiftService
	misses      *MissDetector
	checkin     *CheckinService
	stats       *StatsService
}

func newHarness() *harness {
	h := &harness{
		activity: &memActivity{},
		intents:  newMemIntents(),
		ratings:  newMemRatings(),
		progress: newMemProgress(),
		profiles: &staticProfiles{profile: model.Profile{DisplayName: "Ivan", Handle: "ivan"}},
	}
	h.rating = NewRatingService(h.ratings, DefaultRatingAlpha)
	h.progression = NewProgressionService(h.activity, h.progress, h.profiles, DefaultLevelStep, DefaultAchievementThreshold)
	h.gifts = NewGiftService(h.activity)
	h.misses = NewMissDetector(h.activity, h.gifts, h.rating)
	h.checkin = NewCheckinService(h.activity, h.intents, h.rating, h.progression, h.misses, time.UTC)
	h.stats = NewStatsService(h.activity, h.progress, h.rating, time.UTC)
	return h
}

// day returns midnight UTC of 2024-03-<d>.
func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

// seedTask stores a task record directly.
func (h *harness) seedTask(userID, chatID int64, date time.Time, clock model.Clock, proof model.ProofKind) {
	_ = h.activity.Record(context.Background(), &model.ActivityRecord{
		UserID: userID,
		ChatID: chatID,
		Date:   date,
		Time:   clock,
		Action: model.ActionTask,
		Proof:  proof,
	})
}
