// Package catalog holds the fixed level and achievement reference data.
// It is seeded into the database at startup and read from memory at runtime.
package catalog

import "fmt"

// AchievementID identifies a badge. The numeric values are stored in user_achievements.
type AchievementID int

// Achievement ids, in evaluation order.
const (
	AchievementEarlyBird      AchievementID = iota // morning workouts
	AchievementDayButterfly                        // midday workouts
	AchievementLateBird                            // evening workouts
	AchievementNightButterfly                      // night workouts
	AchievementPhotoHunter                         // photo proofs
	AchievementDirector                            // video proofs
)

// Achievement describes a badge.
type Achievement struct {
	ID    AchievementID
	Name  string
	Emoji string
}

// Level describes a named level.
type Level struct {
	Level int
	Name  string
}

// Achievements lists every badge in evaluation order.
var Achievements = []Achievement{
	{ID: AchievementEarlyBird, Name: "Ранняя пташка", Emoji: "🌅"},
	{ID: AchievementDayButterfly, Name: "Дневная бабочка", Emoji: "🦋"},
	{ID: AchievementLateBird, Name: "Поздняя пташка", Emoji: "🌇"},
	{ID: AchievementNightButterfly, Name: "Ночная бабочка", Emoji: "🌙"},
	{ID: AchievementPhotoHunter, Name: "Фотоохотник", Emoji: "📸"},
	{ID: AchievementDirector, Name: "Сам себе режиссёр", Emoji: "🎬"},
}

// Levels lists the named levels. Levels past the end have no name.
var Levels = []Level{
	{0, "Киберспортмен"},
	{1, "Зелёный"},
	{2, "Подтянутый"},
	{3, "Фитоняш"},
	{4, "Стальные мышцы"},
	{5, "Мощный"},
	{6, "Опытный боец"},
	{7, "Победитель по жизни"},
	{8, "Мастер"},
	{9, "Гуру"},
	{10, "Тибетский монах"},
	{11, "Легендарный"},
	{12, "Бесконечность не предел"},
	{13, "Спортивный маньяк"},
}

// GetAchievement returns the badge with the given id.
func GetAchievement(id AchievementID) (Achievement, bool) {
	if id < 0 || int(id) >= len(Achievements) {
		return Achievement{}, false
	}
	return Achievements[id], true
}

// LevelName returns the name of a level, or false when the level is unnamed.
func LevelName(level int) (string, bool) {
	if level < 0 || level >= len(Levels) {
		return "", false
	}
	return Levels[level].Name, true
}

// FormatLevel renders "Уровень N : name", or "Уровень N" for unnamed levels.
func FormatLevel(level int) string {
	if name, ok := LevelName(level); ok {
		return fmt.Sprintf("Уровень %d : %s", level, name)
	}
	return fmt.Sprintf("Уровень %d", level)
}

// FormatAchievement renders a badge line.
func FormatAchievement(a Achievement) string {
	return fmt.Sprintf("%s Достижение: %s", a.Emoji, a.Name)
}
