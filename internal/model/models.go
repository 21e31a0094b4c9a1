// Package model defines the data models for the habit tracker bot.
package model

import (
	"fmt"
	"time"
)

// ActionKind categorizes a ledger record.
type ActionKind string

// Action kinds stored in the activity ledger.
const (
	ActionTask         ActionKind = "task"          // Workout with proof
	ActionPass         ActionKind = "pass"          // Skipped out of laziness
	ActionForceMajeure ActionKind = "force_majeure" // Skipped for a valid reason
)

// ProofKind is the media type submitted as proof of a task.
type ProofKind string

// Proof kinds. ProofNone is used for pass and force majeure records.
const (
	ProofNone  ProofKind = ""
	ProofPhoto ProofKind = "photo"
	ProofVideo ProofKind = "video"
	// ProofOther marks media that is neither photo nor video. It is never stored.
	ProofOther ProofKind = "other"
)

// Valid reports whether the proof kind can back a task record.
func (p ProofKind) Valid() bool {
	return p == ProofPhoto || p == ProofVideo
}

// Intent is a declared but not yet proven check-in.
type Intent string

// Intent kinds.
const (
	IntentCheck Intent = "check" // Proof for today
	IntentDebt  Intent = "debt"  // Proof for yesterday
)

// ParseIntent converts a stored value back into an Intent.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case IntentCheck, IntentDebt:
		return Intent(s), nil
	}
	return "", fmt.Errorf("unknown intent %q", s)
}

// ActivityRecord is one ledger row. There is at most one per user per day.
type ActivityRecord struct {
	UserID int64      `db:"user_id"`
	ChatID int64      `db:"chat_id"`
	Date   time.Time  `db:"activity_date"` // civil date, midnight UTC
	Time   Clock      `db:"activity_time"` // local time of day
	Action ActionKind `db:"action_kind"`
	Proof  ProofKind  `db:"proof_kind"`
}

// LevelState caches the current level and the user's display names.
type LevelState struct {
	UserID      int64  `db:"user_id"`
	Level       int    `db:"level"`
	DisplayName string `db:"display_name"`
	Handle      string `db:"handle"`
}

// Profile is the display identity of a chat member.
type Profile struct {
	DisplayName string
	Handle      string
}

// ActivityFilter narrows ledger queries. Zero value matches everything.
type ActivityFilter struct {
	Actions []ActionKind
}

// TaskOnly is the filter used by progression.
func TaskOnly() ActivityFilter {
	return ActivityFilter{Actions: []ActionKind{ActionTask}}
}
