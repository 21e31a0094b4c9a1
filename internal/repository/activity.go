// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"habit-tracker-bot/internal/model"
	"habit-tracker-bot/internal/pkg/db"
)

// Common errors for repository operations.
var (
	// ErrAlreadyExists is returned when the user already has a record for that day.
	ErrAlreadyExists = errors.New("activity already recorded for this day")
	// ErrNoActivity is returned when a lookup finds no ledger record.
	ErrNoActivity = errors.New("no activity found")
)

// ActivityRepository is the append-only activity ledger.
type ActivityRepository struct {
	pool *db.Pool
}

// NewActivityRepository creates a new ActivityRepository instance.
func NewActivityRepository(pool *db.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// Record appends a record. The (user_id, activity_date) constraint decides
// concurrent inserts: exactly one wins and the others get ErrAlreadyExists.
// An existing row is never overwritten.
func (r *ActivityRepository) Record(ctx context.Context, rec *model.ActivityRecord) error {
	const query = `
		INSERT INTO activity (user_id, chat_id, activity_date, activity_time, action_kind, proof_kind)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, activity_date) DO NOTHING
	`

	var inserted bool
	err := r.pool.Retry(ctx, "activity.record", func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, query,
			rec.UserID,
			rec.ChatID,
			model.CivilDate(rec.Date),
			pgtype.Time{Microseconds: rec.Time.Duration().Microseconds(), Valid: true},
			string(rec.Action),
			proofParam(rec.Proof),
		)
		if err != nil {
			return err
		}
		inserted = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	if !inserted {
		return ErrAlreadyExists
	}
	return nil
}

// List returns the user's records in a chat ordered by date ascending.
func (r *ActivityRepository) List(ctx context.Context, userID, chatID int64, filter model.ActivityFilter) ([]model.ActivityRecord, error) {
	const query = `
		SELECT user_id, chat_id, activity_date, activity_time, action_kind, proof_kind
		FROM activity
		WHERE user_id = $1 AND chat_id = $2
		  AND (cardinality($3::text[]) = 0 OR action_kind = ANY($3::text[]))
		ORDER BY activity_date ASC, activity_time ASC
	`

	actions := make([]string, 0, len(filter.Actions))
	for _, a := range filter.Actions {
		actions = append(actions, string(a))
	}

	var records []model.ActivityRecord
	err := r.pool.Retry(ctx, "activity.list", func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, query, userID, chatID, actions)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			rec, err := scanActivity(rows)
			if err != nil {
				return err
			}
			records = append(records, *rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return records, nil
}

// ExistsOn checks whether the user has any record on the given day, in any chat.
func (r *ActivityRepository) ExistsOn(ctx context.Context, userID int64, date time.Time) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM activity WHERE user_id = $1 AND activity_date = $2)`

	var exists bool
	err := r.pool.Retry(ctx, "activity.exists", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query, userID, model.CivilDate(date)).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check activity existence: %w", err)
	}
	return exists, nil
}

// LastBefore returns the most recent record in the chat strictly before date.
// Returns ErrNoActivity if there is none.
func (r *ActivityRepository) LastBefore(ctx context.Context, userID, chatID int64, date time.Time) (*model.ActivityRecord, error) {
	const query = `
		SELECT user_id, chat_id, activity_date, activity_time, action_kind, proof_kind
		FROM activity
		WHERE user_id = $1 AND chat_id = $2 AND activity_date < $3
		ORDER BY activity_date DESC
		LIMIT 1
	`

	var rec *model.ActivityRecord
	err := r.pool.Retry(ctx, "activity.last_before", func(ctx context.Context) error {
		var err error
		rec, err = scanActivity(r.pool.QueryRow(ctx, query, userID, chatID, model.CivilDate(date)))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActivity
		}
		return nil, fmt.Errorf("failed to get previous activity: %w", err)
	}
	return rec, nil
}

// OtherUsers lists every user with a record in the chat except excludeUserID.
func (r *ActivityRepository) OtherUsers(ctx context.Context, chatID, excludeUserID int64) ([]int64, error) {
	const query = `
		SELECT DISTINCT user_id
		FROM activity
		WHERE chat_id = $1 AND user_id <> $2
		ORDER BY user_id
	`

	var users []int64
	err := r.pool.Retry(ctx, "activity.other_users", func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, query, chatID, excludeUserID)
		if err != nil {
			return err
		}
		users, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chat users: %w", err)
	}
	return users, nil
}

// CountByAction tallies the user's records in a chat per action kind.
func (r *ActivityRepository) CountByAction(ctx context.Context, userID, chatID int64) (map[model.ActionKind]int, error) {
	const query = `
		SELECT action_kind, COUNT(*)
		FROM activity
		WHERE user_id = $1 AND chat_id = $2
		GROUP BY action_kind
	`

	counts := make(map[model.ActionKind]int)
	err := r.pool.Retry(ctx, "activity.count", func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, query, userID, chatID)
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(counts)
		for rows.Next() {
			var kind string
			var n int
			if err := rows.Scan(&kind, &n); err != nil {
				return err
			}
			counts[model.ActionKind(kind)] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}
	return counts, nil
}

func scanActivity(row pgx.Row) (*model.ActivityRecord, error) {
	var (
		rec    model.ActivityRecord
		clock  pgtype.Time
		action string
		proof  *string
	)
	if err := row.Scan(&rec.UserID, &rec.ChatID, &rec.Date, &clock, &action, &proof); err != nil {
		return nil, err
	}
	rec.Time = model.Clock(time.Duration(clock.Microseconds) * time.Microsecond)
	rec.Action = model.ActionKind(action)
	if proof != nil {
		rec.Proof = model.ProofKind(*proof)
	}
	return &rec, nil
}

// proofParam maps ProofNone to SQL NULL.
func proofParam(p model.ProofKind) *string {
	if p == model.ProofNone {
		return nil
	}
	s := string(p)
	return &s
}
