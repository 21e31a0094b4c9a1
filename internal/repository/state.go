package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"habit-tracker-bot/internal/model"
	"habit-tracker-bot/internal/pkg/db"
)

// IntentRepository keeps the pending check-in intent in user_states.
type IntentRepository struct {
	pool *db.Pool
}

// NewIntentRepository creates a new IntentRepository instance.
func NewIntentRepository(pool *db.Pool) *IntentRepository {
	return &IntentRepository{pool: pool}
}

// SetIntent marks the user as awaiting proof. A previous intent is replaced.
func (r *IntentRepository) SetIntent(ctx context.Context, userID int64, intent model.Intent) error {
	const query = `
		INSERT INTO user_states (user_id, pending, intent_kind, updated_at)
		VALUES ($1, TRUE, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET pending = TRUE, intent_kind = EXCLUDED.intent_kind, updated_at = NOW()
	`
	err := r.pool.Retry(ctx, "state.set", func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx, query, userID, string(intent))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set intent: %w", err)
	}
	return nil
}

// ConsumeIntent atomically clears a pending intent and returns it.
// ok is false when the user was idle.
func (r *IntentRepository) ConsumeIntent(ctx context.Context, userID int64) (model.Intent, bool, error) {
	const query = `
		UPDATE user_states
		SET pending = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND pending
		RETURNING intent_kind
	`

	var kind string
	err := r.pool.Retry(ctx, "state.consume", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query, userID).Scan(&kind)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to consume intent: %w", err)
	}

	intent, err := model.ParseIntent(kind)
	if err != nil {
		return "", false, err
	}
	return intent, true, nil
}
