package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"habit-tracker-bot/internal/catalog"
	"habit-tracker-bot/internal/model"
	"habit-tracker-bot/internal/pkg/db"
)

// ErrLevelNotFound is returned for users whose level was never computed.
var ErrLevelNotFound = errors.New("level not found")

// ProgressRepository stores levels and granted achievements.
type ProgressRepository struct {
	pool *db.Pool
}

// NewProgressRepository creates a new ProgressRepository instance.
func NewProgressRepository(pool *db.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// GetLevel returns the stored level state.
// Returns ErrLevelNotFound if the user has none.
func (r *ProgressRepository) GetLevel(ctx context.Context, userID int64) (*model.LevelState, error) {
	const query = `
		SELECT user_id, level, display_name, handle
		FROM user_levels
		WHERE user_id = $1
	`

	var st model.LevelState
	err := r.pool.Retry(ctx, "level.get", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query, userID).Scan(&st.UserID, &st.Level, &st.DisplayName, &st.Handle)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLevelNotFound
		}
		return nil, fmt.Errorf("failed to get level: %w", err)
	}
	return &st, nil
}

// SaveLevel upserts the level together with the cached display names.
func (r *ProgressRepository) SaveLevel(ctx context.Context, st *model.LevelState) error {
	const query = `
		INSERT INTO user_levels (user_id, level, display_name, handle, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET level = EXCLUDED.level,
		              display_name = EXCLUDED.display_name,
		              handle = EXCLUDED.handle,
		              updated_at = NOW()
	`
	err := r.pool.Retry(ctx, "level.save", func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx, query, st.UserID, st.Level, st.DisplayName, st.Handle)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save level: %w", err)
	}
	return nil
}

// GrantAchievement records a badge. granted is false if the user already had it.
func (r *ProgressRepository) GrantAchievement(ctx context.Context, userID int64, id catalog.AchievementID) (granted bool, err error) {
	const query = `
		INSERT INTO user_achievements (user_id, achievement_id, granted_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`
	err = r.pool.Retry(ctx, "achievement.grant", func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, query, userID, int(id))
		if err != nil {
			return err
		}
		granted = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to grant achievement: %w", err)
	}
	return granted, nil
}

// ListAchievements returns the user's badges ordered by id.
func (r *ProgressRepository) ListAchievements(ctx context.Context, userID int64) ([]catalog.AchievementID, error) {
	const query = `
		SELECT achievement_id
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY achievement_id
	`

	var ids []catalog.AchievementID
	err := r.pool.Retry(ctx, "achievement.list", func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		raw, err := pgx.CollectRows(rows, pgx.RowTo[int])
		if err != nil {
			return err
		}
		ids = ids[:0]
		for _, v := range raw {
			ids = append(ids, catalog.AchievementID(v))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return ids, nil
}
