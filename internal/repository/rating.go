package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"habit-tracker-bot/internal/pkg/db"
)

// RatingRepository stores the smoothed rating of each user.
type RatingRepository struct {
	pool *db.Pool
}

// NewRatingRepository creates a new RatingRepository instance.
func NewRatingRepository(pool *db.Pool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

// Get returns the stored rating. found is false for users without one.
func (r *RatingRepository) Get(ctx context.Context, userID int64) (value float64, found bool, err error) {
	const query = `SELECT value FROM ratings WHERE user_id = $1`

	err = r.pool.Retry(ctx, "rating.get", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, query, userID).Scan(&value)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get rating: %w", err)
	}
	return value, true, nil
}

// Save upserts the rating.
func (r *RatingRepository) Save(ctx context.Context, userID int64, value float64) error {
	const query = `
		INSERT INTO ratings (user_id, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	err := r.pool.Retry(ctx, "rating.save", func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx, query, userID, value)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}
	return nil
}
