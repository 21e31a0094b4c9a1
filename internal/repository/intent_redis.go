package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"habit-tracker-bot/internal/model"
)

const intentKeyPrefix = "habit:intent:"

// RedisIntentStore keeps pending intents in Redis with a TTL, so a forgotten
// /check does not wait forever. Consumption uses GETDEL and is single-use.
type RedisIntentStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIntentStore creates a store. A non-positive ttl keeps intents until consumed.
func NewRedisIntentStore(client *redis.Client, ttl time.Duration) *RedisIntentStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisIntentStore{client: client, ttl: ttl}
}

func intentKey(userID int64) string {
	return intentKeyPrefix + strconv.FormatInt(userID, 10)
}

// SetIntent replaces any pending intent of the user.
func (s *RedisIntentStore) SetIntent(ctx context.Context, userID int64, intent model.Intent) error {
	if err := s.client.Set(ctx, intentKey(userID), string(intent), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set intent: %w", err)
	}
	return nil
}

// ConsumeIntent atomically removes and returns the pending intent.
func (s *RedisIntentStore) ConsumeIntent(ctx context.Context, userID int64) (model.Intent, bool, error) {
	v, err := s.client.GetDel(ctx, intentKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to consume intent: %w", err)
	}

	intent, err := model.ParseIntent(v)
	if err != nil {
		return "", false, err
	}
	return intent, true, nil
}
