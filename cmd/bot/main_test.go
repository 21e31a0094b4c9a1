package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"habit-tracker-bot/internal/config"
)

func TestRedisOptionsRetryOnce(t *testing.T) {
	opts := redisOptions(&config.RedisConfig{Host: "cache", Port: 6380, Password: "secret", DB: 2})

	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 1, opts.MaxRetries)
}
