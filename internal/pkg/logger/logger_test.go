package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habit-tracker-bot/internal/config"
)

func TestSetupWritesRollingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	closer, err := Setup(config.LogConfig{Level: "debug", File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Str("op", "/check").Msg("Handler failed")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"op":"/check"`)
	assert.Contains(t, string(data), `"message":"Handler failed"`)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetupConsoleOnly(t *testing.T) {
	closer, err := Setup(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })
	assert.NoError(t, closer.Close())
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewRollingFile(t *testing.T) {
	f := NewRollingFile(config.LogConfig{File: "x.log", MaxSizeMB: 5, MaxBackups: 2, MaxAgeDays: 7, Compress: true})
	assert.Equal(t, "x.log", f.Filename)
	assert.Equal(t, 5, f.MaxSize)
	assert.Equal(t, 2, f.MaxBackups)
	assert.Equal(t, 7, f.MaxAge)
	assert.True(t, f.Compress)
}
