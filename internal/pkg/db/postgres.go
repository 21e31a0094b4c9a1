// Package db provides PostgreSQL database connection management.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"habit-tracker-bot/internal/config"
	"habit-tracker-bot/internal/metrics"
)

// ErrStorageUnavailable is returned when the database stays unreachable
// after the single reconnect attempt.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Pool wraps pgxpool.Pool with the reconnect policy.
type Pool struct {
	*pgxpool.Pool
}

// Wrap adapts an existing pgxpool.Pool.
func Wrap(pool *pgxpool.Pool) *Pool {
	return &Pool{Pool: pool}
}

// NewPool creates a new PostgreSQL connection pool.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.PoolSize)
	poolConfig.MinConns = int32(cfg.PoolSize / 4) // 25% of max as minimum
	if poolConfig.MinConns < 1 {
		poolConfig.MinConns = 1
	}

	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	} else {
		poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second
	}

	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	} else {
		poolConfig.MaxConnLifetime = time.Hour
	}

	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	} else {
		poolConfig.MaxConnIdleTime = 30 * time.Minute
	}

	poolConfig.HealthCheckPeriod = 30 * time.Second

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("pool_size", cfg.PoolSize).
		Msg("Connecting to PostgreSQL")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to PostgreSQL")

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
		log.Info().Msg("PostgreSQL connection pool closed")
	}
}

// HealthCheck performs a health check on the database connection.
func (p *Pool) HealthCheck(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// Retry runs fn and, if it failed because the connection was lost before the
// statement reached the server, drops every pooled connection and runs fn
// exactly once more. A second connection failure becomes ErrStorageUnavailable.
// Any other error, including constraint violations, is returned untouched.
func (p *Pool) Retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || !IsConnectionError(err) {
		return err
	}

	log.Warn().Err(err).Str("op", op).Msg("Lost database connection, reconnecting")
	metrics.StorageRetries.WithLabelValues(op).Inc()
	p.Pool.Reset()

	err = fn(ctx)
	if err == nil {
		return nil
	}
	if IsConnectionError(err) {
		log.Error().Err(err).Str("op", op).Msg("Database still unreachable after reconnect")
		return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
	}
	return err
}

// IsConnectionError reports whether err means the statement never reached
// the server, so running it again cannot apply it twice.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
