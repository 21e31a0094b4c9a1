// Package main is the entry point for the habit tracker bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"habit-tracker-bot/internal/assets"
	"habit-tracker-bot/internal/bot"
	"habit-tracker-bot/internal/config"
	"habit-tracker-bot/internal/handler"
	"habit-tracker-bot/internal/metrics"
	"habit-tracker-bot/internal/pkg/db"
	"habit-tracker-bot/internal/pkg/lock"
	"habit-tracker-bot/internal/pkg/logger"
	"habit-tracker-bot/internal/repository"
	"habit-tracker-bot/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logFile, err := logger.Setup(cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logger")
	}
	defer logFile.Close()

	log.Info().Msg("Configuration loaded successfully")

	timezone, err := cfg.Tracker.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := repository.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	activityRepo := repository.NewActivityRepository(dbPool)
	ratingRepo := repository.NewRatingRepository(dbPool)
	progressRepo := repository.NewProgressRepository(dbPool)

	intents, closeIntents := newIntentStore(ctx, cfg, dbPool)
	defer closeIntents()

	// The telebot client comes first: profile lookups use its API.
	teleBot, err := bot.NewTelebot(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}
	profiles := handler.NewProfiles(teleBot)

	// Initialize services
	ratingService := service.NewRatingService(ratingRepo, cfg.Tracker.RatingAlpha)
	progressionService := service.NewProgressionService(
		activityRepo,
		progressRepo,
		profiles,
		cfg.Tracker.LevelStep,
		cfg.Tracker.AchievementThreshold,
	)
	giftService := service.NewGiftService(activityRepo)
	missDetector := service.NewMissDetector(activityRepo, giftService, ratingService)
	checkinService := service.NewCheckinService(
		activityRepo,
		intents,
		ratingService,
		progressionService,
		missDetector,
		timezone,
	)
	statsService := service.NewStatsService(activityRepo, progressRepo, ratingService, timezone)

	media := assets.NewProvider(cfg.Assets.StickersDir, cfg.Assets.AnimationsDir)
	userLock := lock.NewUserLock()

	telegramBot := bot.New(teleBot, cfg, &bot.Handlers{
		Checkin: handler.NewCheckinHandler(checkinService, profiles, media, userLock),
		Stats:   handler.NewStatsHandler(statsService, giftService, profiles, media),
	})

	var metricsServer *metrics.Server
	if cfg.Metrics.Listen != "" {
		metricsServer = metrics.NewServer(cfg.Metrics.Listen)
		metricsServer.Start()
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("timezone", timezone.String()).Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}
	log.Info().Msg("Bot stopped gracefully")
}

// newIntentStore selects the pending-intent backend.
func newIntentStore(ctx context.Context, cfg *config.Config, pool *db.Pool) (service.IntentStore, func()) {
	if cfg.State.Backend != "redis" {
		log.Info().Msg("Pending intents stored in PostgreSQL")
		return repository.NewIntentRepository(pool), func() {}
	}

	client := redis.NewClient(redisOptions(&cfg.Redis))
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr()).Msg("Failed to connect to redis")
	}
	log.Info().Str("addr", cfg.Redis.Addr()).Dur("ttl", cfg.State.IntentTTL).Msg("Pending intents stored in Redis")

	return repository.NewRedisIntentStore(client, cfg.State.IntentTTL), func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}

// redisOptions builds the client options. A failed command is retried once,
// the same budget the Postgres pool gets.
func redisOptions(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:       cfg.Addr(),
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: 1,
	}
}
