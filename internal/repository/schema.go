package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"habit-tracker-bot/internal/catalog"
	"habit-tracker-bot/internal/model"
	"habit-tracker-bot/internal/pkg/db"
)

// migrations are applied in order on every start. Each one is idempotent.
var migrations = []struct {
	name string
	sql  string
}{
	{"reference tables", `
		CREATE TABLE IF NOT EXISTS action_types (
			name VARCHAR(20) PRIMARY KEY
		);
		CREATE TABLE IF NOT EXISTS proof_types (
			name VARCHAR(10) PRIMARY KEY
		);
		CREATE TABLE IF NOT EXISTS achievements (
			achievement_id INT PRIMARY KEY,
			name TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS levels (
			level INT PRIMARY KEY,
			name TEXT NOT NULL
		);
	`},
	{"activity ledger", `
		CREATE TABLE IF NOT EXISTS activity (
			user_id BIGINT NOT NULL,
			chat_id BIGINT NOT NULL,
			activity_date DATE NOT NULL,
			activity_time TIME NOT NULL,
			action_kind VARCHAR(20) NOT NULL REFERENCES action_types(name),
			proof_kind VARCHAR(10) REFERENCES proof_types(name),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, activity_date)
		);
		CREATE INDEX IF NOT EXISTS idx_activity_chat_user_date ON activity(chat_id, user_id, activity_date);
	`},
	{"user state", `
		CREATE TABLE IF NOT EXISTS user_states (
			user_id BIGINT PRIMARY KEY,
			pending BOOLEAN NOT NULL DEFAULT FALSE,
			intent_kind VARCHAR(10),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"ratings", `
		CREATE TABLE IF NOT EXISTS ratings (
			user_id BIGINT PRIMARY KEY,
			value DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"progression", `
		CREATE TABLE IF NOT EXISTS user_levels (
			user_id BIGINT PRIMARY KEY,
			level INT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			handle TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS user_achievements (
			user_id BIGINT NOT NULL,
			achievement_id INT NOT NULL REFERENCES achievements(achievement_id),
			granted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, achievement_id)
		);
	`},
}

// Migrate creates the schema and loads the reference data.
func Migrate(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	if err := seedCatalog(ctx, pool); err != nil {
		return err
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}

// seedCatalog inserts the reference rows. Existing rows are left alone.
func seedCatalog(ctx context.Context, pool *db.Pool) error {
	batch := &pgx.Batch{}
	for _, a := range []model.ActionKind{model.ActionTask, model.ActionPass, model.ActionForceMajeure} {
		batch.Queue(`INSERT INTO action_types (name) VALUES ($1) ON CONFLICT DO NOTHING`, string(a))
	}
	for _, p := range []model.ProofKind{model.ProofPhoto, model.ProofVideo} {
		batch.Queue(`INSERT INTO proof_types (name) VALUES ($1) ON CONFLICT DO NOTHING`, string(p))
	}
	for _, a := range catalog.Achievements {
		batch.Queue(`INSERT INTO achievements (achievement_id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`, int(a.ID), a.Name)
	}
	for _, l := range catalog.Levels {
		batch.Queue(`INSERT INTO levels (level, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`, l.Level, l.Name)
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	log.Info().
		Int("achievements", len(catalog.Achievements)).
		Int("levels", len(catalog.Levels)).
		Msg("Catalog seeded")
	return nil
}
