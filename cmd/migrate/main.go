package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"pomodoro/collab/internal/config"
	"pomodoro/collab/internal/db"
	"pomodoro/collab/internal/logging"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	logging.Setup(cfg.LogLevel)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("could not load .env file")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	applied, err := db.RunMigrations(context.Background(), database, cfg.MigrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	log.Info().Int("applied", len(applied)).Str("db_path", cfg.DBPath).Msg("migrations up to date")
}
