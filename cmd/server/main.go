package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"pomodoro/collab/internal/config"
	"pomodoro/collab/internal/db"
	"pomodoro/collab/internal/handler"
	"pomodoro/collab/internal/logging"
	"pomodoro/collab/internal/repository"
	"pomodoro/collab/internal/room"
	"pomodoro/collab/internal/router"
	"pomodoro/collab/internal/service"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	if _, err := db.RunMigrations(ctx, database, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	clock := clockwork.NewRealClock()
	store := room.NewStore(room.Options{
		Clock:             clock,
		DefaultSettings:   cfg.Rooms.DefaultSettings,
		MaxParticipants:   cfg.Rooms.MaxParticipants,
		InactivityTimeout: cfg.Rooms.InactivityTimeout,
	})
	go store.RunJanitor(ctx, cfg.Rooms.SweepInterval)

	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	roomService := service.NewRoomService(store)
	analyticsService := service.NewAnalyticsService(sessionRepo, clock)

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(authService, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Rooms:     handler.NewRoomHandler(roomService),
		Analytics: handler.NewAnalyticsHandler(analyticsService),
	}, cfg.CORSOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("db_path", cfg.DBPath).
			Int("max_participants", cfg.Rooms.MaxParticipants).
			Dur("inactivity_timeout", cfg.Rooms.InactivityTimeout).
			Dur("sweep_interval", cfg.Rooms.SweepInterval).
			Msg("room server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("run server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
