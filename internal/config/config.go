package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pomodoro/collab/internal/model"
)

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string
	LogLevel      string
	Rooms         RoomConfig
}

// RoomConfig holds the limits and defaults of the in-memory room store.
type RoomConfig struct {
	DefaultSettings   model.TimerSettings
	MaxParticipants   int
	InactivityTimeout time.Duration
	SweepInterval     time.Duration
}

// roomFile is the shape of the optional ROOM_CONFIG_PATH file. Zero values
// leave the environment's value in place.
type roomFile struct {
	Defaults          model.TimerSettings `yaml:"defaults"`
	MaxParticipants   int                 `yaml:"max_participants"`
	InactivityTimeout string              `yaml:"inactivity_timeout"`
	SweepInterval     string              `yaml:"sweep_interval"`
}

func Load() (Config, error) {
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "./data/pomodoro.db"),
		JWTSecret:     getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:      time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Rooms: RoomConfig{
			DefaultSettings:   model.DefaultTimerSettings(),
			MaxParticipants:   getEnvInt("ROOM_MAX_PARTICIPANTS", 20),
			InactivityTimeout: getEnvDuration("ROOM_INACTIVITY_TIMEOUT", 2*time.Hour),
			SweepInterval:     getEnvDuration("ROOM_SWEEP_INTERVAL", 0),
		},
	}

	if path := os.Getenv("ROOM_CONFIG_PATH"); path != "" {
		if err := cfg.Rooms.loadFile(path); err != nil {
			return cfg, err
		}
	}

	if !cfg.Rooms.DefaultSettings.Valid() {
		return cfg, errors.New("room defaults: durations must be positive and long_break_interval at least 2")
	}
	if cfg.Rooms.MaxParticipants <= 0 {
		return cfg, fmt.Errorf("room max participants must be positive, got %d", cfg.Rooms.MaxParticipants)
	}
	if cfg.Rooms.InactivityTimeout <= 0 {
		return cfg, fmt.Errorf("room inactivity timeout must be positive, got %s", cfg.Rooms.InactivityTimeout)
	}
	return cfg, nil
}

func (c *RoomConfig) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read room config: %w", err)
	}

	var file roomFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse room config yaml: %w", err)
	}

	if file.Defaults.WorkDuration != 0 {
		c.DefaultSettings.WorkDuration = file.Defaults.WorkDuration
	}
	if file.Defaults.ShortBreakDuration != 0 {
		c.DefaultSettings.ShortBreakDuration = file.Defaults.ShortBreakDuration
	}
	if file.Defaults.LongBreakDuration != 0 {
		c.DefaultSettings.LongBreakDuration = file.Defaults.LongBreakDuration
	}
	if file.Defaults.LongBreakInterval != 0 {
		c.DefaultSettings.LongBreakInterval = file.Defaults.LongBreakInterval
	}
	if file.MaxParticipants != 0 {
		c.MaxParticipants = file.MaxParticipants
	}
	if file.InactivityTimeout != "" {
		d, err := time.ParseDuration(file.InactivityTimeout)
		if err != nil {
			return fmt.Errorf("parse inactivity_timeout: %w", err)
		}
		c.InactivityTimeout = d
	}
	if file.SweepInterval != "" {
		d, err := time.ParseDuration(file.SweepInterval)
		if err != nil {
			return fmt.Errorf("parse sweep_interval: %w", err)
		}
		c.SweepInterval = d
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
