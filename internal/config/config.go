package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"typerace"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres    Postgres
	Redis       Redis
	Race        Race
	Webhook     Webhook
	Leaderboard Leaderboard
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds cache + leaderboard configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Race groups gameplay tunables. The countdown, grace period, NPC cadence and
// backfill sizing are heuristics, not invariants; change freely.
type Race struct {
	MaxPlayers     int           `env:"RACE_MAX_PLAYERS" envDefault:"8"`
	Countdown      time.Duration `env:"RACE_COUNTDOWN_SECONDS" envDefault:"3s"`
	Grace          time.Duration `env:"RACE_GRACE_SECONDS" envDefault:"5s"`
	NPCTick        time.Duration `env:"RACE_NPC_TICK" envDefault:"100ms"`
	BackfillMin    int           `env:"RACE_BACKFILL_MIN" envDefault:"6"`
	BackfillMax    int           `env:"RACE_BACKFILL_MAX" envDefault:"8"`
	NPCWPMVariance float64       `env:"RACE_NPC_WPM_VARIANCE" envDefault:"12"`
	DefaultWPM     float64       `env:"RACE_DEFAULT_REFERENCE_WPM" envDefault:"40"`
}

// Webhook configures the fire-and-forget race completion notifier.
type Webhook struct {
	URL     string        `env:"WEBHOOK_URL"`
	Timeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
}

// Leaderboard governs the experience leaderboard.
type Leaderboard struct {
	TopN int `env:"LEADERBOARD_TOP" envDefault:"50"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
