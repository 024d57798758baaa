package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/shatranj.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"web/dist"`

	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	InviteTTL       time.Duration `env:"INVITE_TTL" envDefault:"10m"`
	PairingDelay    time.Duration `env:"PAIRING_DELAY" envDefault:"3s"`
	PuzzleTimeLimit time.Duration `env:"PUZZLE_TIME_LIMIT" envDefault:"5m"`

	SeedDemo      bool   `env:"SEED_DEMO" envDefault:"true"`
	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@shatranj.example"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"changeme"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
