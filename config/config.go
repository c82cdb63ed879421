package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is read from KHANSTYLE_* environment variables at startup.
type Config struct {
	Addr      string `env:"KHANSTYLE_ADDR"       envDefault:":8080"`
	LogLevel  string `env:"KHANSTYLE_LOG_LEVEL"  envDefault:"info"`
	LogPretty bool   `env:"KHANSTYLE_LOG_PRETTY" envDefault:"false"`

	// DB is a postgres:// URL or an SQLite path. Empty disables the catalog.
	DB      string `env:"KHANSTYLE_DB_DSN"`
	MapID   string `env:"KHANSTYLE_MAP_ID"  envDefault:"default"`
	Migrate bool   `env:"KHANSTYLE_MIGRATE" envDefault:"false"`
	Seed    bool   `env:"KHANSTYLE_SEED"    envDefault:"false"`

	StyleFile   string `env:"KHANSTYLE_STYLE_FILE"`
	Snapshot    string `env:"KHANSTYLE_SNAPSHOT"`
	IconDir     string `env:"KHANSTYLE_ICON_DIR"     envDefault:"public/icons"`
	FilterCache int64  `env:"KHANSTYLE_FILTER_CACHE" envDefault:"4194304"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MapID == "" {
		cfg.MapID = "default"
	}
	return cfg, nil
}
