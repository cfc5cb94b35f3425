package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	BackendURL     string        `env:"JUSTICIA_BACKEND_URL" envDefault:"http://localhost:8080"`
	AuthToken      string        `env:"JUSTICIA_TOKEN"`
	UserId         string        `env:"JUSTICIA_USER_ID"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	StreamTimeout  time.Duration `env:"STREAM_TIMEOUT" envDefault:"300s"`

	// StorageBackend selects where conversation context persists:
	// badger, sqlite or memory.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"badger"`
	StoragePath    string `env:"STORAGE_PATH" envDefault:".justicia"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file, then parses the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.StorageBackend {
	case "badger", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	return &cfg, nil
}
