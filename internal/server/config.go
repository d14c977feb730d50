package server

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the rendezvous server configuration, read from an optional YAML
// file with environment variable overrides.
type Config struct {
	Env  string `yaml:"env" env:"ENV" env-default:"local"`
	HTTP struct {
		Address string `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	} `yaml:"http"`
	Database struct {
		// DSN is a Postgres connection string. Empty keeps the room
		// directory in memory.
		DSN string `yaml:"dsn" env:"DATABASE_DSN" env-default:""`
	} `yaml:"database"`
}

// MustLoad reads CONFIG_PATH if set (or present on disk), then applies
// environment overrides. Panics on malformed config, matching the fail-fast
// startup of the binaries.
func MustLoad() *Config {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat("config/local.yaml"); err == nil {
			path = "config/local.yaml"
		}
	}

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			panic("cannot read config " + path + ": " + err.Error())
		}
		return &cfg
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("cannot read config from environment: " + err.Error())
	}
	return &cfg
}
