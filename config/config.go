// Package config loads the collection server configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the server configuration. Values come from an optional TOML
// file and are then overridden by environment variables.
type Config struct {
	Host            string        `toml:"host"`
	Port            string        `toml:"port"`
	DataDir         string        `toml:"data_dir"`
	Backend         string        `toml:"backend"`
	DSN             string        `toml:"dsn"`
	AllowedOrigins  []string      `toml:"allowed_origins"`
	SeedFile        string        `toml:"seed_file"`
	SeedDefaults    bool          `toml:"seed_defaults"`
	LogLevel        string        `toml:"log_level"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            "8080",
		DataDir:         "./data",
		Backend:         "json",
		AllowedOrigins:  []string{"*"},
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads path (if non-empty) over the defaults, then applies the
// environment: HOST, PORT, DATA_DIR, STORE_BACKEND, DATABASE_DSN,
// ALLOWED_ORIGINS, SEED_FILE, SEED_DEFAULTS, LOG_LEVEL, SHUTDOWN_TIMEOUT.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *Config) applyEnv() error {
	c.Host = env("HOST", c.Host)
	c.Port = env("PORT", c.Port)
	c.DataDir = env("DATA_DIR", c.DataDir)
	c.Backend = env("STORE_BACKEND", c.Backend)
	c.DSN = env("DATABASE_DSN", c.DSN)
	c.SeedFile = env("SEED_FILE", c.SeedFile)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SEED_DEFAULTS"); v != "" {
		c.SeedDefaults = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	return nil
}
