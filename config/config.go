// Package config collects the server's environment settings in one place.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full server configuration, populated from the environment
// with production defaults.
type Config struct {
	Host string
	Port int

	MongoURI      string // empty disables persistence
	MongoDatabase string

	MatchmakingTimeout time.Duration
	ReconnectGrace     time.Duration
	BotMoveDelay       time.Duration

	NgrokEnabled bool
	Debug        bool
}

// FromEnv builds a Config from the process environment. Unset variables
// fall back to defaults; unparsable values are errors rather than silent
// fallbacks.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Host:               "0.0.0.0",
		Port:               8080,
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDatabase:      "dropfour",
		MatchmakingTimeout: 10 * time.Second,
		ReconnectGrace:     30 * time.Second,
		BotMoveDelay:       500 * time.Millisecond,
	}

	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.MongoDatabase = v
	}

	var err error
	if cfg.MatchmakingTimeout, err = durationEnv("MATCHMAKING_TIMEOUT", cfg.MatchmakingTimeout); err != nil {
		return nil, err
	}
	if cfg.ReconnectGrace, err = durationEnv("RECONNECT_GRACE", cfg.ReconnectGrace); err != nil {
		return nil, err
	}
	if cfg.BotMoveDelay, err = durationEnv("BOT_MOVE_DELAY", cfg.BotMoveDelay); err != nil {
		return nil, err
	}

	cfg.NgrokEnabled = os.Getenv("NGROK_AUTHTOKEN") != ""
	cfg.Debug = boolEnv("DEBUG")

	return cfg, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

func boolEnv(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}
