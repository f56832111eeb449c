// Package config loads server configuration using a two-phase pattern:
// compiled-in defaults, then an optional config.json, then environment
// variable overrides. Fields not set in either source retain their
// default values.
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// SimulationConfig controls the optional synthetic-player load generator.
type SimulationConfig struct {
	Enabled    bool `json:"enabled"`
	Players    int  `json:"players"`
	Tries      int  `json:"tries"`
	MaxDelayMS int  `json:"max_delay_ms"`
}

// Config holds all configurable server parameters.
type Config struct {
	BoardFile            string `json:"board_file"`
	HTTPPort             int    `json:"http_port"`
	ResetIntervalSec     int    `json:"reset_interval_sec"`
	KeepAliveIntervalSec int    `json:"keep_alive_interval_sec"`
	AuthIssuerURL        string `json:"auth_issuer_url"`
	DatabaseURL          string `json:"database_url"`
	MaxPlayerIDLength    int    `json:"max_player_id_length"`

	// Simulation configures the synthetic-player driver.
	Simulation SimulationConfig `json:"simulation"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		BoardFile:            "board.txt",
		HTTPPort:             8080,
		ResetIntervalSec:     0,
		KeepAliveIntervalSec: 0,
		AuthIssuerURL:        "",
		DatabaseURL:          "",
		MaxPlayerIDLength:    24,
		Simulation: SimulationConfig{
			Enabled:    false,
			Players:    4,
			Tries:      50,
			MaxDelayMS: 400,
		},
	}
}

// Load reads configuration from an optional config.json file, then
// applies environment variable overrides.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	overrideString(&cfg.BoardFile, "BOARD_FILE")
	overrideInt(&cfg.HTTPPort, "HTTP_PORT")
	overrideInt(&cfg.ResetIntervalSec, "RESET_INTERVAL_SEC")
	overrideInt(&cfg.KeepAliveIntervalSec, "KEEP_ALIVE_INTERVAL_SEC")
	overrideString(&cfg.AuthIssuerURL, "AUTH_ISSUER_URL")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideInt(&cfg.MaxPlayerIDLength, "MAX_PLAYER_ID_LENGTH")
	overrideBool(&cfg.Simulation.Enabled, "SIMULATION_ENABLED")
	overrideInt(&cfg.Simulation.Players, "SIMULATION_PLAYERS")
	overrideInt(&cfg.Simulation.Tries, "SIMULATION_TRIES")
	overrideInt(&cfg.Simulation.MaxDelayMS, "SIMULATION_MAX_DELAY_MS")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func overrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*field = b
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}
