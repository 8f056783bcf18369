// Package config loads tribesim settings from an optional YAML file, an optional
// .env file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full tribesim configuration.
type Config struct {
	World WorldConfig `yaml:"world" json:"world"`
	Sim   SimConfig   `yaml:"sim" json:"sim"`
	DB    DBConfig    `yaml:"db" json:"db"`
	API   APIConfig   `yaml:"api" json:"api"`
	Log   LogConfig   `yaml:"log" json:"log"`
}

// WorldConfig shapes terrain generation.
type WorldConfig struct {
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
	Seed   int64  `yaml:"seed" json:"seed"` // 0 = random
	Noise  string `yaml:"noise" json:"noise"`
}

// SimConfig tunes the tick loop, events and autosave.
type SimConfig struct {
	MaxTribes      int           `yaml:"max_tribes" json:"max_tribes"`
	TickInterval   time.Duration `yaml:"tick_interval" json:"tick_interval"`
	FrameInterval  time.Duration `yaml:"frame_interval" json:"frame_interval"`
	AutosaveEvery  int           `yaml:"autosave_every" json:"autosave_every"` // Ticks
	ReportEvery    uint64        `yaml:"report_every" json:"report_every"`
	EventTTL       time.Duration `yaml:"event_ttl" json:"event_ttl"`
	StartSpeed     string        `yaml:"start_speed" json:"start_speed"`
	AutoResolveAI  bool          `yaml:"auto_resolve_ai" json:"auto_resolve_ai"`
	ResumeAutosave bool          `yaml:"resume_autosave" json:"resume_autosave"`
}

// DBConfig selects the save store. Driver is "sqlite" or "postgres".
type DBConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// APIConfig configures the HTTP API. CORS_ORIGINS replaces CORSOrigins.
type APIConfig struct {
	Port        int      `yaml:"port" json:"port"` // 0 disables the API
	AdminKey    string   `yaml:"admin_key" json:"-"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
	RatePerSec  float64  `yaml:"rate_per_sec" json:"rate_per_sec"`
	Burst       int      `yaml:"burst" json:"burst"`
}

// LogConfig sets the slog level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		World: WorldConfig{Width: 200, Height: 150, Noise: "value"},
		Sim: SimConfig{
			MaxTribes:      500,
			TickInterval:   time.Second,
			FrameInterval:  16 * time.Millisecond,
			AutosaveEvery:  100,
			ReportEvery:    100,
			EventTTL:       300 * time.Second,
			StartSpeed:     "normal",
			AutoResolveAI:  true,
			ResumeAutosave: true,
		},
		DB: DBConfig{Driver: "sqlite", DSN: "data/tribesim.db"},
		API: APIConfig{
			Port: 8080,
			CORSOrigins: []string{
				"http://localhost:5173",
				"http://localhost:4173",
				"http://localhost:3000",
			},
			RatePerSec: 10,
			Burst:      20,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration. path may be empty or name a missing file, in which
// case defaults stand. envFile is loaded into the environment when it exists;
// variables already set win over it.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("no config file, using defaults", "path", path)
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TRIBESIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TRIBESIM_SEED: %w", err)
		}
		c.World.Seed = seed
	}
	if v := os.Getenv("TRIBESIM_DB_DRIVER"); v != "" {
		c.DB.Driver = v
	}
	if v := os.Getenv("TRIBESIM_DB_DSN"); v != "" {
		c.DB.DSN = v
	}
	if v := os.Getenv("TRIBESIM_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRIBESIM_API_PORT: %w", err)
		}
		c.API.Port = port
	}
	if v := os.Getenv("TRIBESIM_ADMIN_KEY"); v != "" {
		c.API.AdminKey = v
	}
	if v := os.Getenv("TRIBESIM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.API.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				c.API.CORSOrigins = append(c.API.CORSOrigins, origin)
			}
		}
	}
	return nil
}

// Validate rejects settings the simulation cannot run with.
func (c Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world size %dx%d must be positive", c.World.Width, c.World.Height)
	}
	if c.World.Noise != "value" && c.World.Noise != "simplex" {
		return fmt.Errorf("unknown noise %q", c.World.Noise)
	}
	if c.Sim.MaxTribes < 0 {
		return fmt.Errorf("max_tribes %d is negative", c.Sim.MaxTribes)
	}
	if c.Sim.TickInterval <= 0 || c.Sim.FrameInterval <= 0 {
		return errors.New("tick_interval and frame_interval must be positive")
	}
	if c.Sim.AutosaveEvery <= 0 {
		return fmt.Errorf("autosave_every %d must be positive", c.Sim.AutosaveEvery)
	}
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown db driver %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("db dsn is required")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api port %d out of range", c.API.Port)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}
