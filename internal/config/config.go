package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	HistorySQLite = "sqlite"
	HistoryMemory = "memory"

	ModeLive = "live"
	ModeFake = "fake"

	maxWorkers = 16
)

// Config holds all application configuration. Values come from the embedded
// defaults, then an optional TOML file, then environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Transfer  TransferConfig  `toml:"transfer"`
	Matcher   MatcherConfig   `toml:"matcher"`
	History   HistoryConfig   `toml:"history"`
	Platforms PlatformsConfig `toml:"platforms"`
}

type ServerConfig struct {
	Port     string `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type TransferConfig struct {
	Workers       int    `toml:"workers"`
	BatchSize     int    `toml:"batch_size"`
	WriteAttempts int    `toml:"write_attempts"`
	JobRetention  string `toml:"job_retention"`
}

type MatcherConfig struct {
	SearchLimit      int     `toml:"search_limit"`
	MinScore         float64 `toml:"min_score"`
	MaxDurationDelta int     `toml:"max_duration_delta"`
}

type HistoryConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

type PlatformsConfig struct {
	// Mode is "live" for the real APIs or "fake" for the seeded demo catalogs.
	Mode    string         `toml:"mode"`
	Spotify PlatformConfig `toml:"spotify"`
	YouTube PlatformConfig `toml:"youtube"`
}

type PlatformConfig struct {
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Retention parses Transfer.JobRetention.
func (c *Config) Retention() time.Duration {
	d, _ := time.ParseDuration(c.Transfer.JobRetention)
	return d
}

// DefaultConfig returns the configuration embedded in the binary.
func DefaultConfig() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &cfg
}

// Load reads the .env file (if present), the TOML file at path (if non-empty,
// or named by CONFIG_FILE) and environment variables, in that order of
// increasing precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment variables")
	}

	cfg := DefaultConfig()
	if path == "" {
		path = getEnv("CONFIG_FILE", "")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)
	c.Transfer.JobRetention = getEnv("JOB_RETENTION", c.Transfer.JobRetention)
	c.History.Driver = strings.ToLower(getEnv("HISTORY_DRIVER", c.History.Driver))
	c.History.Path = getEnv("DATABASE_PATH", c.History.Path)
	c.Platforms.Mode = strings.ToLower(getEnv("PLATFORM_MODE", c.Platforms.Mode))
	c.Platforms.Spotify.BaseURL = getEnv("SPOTIFY_BASE_URL", c.Platforms.Spotify.BaseURL)
	c.Platforms.YouTube.BaseURL = getEnv("YOUTUBE_BASE_URL", c.Platforms.YouTube.BaseURL)

	var errs []error
	ints := map[string]*int{
		"MATCH_WORKERS":      &c.Transfer.Workers,
		"BATCH_SIZE":         &c.Transfer.BatchSize,
		"WRITE_ATTEMPTS":     &c.Transfer.WriteAttempts,
		"SEARCH_LIMIT":       &c.Matcher.SearchLimit,
		"MAX_DURATION_DELTA": &c.Matcher.MaxDurationDelta,
	}
	for key, dst := range ints {
		if err := envInt(key, dst); err != nil {
			errs = append(errs, err)
		}
	}
	floats := map[string]*float64{
		"MIN_MATCH_SCORE": &c.Matcher.MinScore,
		"SPOTIFY_RPS":     &c.Platforms.Spotify.RequestsPerSecond,
		"YOUTUBE_RPS":     &c.Platforms.YouTube.RequestsPerSecond,
	}
	for key, dst := range floats {
		if err := envFloat(key, dst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate rejects values the service cannot run with. Worker counts outside
// 1..16 are clamped instead.
func (c *Config) Validate() error {
	c.Transfer.Workers = min(max(c.Transfer.Workers, 1), maxWorkers)

	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port must not be empty"))
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Server.LogLevel))
	}
	if c.Transfer.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.Transfer.BatchSize))
	}
	if c.Transfer.WriteAttempts < 1 {
		errs = append(errs, fmt.Errorf("write attempts must be positive, got %d", c.Transfer.WriteAttempts))
	}
	if d, err := time.ParseDuration(c.Transfer.JobRetention); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("invalid job retention %q", c.Transfer.JobRetention))
	}
	if c.Matcher.SearchLimit < 1 {
		errs = append(errs, fmt.Errorf("search limit must be positive, got %d", c.Matcher.SearchLimit))
	}
	if c.Matcher.MinScore <= 0 || c.Matcher.MinScore > 1 {
		errs = append(errs, fmt.Errorf("min match score must be in (0, 1], got %v", c.Matcher.MinScore))
	}
	if c.Matcher.MaxDurationDelta < 1 {
		errs = append(errs, fmt.Errorf("max duration delta must be positive, got %d", c.Matcher.MaxDurationDelta))
	}
	switch c.History.Driver {
	case HistorySQLite:
		if c.History.Path == "" {
			errs = append(errs, errors.New("database path is required for the sqlite history driver"))
		}
	case HistoryMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown history driver %q", c.History.Driver))
	}
	if c.Platforms.Mode != ModeLive && c.Platforms.Mode != ModeFake {
		errs = append(errs, fmt.Errorf("unknown platform mode %q", c.Platforms.Mode))
	}
	return errors.Join(errs...)
}

// CreateConfigFile writes the embedded example config to path.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func envInt(key string, dst *int) error {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	*dst = v
	return nil
}

func envFloat(key string, dst *float64) error {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("%s: invalid number %q", key, raw)
	}
	*dst = v
	return nil
}
