// Package config loads the minimark YAML configuration, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nikbrunner/minimark/internal/view"
)

// Default config file path.
const DefaultConfigPath = "~/.config/minimark/config.yaml"

// Config holds all minimark configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	View    ViewConfig    `yaml:"view"`
	Archive ArchiveConfig `yaml:"archive"`
	Checker CheckerConfig `yaml:"checker"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
}

type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

type ViewConfig struct {
	Sort           string `yaml:"sort"`
	GroupLinkOrder string `yaml:"group_link_order"`
	FuzzySearch    bool   `yaml:"fuzzy_search"`
}

type ArchiveConfig struct {
	AutoArchive bool   `yaml:"auto_archive"`
	Threshold   string `yaml:"threshold"`
}

type CheckerConfig struct {
	ProxyURL     string        `yaml:"proxy_url"`
	Interval     time.Duration `yaml:"interval"`
	RecheckAfter time.Duration `yaml:"recheck_after"`
	Timeout      time.Duration `yaml:"timeout"`
	DeadAfter    time.Duration `yaml:"dead_after"`
}

type FetchConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "~/.config/minimark/bookmarks.db",
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "minimark",
			},
		},
		View: ViewConfig{
			Sort:           "default",
			GroupLinkOrder: "mixed",
		},
		Archive: ArchiveConfig{
			Threshold: "6m",
		},
		Checker: CheckerConfig{
			ProxyURL:     "https://api.allorigins.win/get",
			Interval:     30 * time.Second,
			RecheckAfter: 24 * time.Hour,
			Timeout:      15 * time.Second,
			DeadAfter:    7 * 24 * time.Hour,
		},
		Fetch: FetchConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 1,
			Backoff:    2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load reads a YAML config file at path and merges it with defaults, then
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(cfg)
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return finish(cfg)
	}

	return Load(path)
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are not an error; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading .env file: %w", err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with MINIMARK_* environment variables.
func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"MINIMARK_STORAGE_BACKEND": &cfg.Storage.Backend,
		"MINIMARK_STORAGE_PATH":    &cfg.Storage.Path,
		"MINIMARK_REDIS_ADDR":      &cfg.Storage.Redis.Addr,
		"MINIMARK_PROXY_URL":       &cfg.Checker.ProxyURL,
		"MINIMARK_LOG_LEVEL":       &cfg.Logging.Level,
		"MINIMARK_SERVER_ADDR":     &cfg.Server.Addr,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("MINIMARK_CHECK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MINIMARK_CHECK_INTERVAL: %w", err)
		}
		cfg.Checker.Interval = d
	}
	if v := os.Getenv("MINIMARK_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MINIMARK_REDIS_DB: %w", err)
		}
		cfg.Storage.Redis.DB = n
	}
	return nil
}

var (
	backends   = []string{"sqlite", "json", "redis"}
	thresholds = []string{"1m", "6m", "1y", "5y", "10y"}
	levels     = []string{"debug", "info", "warn", "error"}
)

// Validate rejects unknown enum values and non-positive durations.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(field, v string, allowed []string) {
		if !slices.Contains(allowed, v) {
			errs = append(errs, fmt.Errorf("%s: %q is not one of %v", field, v, allowed))
		}
	}
	positive := func(field string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", field, d))
		}
	}

	oneOf("storage.backend", c.Storage.Backend, backends)
	if _, err := view.ParseSortKey(c.View.Sort); err != nil {
		errs = append(errs, fmt.Errorf("view.sort: %w", err))
	}
	if _, err := view.ParseGroupLinkOrder(c.View.GroupLinkOrder); err != nil {
		errs = append(errs, fmt.Errorf("view.group_link_order: %w", err))
	}
	oneOf("archive.threshold", c.Archive.Threshold, thresholds)
	oneOf("logging.level", c.Logging.Level, levels)

	positive("checker.interval", c.Checker.Interval)
	positive("checker.recheck_after", c.Checker.RecheckAfter)
	positive("checker.timeout", c.Checker.Timeout)
	positive("checker.dead_after", c.Checker.DeadAfter)
	positive("fetch.timeout", c.Fetch.Timeout)
	positive("fetch.backoff", c.Fetch.Backoff)

	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("fetch.max_retries must not be negative, got %d", c.Fetch.MaxRetries))
	}
	if c.Storage.Backend != "redis" && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// StoragePath returns the storage path with a leading ~ expanded.
func (c *Config) StoragePath() (string, error) {
	return ExpandPath(c.Storage.Path)
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
