package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/aleksaelezovic/tristore/internal/storage"
	"github.com/aleksaelezovic/tristore/pkg/store"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file
const DefaultPath = "tristore.yaml"

// Config is the CLI configuration
type Config struct {
	Backend          string `yaml:"backend"`
	Path             string `yaml:"path"`
	Store            string `yaml:"store"`
	ContextCacheSize int    `yaml:"context_cache_size"`
	LogLevel         string `yaml:"log_level"`
}

// Default returns the configuration used when no file is present
func Default() Config {
	return Config{
		Backend:          storage.BackendBadger,
		Path:             "./tristore_data",
		Store:            store.DefaultIdentifier,
		ContextCacheSize: store.DefaultContextCacheSize,
		LogLevel:         "info",
	}
}

// Load reads path over the defaults. A missing file is not an error unless
// required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration values
func (c Config) Validate() error {
	switch c.Backend {
	case storage.BackendBadger, storage.BackendSQLite, storage.BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Backend != storage.BackendMemory && c.Path == "" {
		return fmt.Errorf("path is required for backend %q", c.Backend)
	}
	if c.Store == "" {
		return fmt.Errorf("store identifier is empty")
	}
	if c.ContextCacheSize <= 0 {
		return fmt.Errorf("context_cache_size must be positive, got %d", c.ContextCacheSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog level
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", name)
	}
	return level, nil
}

// Marshal renders the configuration as YAML
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
