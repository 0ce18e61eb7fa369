package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-absint/internal/log"
)

// Config holds all configuration for absint
type Config struct {
	// Workers bounds how many functions are analysed concurrently
	Workers int `yaml:"workers" env:"ABSINT_WORKERS" validate:"gte=1,lte=256"`

	// FoldNumericConstants decodes integer constants into point intervals
	FoldNumericConstants bool `yaml:"fold_numeric_constants" env:"ABSINT_FOLD_NUMERIC_CONSTANTS"`

	// Report cache
	CacheEnabled bool   `yaml:"cache_enabled" env:"ABSINT_CACHE_ENABLED"`
	CachePath    string `yaml:"cache_path" env:"ABSINT_CACHE_PATH" validate:"required_if=CacheEnabled true"`
	CacheSize    int    `yaml:"cache_size" env:"ABSINT_CACHE_SIZE" validate:"gte=1"`

	// MetricsAddr serves Prometheus metrics in watch mode when set
	MetricsAddr string `yaml:"metrics_addr" env:"ABSINT_METRICS_ADDR" validate:"omitempty,hostname_port"`

	// Logging
	LogLevel string `yaml:"log_level" env:"ABSINT_LOG_LEVEL" validate:"loglevel"`
	LogJSON  bool   `yaml:"log_json" env:"ABSINT_LOG_JSON"`
	Verbose  bool   `yaml:"verbose" env:"ABSINT_VERBOSE"`

	// WatchDebounceMs coalesces bursts of file events in watch mode
	WatchDebounceMs int `yaml:"watch_debounce_ms" env:"ABSINT_WATCH_DEBOUNCE_MS" validate:"gte=0,lte=60000"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := log.ParseLevel(fl.Field().String())
		return err == nil
	})
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:              4,
		FoldNumericConstants: false,
		CacheEnabled:         true,
		CachePath:            filepath.Join(".absint", "cache.msgpack"),
		CacheSize:            4096,
		MetricsAddr:          "",
		LogLevel:             "info",
		LogJSON:              false,
		Verbose:              false,
		WatchDebounceMs:      300,
	}
}

// GlobalConfigFilePath returns the global config file path (~/.absint/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".absint/config.yaml"
	}
	return filepath.Join(home, ".absint", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.absint/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".absint", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Project-level config (./.absint/config.yaml)
// 2. Environment variables
// 3. Global config (~/.absint/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := mergeFile(cfg, GlobalConfigFilePath()); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := mergeFile(cfg, ProjectConfigFilePath()); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeFile overlays the YAML file at path onto cfg. A missing file is not an error.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ABSINT_WORKERS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.Workers = i
		}
	}
	if v := os.Getenv("ABSINT_FOLD_NUMERIC_CONSTANTS"); v != "" {
		cfg.FoldNumericConstants = parseBool(v)
	}
	if v := os.Getenv("ABSINT_CACHE_ENABLED"); v != "" {
		cfg.CacheEnabled = parseBool(v)
	}
	if v := os.Getenv("ABSINT_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("ABSINT_CACHE_SIZE"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheSize = i
		}
	}
	if v := os.Getenv("ABSINT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("ABSINT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ABSINT_LOG_JSON"); v != "" {
		cfg.LogJSON = parseBool(v)
	}
	if v := os.Getenv("ABSINT_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := os.Getenv("ABSINT_WATCH_DEBOUNCE_MS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.WatchDebounceMs = i
		}
	}
}

// Validate checks field ranges and the log level.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Logger builds a logger honouring LogLevel, LogJSON and Verbose.
func (c *Config) Logger() *log.DefaultLogger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if c.Verbose {
		level = log.DebugLevel
	}
	return log.New(log.LoggerConfig{Level: level, JSONOutput: c.LogJSON})
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
