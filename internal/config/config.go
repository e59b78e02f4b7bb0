// Package config loads qmx settings from defaults, an optional YAML file
// and QMX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Default configuration values.
const (
	DefaultLogLevel     = "info"
	DefaultOutputFormat = "text"
	DefaultJournalPath  = ""
	DefaultStrict       = false
	DefaultScenarioDir  = "testdata/scenarios"
	DefaultDocumentDir  = "."
)

// Output formats accepted by output.format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidLogLevel indicates log.level is not a known slog level.
	ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error")
	// ErrInvalidOutputFormat indicates output.format is neither text nor json.
	ErrInvalidOutputFormat = errors.New("output.format must be text or json")
)

// Config is the full qmx configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Output   OutputConfig   `mapstructure:"output"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Rewrite  RewriteConfig  `mapstructure:"rewrite"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
	Document DocumentConfig `mapstructure:"document"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// OutputConfig controls command output.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// JournalConfig locates the SQLite rewrite journal. An empty path disables
// journaling for rewrite.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// RewriteConfig holds defaults for the rewrite command.
type RewriteConfig struct {
	Strict bool `mapstructure:"strict"`
}

// ScenarioConfig holds defaults for the test command.
type ScenarioConfig struct {
	Dir string `mapstructure:"dir"`
}

// DocumentConfig holds defaults for the rewrite and validate commands.
type DocumentConfig struct {
	Dir string `mapstructure:"dir"`
}

// Validate checks Config invariants and returns the first error found.
// Empty values are accepted and fall back to defaults.
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	switch c.Output.Format {
	case "", FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidOutputFormat, c.Output.Format)
	}

	return nil
}

// SlogLevel converts log.level into a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.Log.Level)
	}
}
