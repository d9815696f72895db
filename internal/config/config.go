// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultMode           = "hybrid"
	defaultRecursive      = true
	defaultWorkers        = 0 // 0 means "resolve to NumCPU at Load time"
	defaultQuickTimeout   = 45 * time.Second
	defaultDeepTimeout    = 15 * time.Minute
	defaultQuickDuration  = 30 // ffmpeg -t seconds for quick depth
	defaultInspectorPath  = ""
	defaultResumeEnabled  = true
	defaultOutputDir      = "."
	defaultLogLevel       = "info"
	defaultLogPretty      = false
	defaultContentProbe   = false
	minWorkers            = 1
	maxWorkers            = 32
	envPrefix             = "CVI"
)

// Config holds all application configuration.
type Config struct {
	Scan    ScanConfig
	Logging LoggingConfig
}

// ScanConfig holds scan-engine parameters. Field names mirror
// internal/scanner.Params so Load can feed the Controller directly.
type ScanConfig struct {
	Root          string
	Mode          string
	Recursive     bool
	Extensions    []string
	Workers       int
	QuickTimeout  time.Duration
	DeepTimeout   time.Duration
	QuickDuration int // seconds passed to the inspector's -t flag at quick depth
	InspectorPath string
	ResumeEnabled bool
	OutputDir     string
	ContentProbe  bool
	ProbePath     string
	SnapshotPath  string // optional; when set, dumps a human-readable YAML results snapshot here
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from .env file, config files, environment variables, and defaults.
func Load() (*Config, error) {
	// .env files are optional in production and CI where env vars are set directly.
	_ = godotenv.Load() // nolint:errcheck

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cviscan")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Scan.Workers == 0 {
		cfg.Scan.Workers = clampWorkers(runtime.NumCPU())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func clampWorkers(n int) int {
	if n < minWorkers {
		return minWorkers
	}
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("scan.root", ".")
	v.SetDefault("scan.mode", defaultMode)
	v.SetDefault("scan.recursive", defaultRecursive)
	v.SetDefault("scan.extensions", []string{".mp4", ".mkv", ".avi", ".mov", ".webm", ".flv", ".wmv", ".m4v"})
	v.SetDefault("scan.workers", defaultWorkers)
	v.SetDefault("scan.quicktimeout", defaultQuickTimeout)
	v.SetDefault("scan.deeptimeout", defaultDeepTimeout)
	v.SetDefault("scan.quickduration", defaultQuickDuration)
	v.SetDefault("scan.inspectorpath", defaultInspectorPath)
	v.SetDefault("scan.resumeenabled", defaultResumeEnabled)
	v.SetDefault("scan.outputdir", defaultOutputDir)
	v.SetDefault("scan.contentprobe", defaultContentProbe)
	v.SetDefault("scan.probepath", "")
	v.SetDefault("scan.snapshotpath", "")

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.Scan.Root == "" {
		return errors.New("scan root cannot be empty")
	}

	validModes := []string{"quick", "deep", "hybrid", "full"}
	if !contains(validModes, c.Scan.Mode) {
		return fmt.Errorf("invalid scan mode: %s (must be one of: %s)", c.Scan.Mode, strings.Join(validModes, ", "))
	}

	if c.Scan.Workers < minWorkers || c.Scan.Workers > maxWorkers {
		return fmt.Errorf("invalid worker count: %d (must be between %d and %d)", c.Scan.Workers, minWorkers, maxWorkers)
	}

	if c.Scan.QuickTimeout <= 0 {
		return fmt.Errorf("invalid quick timeout: %v (must be > 0)", c.Scan.QuickTimeout)
	}

	if c.Scan.Mode != "full" && c.Scan.DeepTimeout <= 0 {
		return fmt.Errorf("invalid deep timeout: %v (must be > 0 unless mode is full)", c.Scan.DeepTimeout)
	}

	if c.Scan.QuickDuration <= 0 {
		return fmt.Errorf("invalid quick duration: %d (must be > 0)", c.Scan.QuickDuration)
	}

	if c.Scan.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	return nil
}

// contains checks if a string slice contains a specific value.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
