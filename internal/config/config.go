// Package config provides configuration management for the ViGenAiR engine.
// Configuration is loaded from an optional YAML file and environment
// variables, with environment variables taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort           = 8590
	DefaultLogLevel       = "info"
	DefaultDataDir        = ".vigenair"
	DefaultTickIntervalMS = 10

	// Environment variable names
	EnvPort         = "VIGENAIR_PORT"
	EnvLogLevel     = "VIGENAIR_LOG_LEVEL"
	EnvDataDir      = "VIGENAIR_DATA_DIR"
	EnvConfigFile   = "VIGENAIR_CONFIG"
	EnvTickInterval = "VIGENAIR_TICK_INTERVAL_MS"

	// Database filename
	DBFilename = "vigenair.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	TickInterval() time.Duration
}

// FileConfig is the shape of the optional YAML config file.
type FileConfig struct {
	Port           int    `yaml:"port"`
	LogLevel       string `yaml:"log_level"`
	DataDir        string `yaml:"data_dir"`
	TickIntervalMS int    `yaml:"tick_interval_ms"`
}

// EnvConfig reads configuration from the config file and environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	dataDir        string
	tickIntervalMS int
}

// New creates a new EnvConfig with defaults, config-file values and
// environment variable overrides, in that order.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		tickIntervalMS: DefaultTickIntervalMS,
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if ti := os.Getenv(EnvTickInterval); ti != "" {
		interval, err := strconv.Atoi(ti)
		if err != nil || interval < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvTickInterval)
		}
		cfg.tickIntervalMS = interval
	}

	return cfg, nil
}

func (c *EnvConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		if fc.Port < 1 || fc.Port > 65535 {
			return fmt.Errorf("invalid port in config file: %d", fc.Port)
		}
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.TickIntervalMS != 0 {
		if fc.TickIntervalMS < 1 {
			return fmt.Errorf("invalid tick_interval_ms in config file: %d", fc.TickIntervalMS)
		}
		c.tickIntervalMS = fc.TickIntervalMS
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// TickInterval returns the playback sequencer tick interval
func (c *EnvConfig) TickInterval() time.Duration {
	return time.Duration(c.tickIntervalMS) * time.Millisecond
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
