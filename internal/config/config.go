// Package config holds exploration and logging configuration, with the
// same Default/LoadFromEnv/Validate/String shape the teacher uses for its
// server configuration, repurposed from connection/storage limits to
// exploration bounds.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for one model-checking run.
type Config struct {
	Explorer ExplorerConfig
	Logging  LoggingConfig
}

// ExplorerConfig bounds the BFS exploration so a non-terminating or
// explosively large model can't run forever.
type ExplorerConfig struct {
	MaxStates int
	MaxQueue  int
}

// LoggingConfig controls the verbosity of progress logging.
type LoggingConfig struct {
	Level       string
	Development bool
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Explorer: ExplorerConfig{
			MaxStates: 1_000_000,
			MaxQueue:  1_000_000,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables, falling
// back to defaults.
func LoadFromEnv() *Config {
	cfg := Default()

	if maxStatesStr := os.Getenv("METSCHECK_MAX_STATES"); maxStatesStr != "" {
		if maxStates, err := strconv.Atoi(maxStatesStr); err == nil {
			cfg.Explorer.MaxStates = maxStates
		}
	}
	if maxQueueStr := os.Getenv("METSCHECK_MAX_QUEUE"); maxQueueStr != "" {
		if maxQueue, err := strconv.Atoi(maxQueueStr); err == nil {
			cfg.Explorer.MaxQueue = maxQueue
		}
	}
	if level := os.Getenv("METSCHECK_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if dev := os.Getenv("METSCHECK_LOG_DEV"); dev != "" {
		if b, err := strconv.ParseBool(dev); err == nil {
			cfg.Logging.Development = b
		}
	}

	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Explorer.MaxStates <= 0 {
		return fmt.Errorf("max states must be positive: %d", c.Explorer.MaxStates)
	}
	if c.Explorer.MaxQueue <= 0 {
		return fmt.Errorf("max queue must be positive: %d", c.Explorer.MaxQueue)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}

// String returns a formatted string representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf(`Model Checker Configuration:
  Explorer:
    Max States: %d
    Max Queue: %d
  Logging:
    Level: %s
    Development: %v`,
		c.Explorer.MaxStates, c.Explorer.MaxQueue,
		c.Logging.Level, c.Logging.Development)
}
