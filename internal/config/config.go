// Package config handles weightfix configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all weightfix settings.
type Config struct {
	Cleanup CleanupConfig `yaml:"cleanup"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// CleanupConfig holds repair pipeline settings.
type CleanupConfig struct {
	WeightTolerance float64 `yaml:"weight_tolerance"` // Allowed |sum-1| before rescaling
	NormalTolerance float64 `yaml:"normal_tolerance"` // Allowed |len-1| before renormalizing
	KeepFormat      bool    `yaml:"keep_format"`      // Never downgrade BDEF4/QDEF/BDEF2
	Workers         int     `yaml:"workers"`          // 0 uses GOMAXPROCS
	ChunkSize       int     `yaml:"chunk_size"`       // Vertices per worker task, 0 for default
}

// OutputConfig holds where and when repaired models are written.
type OutputConfig struct {
	Suffix      string `yaml:"suffix"`       // Appended to the input base name
	Overwrite   bool   `yaml:"overwrite"`    // Replace the input file instead
	AlwaysWrite bool   `yaml:"always_write"` // Write even when nothing changed
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Cleanup: CleanupConfig{
			WeightTolerance: 1e-6,
			NormalTolerance: 1e-6,
		},
		Output: OutputConfig{
			Suffix: "_weightfix",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Cleanup.WeightTolerance <= 0:
		return fmt.Errorf("%w: cleanup.weight_tolerance must be positive", ErrInvalidConfig)
	case c.Cleanup.NormalTolerance <= 0:
		return fmt.Errorf("%w: cleanup.normal_tolerance must be positive", ErrInvalidConfig)
	case c.Cleanup.Workers < 0:
		return fmt.Errorf("%w: cleanup.workers must not be negative", ErrInvalidConfig)
	case c.Cleanup.ChunkSize < 0:
		return fmt.Errorf("%w: cleanup.chunk_size must not be negative", ErrInvalidConfig)
	case c.Output.Suffix == "" && !c.Output.Overwrite:
		return fmt.Errorf("%w: output.suffix is empty and output.overwrite is off", ErrInvalidConfig)
	}
	return nil
}
