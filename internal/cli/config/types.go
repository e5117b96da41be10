// Package config provides configuration management for the mstools CLI.
//
// It extends the shared engine settings from internal/config with
// presentation options (output mode, logging, progress).
package config

import (
	"fmt"

	sharedcfg "github.com/leapstack-labs/mstools/internal/config"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// StoreConfig is an alias for the shared store configuration.
type StoreConfig = core.StoreConfig

// Config holds all CLI configuration options.
type Config struct {
	Store           StoreConfig `koanf:"store"`
	ChunkSize       int         `koanf:"chunk_size"`
	WeightReference string      `koanf:"weight_reference"`
	OneBitAntennas  []string    `koanf:"one_bit_antennas"`

	Output    string `koanf:"output"`
	Verbose   bool   `koanf:"verbose"`
	LogFormat string `koanf:"log_format"`
	Progress  bool   `koanf:"progress"`
	DryRun    bool   `koanf:"dry_run"`

	// Journal is the run journal path. Empty disables journaling.
	Journal string `koanf:"journal"`
}

// Default configuration values.
const (
	DefaultOutput    = "auto" // TTY=text, otherwise JSON
	DefaultLogFormat = "text"
	DefaultJournal   = ".mstools/journal.db"
)

// Settings returns the engine settings part of the configuration.
func (c *Config) Settings() sharedcfg.Settings {
	return sharedcfg.Settings{
		Store:           c.Store,
		ChunkSize:       c.ChunkSize,
		WeightReference: c.WeightReference,
		OneBitAntennas:  c.OneBitAntennas,
	}
}

// Validate checks the engine settings and the presentation options.
func (c *Config) Validate() error {
	s := c.Settings()
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch c.Output {
	case "", "auto", "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid output %q: must be auto, text, json or yaml", c.Output)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: must be text or json", c.LogFormat)
	}
	return nil
}
