// Package config provides the shared mstools settings used by the engine
// and the CLI. It is decoupled from CLI concerns so that other front ends
// can load the same mstools.yaml.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Weight references accepted by flag_weights.
const (
	WeightReferenceAbsolute = "absolute"
	WeightReferenceMax      = "max"
)

// Settings holds the options that shape how transforms run.
type Settings struct {
	Store           core.StoreConfig `koanf:"store" json:"store" yaml:"store"`
	ChunkSize       int              `koanf:"chunk_size" json:"chunk_size" yaml:"chunk_size"`
	WeightReference string           `koanf:"weight_reference" json:"weight_reference" yaml:"weight_reference"`
	OneBitAntennas  []string         `koanf:"one_bit_antennas" json:"one_bit_antennas,omitempty" yaml:"one_bit_antennas,omitempty"`
}

// Validate checks that the settings can be used to build an engine.
// It uses the store registry to determine which backends are available.
func (s *Settings) Validate() error {
	if s.Store.Type == "" {
		return fmt.Errorf("store type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(s.Store.Type)) {
		return &adapter.UnknownStoreError{
			Type:      s.Store.Type,
			Available: adapter.ListStores(),
		}
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", s.ChunkSize)
	}
	switch s.WeightReference {
	case WeightReferenceAbsolute, WeightReferenceMax:
	default:
		return fmt.Errorf("weight_reference must be %s or %s, got %q",
			WeightReferenceAbsolute, WeightReferenceMax, s.WeightReference)
	}
	return nil
}
