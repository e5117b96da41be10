package duckdb

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/leapstack-labs/mstools/pkg/adapter"
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Dir is prepended to relative dataset paths.
	Dir string `mapstructure:"dir"`

	// Compression of array cells: "none" or "zstd".
	Compression string `mapstructure:"compression"`

	// Settings applied globally after connecting (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// ParseParams decodes store.params for DuckDB.
func ParseParams(params map[string]any) (*Params, error) {
	p := &Params{Compression: adapter.CompressionNone}
	if err := adapter.DecodeParams(params, p); err != nil {
		return nil, err
	}
	for name := range p.Settings {
		if !validSettingName(name) {
			return nil, fmt.Errorf("invalid duckdb setting name %q", name)
		}
	}
	return p, nil
}

// SettingStatements renders Settings as SET GLOBAL statements in name order.
func (p *Params) SettingStatements() []string {
	names := slices.Sorted(maps.Keys(p.Settings))
	stmts := make([]string, 0, len(names))
	for _, name := range names {
		value := strings.ReplaceAll(p.Settings[name], "'", "''")
		stmts = append(stmts, fmt.Sprintf("SET GLOBAL %s = '%s'", name, value))
	}
	return stmts
}

func validSettingName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}
