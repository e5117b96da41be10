package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import store packages to ensure stores are registered via init()
	_ "github.com/leapstack-labs/mstools/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/mstools/pkg/adapters/memory"
	_ "github.com/leapstack-labs/mstools/pkg/adapters/sqlite"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mstools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("store", "", "table store backend")
	flags.Int("chunk-size", 0, "rows per chunk")
	flags.StringSlice("one-bit", nil, "1-bit antennas")
	flags.Bool("dry-run", false, "dry run")
	flags.StringP("output", "o", "", "output mode")
	flags.BoolP("verbose", "v", false, "verbose")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Store.Type)
	assert.Equal(t, 100, cfg.ChunkSize)
	assert.Equal(t, "absolute", cfg.WeightReference)
	assert.Equal(t, "auto", cfg.Output)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.Progress)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, ".mstools/journal.db", cfg.Journal)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, `store:
  type: SQLite
  params:
    compression: zstd
chunk_size: 250
weight_reference: max
one_bit_antennas: [Ys, Ho]
output: yaml
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Type, "store type is lower-cased")
	assert.Equal(t, "zstd", cfg.Store.Params["compression"])
	assert.Equal(t, 250, cfg.ChunkSize)
	assert.Equal(t, "max", cfg.WeightReference)
	assert.Equal(t, []string{"Ys", "Ho"}, cfg.OneBitAntennas)
	assert.Equal(t, "yaml", cfg.Output)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadConfig_FindsFileUpward(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "mstools.yml"), []byte("chunk_size: 7\n"), 0600))
	nested := filepath.Join(root, "data", "n24l1")
	require.NoError(t, os.MkdirAll(nested, 0750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.ChunkSize)
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		flags     map[string]string
		wantChunk int
		wantStore string
	}{
		{
			name:      "file only",
			wantChunk: 50,
			wantStore: "memory",
		},
		{
			name:      "env over file",
			env:       map[string]string{"MSTOOLS_CHUNK_SIZE": "60", "MSTOOLS_STORE__TYPE": "sqlite"},
			wantChunk: 60,
			wantStore: "sqlite",
		},
		{
			name:      "flag over env",
			env:       map[string]string{"MSTOOLS_CHUNK_SIZE": "60"},
			flags:     map[string]string{"chunk-size": "70", "store": "duckdb"},
			wantChunk: 70,
			wantStore: "duckdb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			path := writeConfig(t, "store:\n  type: memory\nchunk_size: 50\n")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			flags := testFlags()
			for k, v := range tt.flags {
				require.NoError(t, flags.Set(k, v))
			}

			cfg, err := LoadConfig(path, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChunk, cfg.ChunkSize)
			assert.Equal(t, tt.wantStore, cfg.Store.Type)
		})
	}
}

func TestLoadConfig_FlagNotSetUsesFile(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "dry_run: true\none_bit_antennas: [Ys]\n")

	cfg, err := LoadConfig(path, testFlags())
	require.NoError(t, err)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, []string{"Ys"}, cfg.OneBitAntennas)
}

func TestLoadConfig_MappedFlags(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	flags := testFlags()
	require.NoError(t, flags.Set("one-bit", "Ys,Mh"))
	require.NoError(t, flags.Set("dry-run", "true"))
	require.NoError(t, flags.Set("output", "json"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ys", "Mh"}, cfg.OneBitAntennas)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "json", cfg.Output)
}

func TestLoadConfig_JournalDisabled(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "journal: \"\"\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Journal)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"unknown store", "store:\n  type: casacore\n", "unknown store type"},
		{"zero chunk", "chunk_size: 0\n", "chunk_size"},
		{"bad reference", "weight_reference: median\n", "weight_reference"},
		{"bad output", "output: markdown\n", "invalid output"},
		{"bad log format", "log_format: logfmt\n", "invalid log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_Settings(t *testing.T) {
	cfg := &Config{
		Store:           StoreConfig{Type: "memory"},
		ChunkSize:       10,
		WeightReference: "max",
		OneBitAntennas:  []string{"Ys"},
		Output:          "text",
	}
	s := cfg.Settings()
	assert.Equal(t, "memory", s.Store.Type)
	assert.Equal(t, 10, s.ChunkSize)
	assert.Equal(t, "max", s.WeightReference)
	assert.Equal(t, []string{"Ys"}, s.OneBitAntennas)
	assert.NoError(t, cfg.Validate())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", false)
	logger.Debug("hidden")
	logger.Info("shown", "dataset", "n24l1.ms")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"dataset":"n24l1.ms"`)

	buf.Reset()
	logger = NewLogger(&buf, "text", true)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "level=DEBUG")

	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.NotNil(t, GetLogger(context.Background()))
}
