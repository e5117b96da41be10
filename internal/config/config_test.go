package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/mstools/pkg/adapters/memory"
)

func TestApplyDefaults(t *testing.T) {
	var s Settings
	ApplyDefaults(&s)
	assert.Equal(t, DefaultStoreType, s.Store.Type)
	assert.Equal(t, DefaultChunkSize, s.ChunkSize)
	assert.Equal(t, WeightReferenceAbsolute, s.WeightReference)

	s = Settings{ChunkSize: 7, WeightReference: WeightReferenceMax}
	ApplyDefaults(&s)
	assert.Equal(t, 7, s.ChunkSize)
	assert.Equal(t, WeightReferenceMax, s.WeightReference)

	ApplyDefaults(nil)
}

func TestSettings_Validate(t *testing.T) {
	valid := func() Settings {
		s := Settings{}
		ApplyDefaults(&s)
		s.Store.Type = "memory"
		return s
	}

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"case-insensitive store", func(s *Settings) { s.Store.Type = "MEMORY" }, ""},
		{"missing store", func(s *Settings) { s.Store.Type = "" }, "store type is required"},
		{"unknown store", func(s *Settings) { s.Store.Type = "casacore" }, "casacore"},
		{"zero chunk", func(s *Settings) { s.ChunkSize = 0 }, "chunk_size"},
		{"bad reference", func(s *Settings) { s.WeightReference = "median" }, "weight_reference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	s, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Nil(t, s, "no config file is not an error")

	content := `store:
  type: sqlite
  params:
    dir: /data/ms
chunk_size: 250
one_bit_antennas: [Ef, Wb]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileNameAlt), []byte(content), 0o600))

	s, err = LoadFromDir(dir)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "sqlite", s.Store.Type)
	assert.Equal(t, "/data/ms", s.Store.Params["dir"])
	assert.Equal(t, 250, s.ChunkSize)
	assert.Equal(t, []string{"Ef", "Wb"}, s.OneBitAntennas)
	assert.Equal(t, WeightReferenceAbsolute, s.WeightReference)
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("chunk_size: 10\n"), 0o600))

	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, "", FindProjectRoot(t.TempDir()))
}
