package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns defaults",
			input: nil,
			want:  &Params{Compression: "none"},
		},
		{
			name:  "empty map returns defaults",
			input: map[string]any{},
			want:  &Params{Compression: "none"},
		},
		{
			name: "settings only",
			input: map[string]any{
				"settings": map[string]any{
					"memory_limit": "4GB",
					"threads":      "4",
				},
			},
			want: &Params{
				Compression: "none",
				Settings: map[string]string{
					"memory_limit": "4GB",
					"threads":      "4",
				},
			},
		},
		{
			name:  "dir and compression",
			input: map[string]any{"dir": "/data/vlbi", "compression": "zstd"},
			want:  &Params{Dir: "/data/vlbi", Compression: "zstd"},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"extensions": []any{"httpfs"}},
			wantErr: true,
		},
		{
			name:    "setting name with SQL",
			input:   map[string]any{"settings": map[string]any{"threads; DROP": "1"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_SettingStatements(t *testing.T) {
	p := &Params{Settings: map[string]string{
		"threads":      "4",
		"memory_limit": "4GB",
		"temp_dir":     "/tmp/o'brien",
	}}

	assert.Equal(t, []string{
		"SET GLOBAL memory_limit = '4GB'",
		"SET GLOBAL temp_dir = '/tmp/o''brien'",
		"SET GLOBAL threads = '4'",
	}, p.SettingStatements())

	assert.Empty(t, (&Params{}).SettingStatements())
}
