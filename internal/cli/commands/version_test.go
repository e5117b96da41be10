package commands

import (
	"bytes"
	"testing"

	"github.com/leapstack-labs/mstools/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		info    BuildInfo
		wantOut []string
	}{
		{
			name:    "release",
			info:    BuildInfo{Version: "0.1.0", Commit: "a1b2c3d", BuildDate: "2024-03-01"},
			wantOut: []string{"mstools v0.1.0", "Measurement Set", "commit a1b2c3d", "built 2024-03-01"},
		},
		{
			name:    "dev build",
			info:    BuildInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"},
			wantOut: []string{"mstools vdev", "go1."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config.ResetConfig()
			cmd := NewVersionCommand(tt.info)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)

			require.NoError(t, cmd.Execute())
			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestVersionCommandMetadata(t *testing.T) {
	cmd := NewVersionCommand(BuildInfo{Version: "test"})

	assert.Equal(t, "version", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
}
