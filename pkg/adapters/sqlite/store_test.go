package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/mstools/internal/testutil"
	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/adapter/storetest"
	"github.com/leapstack-labs/mstools/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	for _, compression := range []string{adapter.CompressionNone, adapter.CompressionZstd} {
		t.Run(compression, func(t *testing.T) {
			storetest.Run(t, func(t *testing.T) (adapter.Store, string) {
				s := New(testutil.NewTestLogger(t))
				require.NoError(t, s.Configure(adapter.Config{
					Type:   "sqlite",
					Params: map[string]any{"compression": compression},
				}))
				t.Cleanup(func() { _ = s.Close() })
				return s, filepath.Join(t.TempDir(), "obs.ms")
			})
		})
	}
}

func TestStore_Configure(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		want    Params
		wantErr bool
	}{
		{
			name: "defaults",
			want: DefaultParams(),
		},
		{
			name:   "overrides",
			params: map[string]any{"dir": "/data", "busy_timeout_ms": "100", "journal_mode": "DELETE", "compression": "zstd"},
			want:   Params{Dir: "/data", BusyTimeoutMS: 100, JournalMode: "DELETE", Compression: "zstd"},
		},
		{
			name:    "unknown key",
			params:  map[string]any{"hostname": "x"},
			wantErr: true,
		},
		{
			name:    "unknown compression",
			params:  map[string]any{"compression": "lz4"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil)
			defer func() { _ = s.Close() }()

			err := s.Configure(adapter.Config{Type: "sqlite", Params: tt.params})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Params())
		})
	}
}

func TestStore_DSN(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Configure(adapter.Config{Params: map[string]any{"dir": "/data", "journal_mode": ""}}))

	assert.Equal(t, MemoryPath, s.DSN(MemoryPath))
	assert.Equal(t, "file:/data/obs.ms?_pragma=busy_timeout(5000)", s.DSN("obs.ms"))
	assert.Equal(t, "file:/abs/obs.ms?_pragma=busy_timeout(5000)", s.DSN("/abs/obs.ms"))
}

func TestStore_InMemorySurvivesHandles(t *testing.T) {
	s := New(nil)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	h, err := s.Create(ctx, MemoryPath, adapter.Schema{
		Rows:    3,
		Columns: []adapter.ColumnSpec{{Name: "TIME", Kind: core.KindFloat64}},
	})
	require.NoError(t, err)
	times, _ := core.FromSlice([]float64{1, 2, 3}, 3)
	require.NoError(t, h.WriteColumn(ctx, "TIME", times, 0))
	require.NoError(t, h.Close())

	h, err = s.Open(ctx, MemoryPath, true)
	require.NoError(t, err)
	got, err := h.ReadColumn(ctx, "TIME", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, times, got)
}

func TestMigrate_Version(t *testing.T) {
	s := New(nil)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	// Exists forces the connection and the migration.
	_, err := s.Exists(ctx, MemoryPath)
	require.NoError(t, err)

	db, err := s.connect(ctx, MemoryPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, Migrate(ctx, db))

	v, err := MigrationVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}
