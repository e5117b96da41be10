package adapter

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore records the config it was configured with.
type stubStore struct {
	cfg          Config
	configureErr error
}

func (s *stubStore) Configure(cfg Config) error { s.cfg = cfg; return s.configureErr }
func (s *stubStore) Open(context.Context, string, bool) (Handle, error) {
	return nil, ErrNoSuchTable
}
func (s *stubStore) Create(context.Context, string, Schema) (Handle, error) {
	return nil, ErrNoSuchTable
}
func (s *stubStore) Exists(context.Context, string) (bool, error) { return false, nil }
func (s *stubStore) Close() error                                  { return nil }

func TestUnknownStoreError_Error(t *testing.T) {
	err := &UnknownStoreError{
		Type:      "fake_db",
		Available: []string{"duckdb", "sqlite"},
	}

	msg := err.Error()

	assert.NotEmpty(t, msg, "error message should not be empty")
	assert.Contains(t, msg, "fake_db", "error should mention the unknown type 'fake_db'")
	assert.Contains(t, msg, "mstools.yaml", "error should mention config file")
}

func TestRegister(t *testing.T) {
	Register("test_store_internal", func(_ *slog.Logger) Store { return &stubStore{} })

	assert.True(t, IsRegistered("test_store_internal"), "test_store_internal should be registered after Register()")

	factory, ok := Get("test_store_internal")
	assert.True(t, ok, "Get(test_store_internal) should return true after Register()")
	assert.NotNil(t, factory, "Get(test_store_internal) should return non-nil factory")
	assert.Contains(t, ListStores(), "test_store_internal")
}

func TestNewStore_EmptyType(t *testing.T) {
	_, err := NewStore(Config{Type: ""}, nil)
	require.Error(t, err, "NewStore with empty type should fail")
	assert.Equal(t, "store type not specified", err.Error(), "error message")
}

func TestNewStore_Configures(t *testing.T) {
	stub := &stubStore{}
	Register("test_store_configured", func(_ *slog.Logger) Store { return stub })

	cfg := Config{Type: "test_store_configured", Params: map[string]any{"compression": "zstd"}}
	s, err := NewStore(cfg, nil)
	require.NoError(t, err)
	assert.Same(t, stub, s)
	assert.Equal(t, "zstd", stub.cfg.Params["compression"])
}

func TestNewStore_ConfigureError(t *testing.T) {
	Register("test_store_broken", func(_ *slog.Logger) Store {
		return &stubStore{configureErr: errors.New("bad params")}
	})

	_, err := NewStore(Config{Type: "test_store_broken"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad params")
}

func TestNewStore_UnknownType(t *testing.T) {
	_, err := NewStore(Config{Type: "unknown_store"}, nil)
	require.Error(t, err)

	var unknownErr *UnknownStoreError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "unknown_store", unknownErr.Type, "error type")
}
