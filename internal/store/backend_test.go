package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesh-intelligence/linkgraph/internal/metrics"
	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func TestBackend_Attach(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "data")
	b := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: tmpDir}

	require.NoError(t, b.Attach(config))
	t.Cleanup(func() { b.Detach() })

	_, err := os.Stat(filepath.Join(tmpDir, DatabaseFile))
	assert.NoError(t, err, "database file should exist")

	assert.ErrorIs(t, b.Attach(config), types.ErrAlreadyAttached)
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config types.Config
		want   error
	}{
		{name: "empty backend", config: types.Config{}, want: types.ErrBackendEmpty},
		{name: "unknown backend", config: types.Config{Backend: "oracle"}, want: types.ErrBackendUnknown},
		{name: "postgres without dsn", config: types.Config{Backend: types.BackendPostgres}, want: types.ErrDSNEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, NewBackend().Attach(tt.config), tt.want)
		})
	}
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "second Detach should not error")

	_, err := b.ListClasses(context.Background())
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.Equal(t, 1.0, counterValue(t, b.Metrics(), "list_classes", statusDetached))
}

func TestBackend_ReattachKeepsData(t *testing.T) {
	dir := t.TempDir()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(config))
	mustClass(t, b, "Host")
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(config))
	t.Cleanup(func() { b2.Detach() })
	c, err := b2.GetClass(context.Background(), "Host")
	require.NoError(t, err)
	assert.Equal(t, "Host", c.Name)
}

func TestBackend_LogsMutations(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	b := NewBackend(WithLogger(zap.New(core)), WithMetrics(metrics.NewRegistry()))
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })

	mustClass(t, b, "Host")
	entries := logs.FilterMessage("class created").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "store", entries[0].LoggerName)
	assert.Equal(t, "Host", entries[0].ContextMap()["class"])
}
