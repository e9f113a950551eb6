package linkgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func TestNewStore(t *testing.T) {
	s := NewStore(WithLogger(zap.NewNop()))
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { _ = s.Detach() })

	ctx := context.Background()
	_, err := s.CreateClass(ctx, types.ClassSpec{Name: "Host", Scope: "ops"})
	require.NoError(t, err)
	classes, err := s.ListClasses(ctx)
	require.NoError(t, err)
	assert.Len(t, classes, 1)
}

func TestNewStoreDetached(t *testing.T) {
	s := NewStore()
	_, err := s.ListClasses(context.Background())
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}
