package store

import (
	"context"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/linkgraph/internal/metrics"
	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// postgresDSNEnv names the variable that enables PostgreSQL tests.
const postgresDSNEnv = "LINKGRAPH_TEST_POSTGRES_DSN"

func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return b
}

// setupPostgres attaches to an empty PostgreSQL database or skips the test.
func setupPostgres(t *testing.T) *Backend {
	t.Helper()
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnv)
	}
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendPostgres, DSN: dsn}))
	_, err := b.db.Exec("TRUNCATE links, link_types, objects, classes")
	require.NoError(t, err)
	t.Cleanup(func() { b.Detach() })
	return b
}

// allBackends returns SQLite and, when configured, PostgreSQL.
func allBackends(t *testing.T) map[string]func(*testing.T) *Backend {
	t.Helper()
	m := map[string]func(*testing.T) *Backend{types.BackendSQLite: setupBackend}
	if os.Getenv(postgresDSNEnv) != "" {
		m[types.BackendPostgres] = setupPostgres
	}
	return m
}

func key(class, name string) types.ObjectKey {
	return types.ObjectKey{Class: class, Name: name}
}

func mustClass(t *testing.T, b *Backend, name string) *types.Class {
	t.Helper()
	c, err := b.CreateClass(context.Background(), types.ClassSpec{Name: name, Scope: "ops"})
	require.NoError(t, err)
	return c
}

func mustObject(t *testing.T, b *Backend, class, name string) *types.Object {
	t.Helper()
	o, err := b.CreateObject(context.Background(), types.ObjectSpec{Class: class, Name: name, Scope: "ops"})
	require.NoError(t, err)
	return o
}

func mustLinkType(t *testing.T, b *Backend, source, target string, maxLinks int) *types.LinkType {
	t.Helper()
	lt, err := b.CreateLinkType(context.Background(), types.LinkTypeSpec{
		SourceClass: source, TargetClass: target, Scope: "ops", MaxLinks: maxLinks,
	})
	require.NoError(t, err)
	return lt
}

func mustLink(t *testing.T, b *Backend, source, target types.ObjectKey) *types.Link {
	t.Helper()
	l, err := b.CreateLink(context.Background(), types.LinkSpec{Source: source, Target: target, Scope: "ops"})
	require.NoError(t, err)
	return l
}

func linkRowCount(t *testing.T, b *Backend) int {
	t.Helper()
	var n int
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM links").Scan(&n))
	return n
}

func linkTypeRowCount(t *testing.T, b *Backend) int {
	t.Helper()
	var n int
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM link_types").Scan(&n))
	return n
}

// dropRawLink deletes one directed link row behind the store's back.
func dropRawLink(t *testing.T, b *Backend, sourceID, targetID string) {
	t.Helper()
	res, err := b.db.Exec(b.dialect.rebind("DELETE FROM links WHERE source_id = ? AND target_id = ?"), sourceID, targetID)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func terminalNames(rs []types.Reachable) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Terminal.Class + "/" + r.Terminal.Name
	}
	return out
}

func pathNames(r types.Reachable) []string {
	out := make([]string, len(r.Path))
	for i, ref := range r.Path {
		out[i] = ref.Name
	}
	return out
}

func counterValue(t *testing.T, reg *metrics.Registry, op, status string) float64 {
	t.Helper()
	return testutil.ToFloat64(reg.OperationsTotal.WithLabelValues(op, status))
}
