package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func TestEndToEndHostRoom(t *testing.T) {
	for name, setup := range allBackends(t) {
		t.Run(name, func(t *testing.T) {
			b := setup(t)
			ctx := context.Background()
			mustClass(t, b, "Host")
			mustClass(t, b, "Room")
			mustLinkType(t, b, "Host", "Room", 0)

			mirrorType, err := b.GetLinkType(ctx, "Room", "Host")
			require.NoError(t, err)
			assert.Equal(t, 0, mirrorType.MaxLinks)

			mustObject(t, b, "Host", "h1")
			mustObject(t, b, "Room", "r1")
			mustLink(t, b, key("Host", "h1"), key("Room", "r1"))

			_, err = b.GetLink(ctx, key("Room", "r1"), key("Host", "h1"))
			require.NoError(t, err)

			res, err := b.FindReachable(ctx, key("Host", "h1"), types.ReachQuery{TargetClass: "Room", MaxDepth: 1})
			require.NoError(t, err)
			assert.Equal(t, []string{"Room/r1"}, terminalNames(res))
			assert.Equal(t, []string{"h1", "r1"}, pathNames(res[0]))

			require.NoError(t, b.DeleteLink(ctx, key("Host", "h1"), key("Room", "r1")))
			_, err = b.GetLink(ctx, key("Room", "r1"), key("Host", "h1"))
			assert.ErrorIs(t, err, types.ErrNotFound)

			res, err = b.FindReachable(ctx, key("Host", "h1"), types.ReachQuery{TargetClass: "Room", MaxDepth: 1})
			require.NoError(t, err)
			assert.NotNil(t, res)
			assert.Empty(t, res)
		})
	}
}

// building creates Host→Room→Building with h1,h2 in r1 and r1 in b1.
func building(t *testing.T, b *Backend) {
	t.Helper()
	for _, c := range []string{"Host", "Room", "Building"} {
		mustClass(t, b, c)
	}
	mustLinkType(t, b, "Host", "Room", 1)
	mustLinkType(t, b, "Room", "Building", 1)
	mustObject(t, b, "Host", "h1")
	mustObject(t, b, "Host", "h2")
	mustObject(t, b, "Room", "r1")
	mustObject(t, b, "Building", "b1")
	mustLink(t, b, key("Host", "h1"), key("Room", "r1"))
	mustLink(t, b, key("Host", "h2"), key("Room", "r1"))
	mustLink(t, b, key("Room", "r1"), key("Building", "b1"))
}

func TestFindReachable(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	building(t, b)

	tests := []struct {
		name  string
		query types.ReachQuery
		want  []string
	}{
		{name: "zero depth", query: types.ReachQuery{MaxDepth: 0}, want: []string{}},
		{name: "depth one", query: types.ReachQuery{MaxDepth: 1}, want: []string{"Room/r1"}},
		{name: "unbounded", query: types.ReachQuery{MaxDepth: types.Unbounded}, want: []string{"Room/r1", "Building/b1", "Host/h2"}},
		{name: "class filter passes through rooms", query: types.ReachQuery{TargetClass: "Building", MaxDepth: 3}, want: []string{"Building/b1"}},
		{name: "class filter beyond depth", query: types.ReachQuery{TargetClass: "Building", MaxDepth: 1}, want: []string{}},
		{name: "source excluded", query: types.ReachQuery{TargetClass: "Host", MaxDepth: types.Unbounded}, want: []string{"Host/h2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := b.FindReachable(ctx, key("Host", "h1"), tt.query)
			require.NoError(t, err)
			got := terminalNames(res)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			// Building and h2 are both two hops away; order among them
			// follows r1's neighbour ids, so compare depth one then as a set.
			assert.Equal(t, tt.want[0], got[0])
			assert.ElementsMatch(t, tt.want, got)
			for _, r := range res {
				if !tt.query.MaxDepth.IsUnbounded() {
					assert.LessOrEqual(t, r.Depth(), int(tt.query.MaxDepth))
				}
				assert.Equal(t, "h1", r.Path[0].Name)
				assert.Equal(t, r.Terminal, r.Path[len(r.Path)-1])
			}
		})
	}
}

// With mirrors every node of a directed cycle is also a direct neighbour of
// the source, so this checks the store path only. Termination on a one-way
// O1→O2→O3→O1 cycle is covered in internal/traverse by
// TestReachable_CycleTerminatesAndExcludesSource.
func TestFindReachableMirroredCycle(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	mustClass(t, b, "Node")
	mustLinkType(t, b, "Node", "Node", 0)
	for _, n := range []string{"o1", "o2", "o3"} {
		mustObject(t, b, "Node", n)
	}
	mustLink(t, b, key("Node", "o1"), key("Node", "o2"))
	mustLink(t, b, key("Node", "o2"), key("Node", "o3"))
	mustLink(t, b, key("Node", "o3"), key("Node", "o1"))

	res, err := b.FindReachable(ctx, key("Node", "o1"), types.ReachQuery{MaxDepth: types.Unbounded})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Node/o2", "Node/o3"}, terminalNames(res))
	for _, r := range res {
		assert.Equal(t, 1, r.Depth(), "every node is a direct neighbour once mirrors exist")
	}
}

func TestFindReachableTieBreak(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	mustClass(t, b, "Host")
	mustClass(t, b, "Switch")
	mustClass(t, b, "Router")
	mustLinkType(t, b, "Host", "Switch", 0)
	mustLinkType(t, b, "Switch", "Router", 0)
	mustObject(t, b, "Host", "h1")
	s1 := mustObject(t, b, "Switch", "s1")
	s2 := mustObject(t, b, "Switch", "s2")
	mustObject(t, b, "Router", "gw")
	mustLink(t, b, key("Host", "h1"), key("Switch", "s2"))
	mustLink(t, b, key("Host", "h1"), key("Switch", "s1"))
	mustLink(t, b, key("Switch", "s2"), key("Router", "gw"))
	mustLink(t, b, key("Switch", "s1"), key("Router", "gw"))

	via := "s1"
	if s2.ObjectID < s1.ObjectID {
		via = "s2"
	}
	for range 3 {
		res, err := b.FindReachable(ctx, key("Host", "h1"), types.ReachQuery{TargetClass: "Router", MaxDepth: types.Unbounded})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, []string{"h1", via, "gw"}, pathNames(res[0]))
	}
}

func TestFindReachableErrors(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	building(t, b)

	_, err := b.FindReachable(ctx, key("Host", "nope"), types.ReachQuery{MaxDepth: 1})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.FindReachable(ctx, key("Host", "h1"), types.ReachQuery{TargetClass: "Nope", MaxDepth: 1})
	assert.ErrorIs(t, err, types.ErrNotFound)

	mustClass(t, b, "Island")
	res, err := b.FindReachable(ctx, key("Host", "h1"), types.ReachQuery{TargetClass: "Island", MaxDepth: types.Unbounded})
	require.NoError(t, err)
	assert.Empty(t, res)
}
