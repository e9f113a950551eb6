// Package traverse implements outbound breadth-first reachability over a
// link graph whose adjacency is fetched one level at a time.
package traverse

import (
	"context"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// DefaultBatchSize bounds the number of frontier ids passed to a single
// Neighbors call.
const DefaultBatchSize = 500

// NeighborSource supplies outbound adjacency for a batch of objects.
type NeighborSource interface {
	// Neighbors returns, for each id in ids that has outbound links, the
	// objects it links to. Ordering within a slice does not matter.
	Neighbors(ctx context.Context, ids []string) (map[string][]types.ObjectRef, error)
}

// Options configures a traversal.
type Options struct {
	TargetClass string
	MaxDepth    types.Depth
	// BatchSize overrides DefaultBatchSize when positive.
	BatchSize int
}

// Stats describes the work a traversal performed.
type Stats struct {
	Visited int
	Levels  int
	Queries int
}

type bfsEntry struct {
	ref    types.ObjectRef
	parent int
	depth  int
}

// Reachable walks outbound links from source and returns one shortest path
// to every reachable object accepted by the class filter. Among equally
// short paths the one with the lexicographically smallest id sequence wins.
// Results are ordered by path length, then by that id sequence. The source
// itself is never returned.
func Reachable(ctx context.Context, ns NeighborSource, source types.ObjectRef, opts Options) ([]types.Reachable, Stats, error) {
	var stats Stats
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	// entries doubles as the frontier queue and the parent table.
	entries := []bfsEntry{{ref: source, parent: -1}}
	visited := map[string]bool{source.ObjectID: true}
	levelStart, levelEnd := 0, 1

	for levelStart < levelEnd && opts.MaxDepth.Allows(entries[levelStart].depth+1) {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.Levels++

		frontier := entries[levelStart:levelEnd]
		adjacency := make(map[string][]types.ObjectRef, len(frontier))
		for start := 0; start < len(frontier); start += batch {
			end := min(start+batch, len(frontier))
			ids := make([]string, 0, end-start)
			for _, e := range frontier[start:end] {
				ids = append(ids, e.ref.ObjectID)
			}
			got, err := ns.Neighbors(ctx, ids)
			stats.Queries++
			if err != nil {
				return nil, stats, fmt.Errorf("fetching neighbours at depth %d: %w", entries[levelStart].depth+1, err)
			}
			for id, refs := range got {
				adjacency[id] = refs
			}
		}

		for i := levelStart; i < levelEnd; i++ {
			next := adjacency[entries[i].ref.ObjectID]
			sort.Slice(next, func(a, b int) bool { return next[a].ObjectID < next[b].ObjectID })
			for _, ref := range next {
				if visited[ref.ObjectID] {
					continue
				}
				visited[ref.ObjectID] = true
				entries = append(entries, bfsEntry{ref: ref, parent: i, depth: entries[i].depth + 1})
			}
		}
		levelStart, levelEnd = levelEnd, len(entries)
	}
	stats.Visited = len(entries) - 1

	var out []types.Reachable
	for i := 1; i < len(entries); i++ {
		e := entries[i]
		if opts.TargetClass != "" && e.ref.Class != opts.TargetClass {
			continue
		}
		out = append(out, types.Reachable{Path: pathTo(entries, i), Terminal: e.ref})
	}
	return out, stats, nil
}

func pathTo(entries []bfsEntry, i int) []types.ObjectRef {
	path := make([]types.ObjectRef, entries[i].depth+1)
	for j := i; j >= 0; j = entries[j].parent {
		path[entries[j].depth] = entries[j].ref
	}
	return path
}
