package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/internal/traverse"
	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// FindReachable runs an outbound breadth-first traversal from source inside
// one read-only transaction. Neighbours are loaded a level at a time.
func (b *Backend) FindReachable(ctx context.Context, source types.ObjectKey, rq types.ReachQuery) (result []types.Reachable, err error) {
	ctx, done := b.observe(ctx, "find_reachable")
	defer func() { done(err) }()

	if err := types.Validate(rq); err != nil {
		return nil, err
	}

	var stats traverse.Stats
	err = b.read(ctx, func(q *querier) error {
		src, err := objectByKey(ctx, q, source, false)
		if err != nil {
			return err
		}
		if rq.TargetClass != "" {
			if _, err := classByName(ctx, q, rq.TargetClass); err != nil {
				return err
			}
		}
		result, stats, err = traverse.Reachable(ctx, &neighbourQuery{q: q}, src.Ref(), traverse.Options{
			TargetClass: rq.TargetClass,
			MaxDepth:    rq.MaxDepth,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []types.Reachable{}
	}

	b.metrics.RecordTraversal(stats.Visited, stats.Queries)
	b.logger.Debug("reachability computed",
		zap.Stringer("source", source),
		zap.String("target_class", rq.TargetClass),
		zap.Stringer("max_depth", rq.MaxDepth),
		zap.Int("visited", stats.Visited),
		zap.Int("results", len(result)))
	return result, nil
}

// neighbourQuery loads outbound adjacency for a frontier batch in one query.
type neighbourQuery struct {
	q *querier
}

func (n *neighbourQuery) Neighbors(ctx context.Context, ids []string) (map[string][]types.ObjectRef, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := n.q.query(ctx, `SELECT l.source_id, t.object_id, tc.name, t.name
		FROM links l
		JOIN objects t ON t.object_id = l.target_id
		JOIN classes tc ON tc.class_id = t.class_id
		WHERE l.source_id IN (`+placeholders(len(ids))+`)
		ORDER BY l.source_id, t.object_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("loading neighbours: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]types.ObjectRef, len(ids))
	for rows.Next() {
		var from string
		var ref types.ObjectRef
		if err := rows.Scan(&from, &ref.ObjectID, &ref.Class, &ref.Name); err != nil {
			return nil, fmt.Errorf("scanning neighbour: %w", err)
		}
		out[from] = append(out[from], ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating neighbours: %w", err)
	}
	return out, nil
}
