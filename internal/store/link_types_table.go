package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

const linkTypeSelect = `SELECT lt.link_type_id, lt.source_class_id, lt.target_class_id, sc.name, tc.name,
		lt.reverse, lt.max_links, lt.scope, lt.created_at, lt.updated_at
	FROM link_types lt
	JOIN classes sc ON sc.class_id = lt.source_class_id
	JOIN classes tc ON tc.class_id = lt.target_class_id`

// linkTypeRow is a link type row with its class ids.
type linkTypeRow struct {
	types.LinkType
	sourceClassID string
	targetClassID string
}

// CreateLinkType registers source→target and its mirror in one transaction.
func (b *Backend) CreateLinkType(ctx context.Context, spec types.LinkTypeSpec) (lt *types.LinkType, err error) {
	ctx, done := b.observe(ctx, "create_link_type")
	defer func() { done(err) }()

	if err := types.Validate(spec); err != nil {
		return nil, err
	}

	now := b.now()
	err = b.write(ctx, func(q *querier) error {
		src, err := classByName(ctx, q, spec.SourceClass)
		if err != nil {
			return err
		}
		tgt, err := classByName(ctx, q, spec.TargetClass)
		if err != nil {
			return err
		}

		var n int
		err = q.queryRow(ctx, `SELECT COUNT(*) FROM link_types
			WHERE (source_class_id = ? AND target_class_id = ?) OR (source_class_id = ? AND target_class_id = ?)`,
			src.ClassID, tgt.ClassID, tgt.ClassID, src.ClassID).Scan(&n)
		if err != nil {
			return fmt.Errorf("checking link type uniqueness: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("link type %s -> %s: %w", spec.SourceClass, spec.TargetClass, types.ErrConflict)
		}

		forward := types.LinkType{
			LinkTypeID:  generateUUID(),
			SourceClass: src.Name,
			TargetClass: tgt.Name,
			MaxLinks:    spec.MaxLinks,
			Scope:       spec.Scope,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		rows := []struct {
			id       string
			src, tgt string
			reverse  int
		}{
			{forward.LinkTypeID, src.ClassID, tgt.ClassID, 0},
			{generateUUID(), tgt.ClassID, src.ClassID, 1},
		}
		for _, r := range rows {
			_, err := q.exec(ctx,
				`INSERT INTO link_types (link_type_id, source_class_id, target_class_id, reverse, max_links, scope, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				r.id, r.src, r.tgt, r.reverse, spec.MaxLinks, spec.Scope, formatTime(now), formatTime(now))
			if err != nil {
				return fmt.Errorf("persisting link type: %w", err)
			}
		}
		lt = &forward
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.logger.Debug("link type created",
		zap.String("source_class", lt.SourceClass),
		zap.String("target_class", lt.TargetClass),
		zap.Int("max_links", lt.MaxLinks))
	return lt, nil
}

// UpdateLinkType applies patch to both rows of the pair.
func (b *Backend) UpdateLinkType(ctx context.Context, source, target string, patch types.LinkTypePatch) (lt *types.LinkType, err error) {
	ctx, done := b.observe(ctx, "update_link_type")
	defer func() { done(err) }()

	if err := types.Validate(patch); err != nil {
		return nil, err
	}

	now := b.now()
	err = b.write(ctx, func(q *querier) error {
		forward, mirror, err := b.linkTypePair(ctx, q, source, target)
		if err != nil {
			return err
		}
		if patch.Scope != nil {
			forward.Scope = *patch.Scope
		}
		if patch.MaxLinks != nil {
			forward.MaxLinks = *patch.MaxLinks
		}
		forward.UpdatedAt = now

		for _, id := range []string{forward.LinkTypeID, mirror.LinkTypeID} {
			_, err := q.exec(ctx,
				"UPDATE link_types SET scope = ?, max_links = ?, updated_at = ? WHERE link_type_id = ?",
				forward.Scope, forward.MaxLinks, formatTime(now), id)
			if err != nil {
				return fmt.Errorf("updating link type: %w", err)
			}
		}
		lt = &forward.LinkType
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.logger.Debug("link type updated",
		zap.String("source_class", source),
		zap.String("target_class", target),
		zap.Int("max_links", lt.MaxLinks))
	return lt, nil
}

// DeleteLinkType removes both rows of the pair and every link of either
// direction.
func (b *Backend) DeleteLinkType(ctx context.Context, source, target string) (err error) {
	ctx, done := b.observe(ctx, "delete_link_type")
	defer func() { done(err) }()

	var removed int64
	err = b.write(ctx, func(q *querier) error {
		forward, mirror, err := b.linkTypePair(ctx, q, source, target)
		if err != nil {
			return err
		}
		res, err := q.exec(ctx, "DELETE FROM links WHERE link_type_id IN (?, ?)", forward.LinkTypeID, mirror.LinkTypeID)
		if err != nil {
			return fmt.Errorf("deleting links of link type: %w", err)
		}
		removed, _ = res.RowsAffected()
		if _, err := q.exec(ctx, "DELETE FROM link_types WHERE link_type_id IN (?, ?)", forward.LinkTypeID, mirror.LinkTypeID); err != nil {
			return fmt.Errorf("deleting link type: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Debug("link type deleted",
		zap.String("source_class", source),
		zap.String("target_class", target),
		zap.Int64("links_removed", removed))
	return nil
}

// GetLinkType returns the row whose source and target match.
func (b *Backend) GetLinkType(ctx context.Context, source, target string) (lt *types.LinkType, err error) {
	ctx, done := b.observe(ctx, "get_link_type")
	defer func() { done(err) }()

	err = b.read(ctx, func(q *querier) error {
		src, err := classByName(ctx, q, source)
		if err != nil {
			return err
		}
		tgt, err := classByName(ctx, q, target)
		if err != nil {
			return err
		}
		row, err := linkTypeByClassIDs(ctx, q, src.ClassID, tgt.ClassID)
		if err != nil {
			return fmt.Errorf("link type %s -> %s: %w", source, target, err)
		}
		lt = &row.LinkType
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lt, nil
}

// ListLinkTypes returns link type rows ordered by source class, target
// class, then direction. A Class filter keeps rows whose source is that
// class, which covers every pair touching it once.
func (b *Backend) ListLinkTypes(ctx context.Context, filter types.LinkTypeFilter) (lts []*types.LinkType, err error) {
	ctx, done := b.observe(ctx, "list_link_types")
	defer func() { done(err) }()

	lts = []*types.LinkType{}
	err = b.read(ctx, func(q *querier) error {
		query := linkTypeSelect
		var args []any
		if filter.Class != "" {
			c, err := classByName(ctx, q, filter.Class)
			if err != nil {
				return err
			}
			query += " WHERE lt.source_class_id = ?"
			args = append(args, c.ClassID)
		}
		query += " ORDER BY sc.name, tc.name, lt.reverse"

		rows, err := q.query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("listing link types: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			row, err := hydrateLinkType(rows)
			if err != nil {
				return fmt.Errorf("hydrating link type: %w", err)
			}
			lts = append(lts, &row.LinkType)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return lts, nil
}

// linkTypePair resolves the row for source→target and its mirror. A missing
// mirror is reported as ErrInvariantViolation and never recreated.
func (b *Backend) linkTypePair(ctx context.Context, q *querier, source, target string) (*linkTypeRow, *linkTypeRow, error) {
	src, err := classByName(ctx, q, source)
	if err != nil {
		return nil, nil, err
	}
	tgt, err := classByName(ctx, q, target)
	if err != nil {
		return nil, nil, err
	}
	forward, mirror, err := b.linkTypePairByIDs(ctx, q, src.ClassID, tgt.ClassID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil, fmt.Errorf("link type %s -> %s: %w", source, target, err)
	}
	return forward, mirror, err
}

func (b *Backend) linkTypePairByIDs(ctx context.Context, q *querier, sourceID, targetID string) (*linkTypeRow, *linkTypeRow, error) {
	forward, err := linkTypeByClassIDs(ctx, q, sourceID, targetID)
	if err != nil {
		return nil, nil, err
	}
	mirror, err := hydrateLinkType(q.queryRow(ctx,
		linkTypeSelect+" WHERE lt.source_class_id = ? AND lt.target_class_id = ? AND lt.reverse = ?",
		targetID, sourceID, boolToInt(!forward.Reverse)))
	if errors.Is(err, sql.ErrNoRows) {
		v := types.Violation{
			Kind:        types.ViolationLinkTypeUnpaired,
			LinkTypeID:  forward.LinkTypeID,
			SourceClass: forward.SourceClass,
			TargetClass: forward.TargetClass,
			Detail:      "mirror link type row is missing",
		}
		b.reportViolation(v)
		return nil, nil, fmt.Errorf("link type %s -> %s has no mirror: %w",
			forward.SourceClass, forward.TargetClass, types.ErrInvariantViolation)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("getting mirror link type: %w", err)
	}
	return forward, mirror, nil
}

// linkTypeByClassIDs loads the row for sourceID→targetID, returning a bare
// ErrNotFound for callers to annotate. For a self-link type both rows match
// and the registered direction wins.
func linkTypeByClassIDs(ctx context.Context, q *querier, sourceID, targetID string) (*linkTypeRow, error) {
	row, err := hydrateLinkType(q.queryRow(ctx,
		linkTypeSelect+" WHERE lt.source_class_id = ? AND lt.target_class_id = ? ORDER BY lt.reverse LIMIT 1",
		sourceID, targetID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting link type: %w", err)
	}
	return row, nil
}

func hydrateLinkType(s scanner) (*linkTypeRow, error) {
	var r linkTypeRow
	var reverse int
	var createdAt, updatedAt string
	if err := s.Scan(&r.LinkTypeID, &r.sourceClassID, &r.targetClassID, &r.SourceClass, &r.TargetClass,
		&reverse, &r.MaxLinks, &r.Scope, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.Reverse = reverse != 0
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
