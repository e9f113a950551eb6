package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

const linkSelect = `SELECT l.link_id, l.link_type_id, l.scope, l.created_at,
		s.object_id, sc.name, s.name, t.object_id, tc.name, t.name,
		ltsc.name, lttc.name, lt.reverse
	FROM links l
	JOIN link_types lt ON lt.link_type_id = l.link_type_id
	JOIN classes ltsc ON ltsc.class_id = lt.source_class_id
	JOIN classes lttc ON lttc.class_id = lt.target_class_id
	JOIN objects s ON s.object_id = l.source_id
	JOIN classes sc ON sc.class_id = s.class_id
	JOIN objects t ON t.object_id = l.target_id
	JOIN classes tc ON tc.class_id = t.class_id`

// CreateLink inserts source→target and its mirror in one transaction after
// checking for an existing pair and the source's remaining capacity.
func (b *Backend) CreateLink(ctx context.Context, spec types.LinkSpec) (l *types.Link, err error) {
	ctx, done := b.observe(ctx, "create_link")
	defer func() { done(err) }()

	if err := types.Validate(spec); err != nil {
		return nil, err
	}
	if spec.Source == spec.Target {
		return nil, fmt.Errorf("object %s cannot link to itself: %w", spec.Source, types.ErrInvalidArgument)
	}

	now := b.now()
	err = b.write(ctx, func(q *querier) error {
		// Locking the source serialises capacity checks for it.
		src, err := objectByKey(ctx, q, spec.Source, true)
		if err != nil {
			return err
		}
		tgt, err := objectByKey(ctx, q, spec.Target, false)
		if err != nil {
			return err
		}

		forward, mirror, err := b.linkTypePairByIDs(ctx, q, src.ClassID, tgt.ClassID)
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("no link type from %s to %s: %w", src.ClassName, tgt.ClassName, err)
		}
		if err != nil {
			return err
		}

		var n int
		err = q.queryRow(ctx, `SELECT COUNT(*) FROM links
			WHERE (source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?)`,
			src.ObjectID, tgt.ObjectID, tgt.ObjectID, src.ObjectID).Scan(&n)
		if err != nil {
			return fmt.Errorf("checking link uniqueness: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("link %s -> %s: %w", spec.Source, spec.Target, types.ErrConflict)
		}

		if forward.MaxLinks > 0 {
			count, err := countLinksToClass(ctx, q, src.ObjectID, tgt.ClassID)
			if err != nil {
				return err
			}
			if count >= forward.MaxLinks {
				return fmt.Errorf("%s already has %d of %d links to %s: %w",
					spec.Source, count, forward.MaxLinks, tgt.ClassName, types.ErrCapacityExceeded)
			}
		}

		l = &types.Link{
			LinkID:     generateUUID(),
			Source:     src.Ref(),
			Target:     tgt.Ref(),
			LinkTypeID: forward.LinkTypeID,
			LinkType: types.LinkTypeRef{
				SourceClass: forward.SourceClass,
				TargetClass: forward.TargetClass,
				Reverse:     forward.Reverse,
			},
			Scope: spec.Scope,
			CreatedAt:  now,
		}
		if err := insertLink(ctx, q, l.LinkID, src.ObjectID, tgt.ObjectID, forward.LinkTypeID, spec.Scope, now); err != nil {
			return err
		}
		return insertLink(ctx, q, generateUUID(), tgt.ObjectID, src.ObjectID, mirror.LinkTypeID, spec.Scope, now)
	})
	if err != nil {
		return nil, err
	}
	b.logger.Debug("link created",
		zap.Stringer("source", spec.Source),
		zap.Stringer("target", spec.Target),
		zap.String("link_id", l.LinkID))
	return l, nil
}

// DeleteLink removes source→target and its mirror. A missing mirror leaves
// the forward link in place and returns ErrInvariantViolation.
func (b *Backend) DeleteLink(ctx context.Context, source, target types.ObjectKey) (err error) {
	ctx, done := b.observe(ctx, "delete_link")
	defer func() { done(err) }()

	err = b.write(ctx, func(q *querier) error {
		src, err := objectByKey(ctx, q, source, true)
		if err != nil {
			return err
		}
		tgt, err := objectByKey(ctx, q, target, false)
		if err != nil {
			return err
		}

		forwardID, err := linkIDBetween(ctx, q, src.ObjectID, tgt.ObjectID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("link %s -> %s: %w", source, target, types.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("getting link: %w", err)
		}
		mirrorID, err := linkIDBetween(ctx, q, tgt.ObjectID, src.ObjectID)
		if errors.Is(err, sql.ErrNoRows) {
			b.reportViolation(types.Violation{
				Kind:        types.ViolationLinkMissing,
				LinkID:      forwardID,
				SourceClass: src.ClassName,
				TargetClass: tgt.ClassName,
				SourceID:    src.ObjectID,
				TargetID:    tgt.ObjectID,
				Detail:      "mirror link is missing on delete",
			})
			return fmt.Errorf("link %s -> %s has no mirror: %w", source, target, types.ErrInvariantViolation)
		}
		if err != nil {
			return fmt.Errorf("getting mirror link: %w", err)
		}

		if _, err := q.exec(ctx, "DELETE FROM links WHERE link_id IN (?, ?)", forwardID, mirrorID); err != nil {
			return fmt.Errorf("deleting link: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Debug("link deleted", zap.Stringer("source", source), zap.Stringer("target", target))
	return nil
}

// GetLink returns the direct link source→target.
func (b *Backend) GetLink(ctx context.Context, source, target types.ObjectKey) (l *types.Link, err error) {
	ctx, done := b.observe(ctx, "get_link")
	defer func() { done(err) }()

	err = b.read(ctx, func(q *querier) error {
		l, err = hydrateLink(q.queryRow(ctx,
			linkSelect+" WHERE sc.name = ? AND s.name = ? AND tc.name = ? AND t.name = ?",
			source.Class, source.Name, target.Class, target.Name))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("link %s -> %s: %w", source, target, types.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("getting link: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListLinks returns the outbound links of source, ordered by target class
// and name. Mirrors of links created from the other side are included.
func (b *Backend) ListLinks(ctx context.Context, source types.ObjectKey, filter types.LinkFilter) (links []*types.Link, err error) {
	ctx, done := b.observe(ctx, "list_links")
	defer func() { done(err) }()

	links = []*types.Link{}
	err = b.read(ctx, func(q *querier) error {
		src, err := objectByKey(ctx, q, source, false)
		if err != nil {
			return err
		}
		query := linkSelect + " WHERE l.source_id = ?"
		args := []any{src.ObjectID}
		if filter.TargetClass != "" {
			c, err := classByName(ctx, q, filter.TargetClass)
			if err != nil {
				return err
			}
			query += " AND t.class_id = ?"
			args = append(args, c.ClassID)
		}
		query += " ORDER BY tc.name, t.name"

		rows, err := q.query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("listing links: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			l, err := hydrateLink(rows)
			if err != nil {
				return fmt.Errorf("hydrating link: %w", err)
			}
			links = append(links, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

// countLinksToClass counts sourceID's outbound links to objects of classID.
func countLinksToClass(ctx context.Context, q *querier, sourceID, classID string) (int, error) {
	var n int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM links l
		JOIN objects o ON o.object_id = l.target_id
		WHERE l.source_id = ? AND o.class_id = ?`, sourceID, classID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting links: %w", err)
	}
	return n, nil
}

func linkIDBetween(ctx context.Context, q *querier, sourceID, targetID string) (string, error) {
	var id string
	err := q.queryRow(ctx, "SELECT link_id FROM links WHERE source_id = ? AND target_id = ?", sourceID, targetID).Scan(&id)
	return id, err
}

func insertLink(ctx context.Context, q *querier, id, sourceID, targetID, linkTypeID, scope string, now time.Time) error {
	_, err := q.exec(ctx,
		`INSERT INTO links (link_id, source_id, target_id, link_type_id, scope, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, sourceID, targetID, linkTypeID, scope, formatTime(now))
	if err != nil {
		return fmt.Errorf("persisting link: %w", err)
	}
	return nil
}

func hydrateLink(s scanner) (*types.Link, error) {
	var l types.Link
	var createdAt string
	var reverse int
	if err := s.Scan(&l.LinkID, &l.LinkTypeID, &l.Scope, &createdAt,
		&l.Source.ObjectID, &l.Source.Class, &l.Source.Name,
		&l.Target.ObjectID, &l.Target.Class, &l.Target.Name,
		&l.LinkType.SourceClass, &l.LinkType.TargetClass, &reverse); err != nil {
		return nil, err
	}
	l.LinkType.Reverse = reverse != 0
	var err error
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &l, nil
}
