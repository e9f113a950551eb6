package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

const objectSelect = `SELECT o.object_id, o.class_id, c.name, o.name, o.scope, o.data, o.created_at, o.updated_at
	FROM objects o JOIN classes c ON c.class_id = o.class_id`

// CreateObject stores a new object. Returns ErrNotFound if the class is
// unknown and ErrConflict if the class already has an object of that name.
func (b *Backend) CreateObject(ctx context.Context, spec types.ObjectSpec) (o *types.Object, err error) {
	ctx, done := b.observe(ctx, "create_object")
	defer func() { done(err) }()

	if err := types.Validate(spec); err != nil {
		return nil, err
	}
	data := spec.Data
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding object data: %v: %w", err, types.ErrInvalidArgument)
	}

	now := b.now()
	err = b.write(ctx, func(q *querier) error {
		c, err := classByName(ctx, q, spec.Class)
		if err != nil {
			return err
		}

		var one int
		err = q.queryRow(ctx, "SELECT 1 FROM objects WHERE class_id = ? AND name = ?", c.ClassID, spec.Name).Scan(&one)
		if err == nil {
			return fmt.Errorf("object %s/%s: %w", spec.Class, spec.Name, types.ErrConflict)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking object uniqueness: %w", err)
		}

		o = &types.Object{
			ObjectID:  generateUUID(),
			ClassID:   c.ClassID,
			ClassName: c.Name,
			Name:      spec.Name,
			Scope:     spec.Scope,
			Data:      data,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, err = q.exec(ctx,
			`INSERT INTO objects (object_id, class_id, name, scope, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ObjectID, o.ClassID, o.Name, o.Scope, string(payload), formatTime(now), formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("persisting object: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.logger.Debug("object created", zap.Stringer("object", o.Ref().Key()), zap.String("object_id", o.ObjectID))
	return o, nil
}

// GetObject returns the object addressed by key.
func (b *Backend) GetObject(ctx context.Context, key types.ObjectKey) (o *types.Object, err error) {
	ctx, done := b.observe(ctx, "get_object")
	defer func() { done(err) }()

	err = b.read(ctx, func(q *querier) error {
		o, err = objectByKey(ctx, q, key, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListObjects returns the objects of a class ordered by name.
func (b *Backend) ListObjects(ctx context.Context, class string) (objects []*types.Object, err error) {
	ctx, done := b.observe(ctx, "list_objects")
	defer func() { done(err) }()

	objects = []*types.Object{}
	err = b.read(ctx, func(q *querier) error {
		c, err := classByName(ctx, q, class)
		if err != nil {
			return err
		}
		rows, err := q.query(ctx, objectSelect+" WHERE o.class_id = ? ORDER BY o.name", c.ClassID)
		if err != nil {
			return fmt.Errorf("listing objects: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			o, err := hydrateObject(rows)
			if err != nil {
				return fmt.Errorf("hydrating object: %w", err)
			}
			objects = append(objects, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// DeleteObject removes the object and every link touching it, including
// both halves of each pair.
func (b *Backend) DeleteObject(ctx context.Context, key types.ObjectKey) (err error) {
	ctx, done := b.observe(ctx, "delete_object")
	defer func() { done(err) }()

	var removed int64
	err = b.write(ctx, func(q *querier) error {
		o, err := objectByKey(ctx, q, key, true)
		if err != nil {
			return err
		}
		res, err := q.exec(ctx, "DELETE FROM links WHERE source_id = ? OR target_id = ?", o.ObjectID, o.ObjectID)
		if err != nil {
			return fmt.Errorf("deleting links of %s: %w", key, err)
		}
		removed, _ = res.RowsAffected()
		if _, err := q.exec(ctx, "DELETE FROM objects WHERE object_id = ?", o.ObjectID); err != nil {
			return fmt.Errorf("deleting object %s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Debug("object deleted", zap.Stringer("object", key), zap.Int64("links_removed", removed))
	return nil
}

// objectByKey loads an object or returns ErrNotFound. With lock set the row
// stays locked until the transaction ends.
func objectByKey(ctx context.Context, q *querier, key types.ObjectKey, lock bool) (*types.Object, error) {
	query := objectSelect + " WHERE c.name = ? AND o.name = ?"
	if lock {
		query += q.d.forUpdate("o")
	}
	o, err := hydrateObject(q.queryRow(ctx, query, key.Class, key.Name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("object %s: %w", key, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting object %s: %w", key, err)
	}
	return o, nil
}

func hydrateObject(s scanner) (*types.Object, error) {
	var o types.Object
	var data, createdAt, updatedAt string
	if err := s.Scan(&o.ObjectID, &o.ClassID, &o.ClassName, &o.Name, &o.Scope, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &o.Data); err != nil {
		return nil, fmt.Errorf("decoding object data: %w", err)
	}
	var err error
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
