package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

const classColumns = "class_id, name, scope, description, created_at, updated_at"

// CreateClass registers a new class. Returns ErrConflict if the name is taken.
func (b *Backend) CreateClass(ctx context.Context, spec types.ClassSpec) (c *types.Class, err error) {
	ctx, done := b.observe(ctx, "create_class")
	defer func() { done(err) }()

	if err := types.Validate(spec); err != nil {
		return nil, err
	}

	now := b.now()
	c = &types.Class{
		ClassID:     generateUUID(),
		Name:        spec.Name,
		Scope:       spec.Scope,
		Description: spec.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = b.write(ctx, func(q *querier) error {
		var one int
		err := q.queryRow(ctx, "SELECT 1 FROM classes WHERE name = ?", spec.Name).Scan(&one)
		if err == nil {
			return fmt.Errorf("class %q: %w", spec.Name, types.ErrConflict)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking class uniqueness: %w", err)
		}
		_, err = q.exec(ctx,
			"INSERT INTO classes ("+classColumns+") VALUES (?, ?, ?, ?, ?, ?)",
			c.ClassID, c.Name, c.Scope, c.Description, formatTime(now), formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("persisting class: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.logger.Debug("class created", zap.String("class", c.Name), zap.String("class_id", c.ClassID))
	return c, nil
}

// GetClass returns the class with the given name.
func (b *Backend) GetClass(ctx context.Context, name string) (c *types.Class, err error) {
	ctx, done := b.observe(ctx, "get_class")
	defer func() { done(err) }()

	err = b.read(ctx, func(q *querier) error {
		c, err = classByName(ctx, q, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListClasses returns every class ordered by name.
func (b *Backend) ListClasses(ctx context.Context) (classes []*types.Class, err error) {
	ctx, done := b.observe(ctx, "list_classes")
	defer func() { done(err) }()

	classes = []*types.Class{}
	err = b.read(ctx, func(q *querier) error {
		rows, err := q.query(ctx, "SELECT "+classColumns+" FROM classes ORDER BY name")
		if err != nil {
			return fmt.Errorf("listing classes: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			c, err := hydrateClass(rows)
			if err != nil {
				return fmt.Errorf("hydrating class: %w", err)
			}
			classes = append(classes, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return classes, nil
}

// DeleteClass removes a class together with its objects, every link type
// touching it and every link of those types.
func (b *Backend) DeleteClass(ctx context.Context, name string) (err error) {
	ctx, done := b.observe(ctx, "delete_class")
	defer func() { done(err) }()

	var removed int64
	err = b.write(ctx, func(q *querier) error {
		c, err := classByName(ctx, q, name)
		if err != nil {
			return err
		}

		res, err := q.exec(ctx, `DELETE FROM links WHERE link_type_id IN (
			SELECT link_type_id FROM link_types WHERE source_class_id = ? OR target_class_id = ?)`,
			c.ClassID, c.ClassID)
		if err != nil {
			return fmt.Errorf("deleting links of class %q: %w", name, err)
		}
		removed, _ = res.RowsAffected()

		if _, err := q.exec(ctx,
			"DELETE FROM link_types WHERE source_class_id = ? OR target_class_id = ?",
			c.ClassID, c.ClassID); err != nil {
			return fmt.Errorf("deleting link types of class %q: %w", name, err)
		}
		if _, err := q.exec(ctx, "DELETE FROM objects WHERE class_id = ?", c.ClassID); err != nil {
			return fmt.Errorf("deleting objects of class %q: %w", name, err)
		}
		if _, err := q.exec(ctx, "DELETE FROM classes WHERE class_id = ?", c.ClassID); err != nil {
			return fmt.Errorf("deleting class %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Debug("class deleted", zap.String("class", name), zap.Int64("links_removed", removed))
	return nil
}

// classByName loads a class or returns ErrNotFound.
func classByName(ctx context.Context, q *querier, name string) (*types.Class, error) {
	row := q.queryRow(ctx, "SELECT "+classColumns+" FROM classes WHERE name = ?", name)
	c, err := hydrateClass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("class %q: %w", name, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting class %q: %w", name, err)
	}
	return c, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func hydrateClass(s scanner) (*types.Class, error) {
	var c types.Class
	var createdAt, updatedAt string
	if err := s.Scan(&c.ClassID, &c.Name, &c.Scope, &c.Description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
