package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// querier runs dialect-rebound statements inside one transaction.
type querier struct {
	tx *sql.Tx
	d  dialect
}

func (q *querier) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.tx.ExecContext(ctx, q.d.rebind(query), args...)
}

func (q *querier) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.tx.QueryContext(ctx, q.d.rebind(query), args...)
}

func (q *querier) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.tx.QueryRowContext(ctx, q.d.rebind(query), args...)
}

// write runs fn in a read-write transaction and commits if fn succeeds.
func (b *Backend) write(ctx context.Context, fn func(q *querier) error) error {
	return b.inTx(ctx, false, fn)
}

// read runs fn in a read-only transaction over a consistent snapshot.
func (b *Backend) read(ctx context.Context, fn func(q *querier) error) error {
	return b.inTx(ctx, true, fn)
}

func (b *Backend) inTx(ctx context.Context, readOnly bool, fn func(q *querier) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	db, opts := b.db, b.dialect.writeTx
	if readOnly {
		db, opts = b.rdb, b.dialect.readTx
	}

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", b.dialect.classify(err))
	}
	defer tx.Rollback()

	if err := fn(&querier{tx: tx, d: b.dialect}); err != nil {
		return b.dialect.classify(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", b.dialect.classify(err))
	}
	return nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, 0, 3*n)
	for i := range n {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = append(buf, '?')
	}
	return string(buf)
}
