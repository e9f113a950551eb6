// Package store implements the linkgraph Store on SQLite or PostgreSQL.
//
// Every mutation runs in one database transaction. Link types and links are
// stored as mirrored row pairs and both halves are always written, updated
// and deleted together.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/internal/metrics"
	"github.com/mesh-intelligence/linkgraph/internal/telemetry"
	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

var _ types.Store = (*Backend)(nil)

// Backend implements types.Store over database/sql.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dialect  dialect

	// db serves every transaction that may write. rdb serves read-only
	// transactions; for PostgreSQL both point at the same pool.
	db  *sql.DB
	rdb *sql.DB

	logger  *zap.Logger
	metrics *metrics.Registry
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.logger = l.Named("store") }
}

// WithMetrics records operations on m instead of a private registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(b *Backend) { b.metrics = m }
}

// NewBackend creates a detached backend. Call Attach before use.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		logger: zap.NewNop(),
		tracer: telemetry.Tracer(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = metrics.NewRegistry()
	}
	return b
}

// Metrics returns the registry the backend records into.
func (b *Backend) Metrics() *metrics.Registry {
	return b.metrics
}

// Attach opens the database described by config and applies migrations.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	d, err := dialectFor(config.Backend)
	if err != nil {
		return err
	}

	if d.name == types.BackendSQLite && config.DSN == "" {
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
	}

	db, err := sql.Open(d.driver, d.writerDSN(config))
	if err != nil {
		return fmt.Errorf("opening %s database: %w", d.name, err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("connecting to %s database: %w", d.name, err)
	}
	if err := migrate(ctx, db, d, b.logger); err != nil {
		db.Close()
		return err
	}

	rdb := db
	if d.name == types.BackendSQLite {
		// One writer connection serialises every write transaction.
		db.SetMaxOpenConns(1)
		rdb, err = sql.Open(d.driver, d.readerDSN(config))
		if err != nil {
			db.Close()
			return fmt.Errorf("opening %s reader: %w", d.name, err)
		}
	}

	b.db = db
	b.rdb = rdb
	b.dialect = d
	b.config = config
	b.attached = true
	b.logger.Info("store attached", zap.String("backend", d.name))
	return nil
}

// Detach closes the database handles. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	var firstErr error
	if b.rdb != nil && b.rdb != b.db {
		firstErr = b.rdb.Close()
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.db, b.rdb = nil, nil
	b.attached = false
	b.logger.Info("store detached")
	return firstErr
}

// generateUUID generates a new UUID v7 for entity IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
