// Package linkgraph is the public entry point for the link graph engine.
// It exposes the store factory while keeping the backends internal.
package linkgraph

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/internal/metrics"
	"github.com/mesh-intelligence/linkgraph/internal/store"
	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// Version is the linkgraph release.
const Version = "0.3.0"

// Option configures a store created by NewStore.
type Option = store.Option

// WithLogger routes store logs to l.
func WithLogger(l *zap.Logger) Option {
	return store.WithLogger(l)
}

// WithMetrics records store metrics into m.
func WithMetrics(m *metrics.Registry) Option {
	return store.WithMetrics(m)
}

// NewStore creates a detached store. The backend is chosen by the Config
// passed to Attach.
//
// Example:
//
//	s := linkgraph.NewStore()
//	err := s.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "/var/lib/linkgraph",
//	})
//	defer s.Detach()
func NewStore(opts ...Option) types.Store {
	return store.NewBackend(opts...)
}
