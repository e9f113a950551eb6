package store

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// Operation status labels.
const (
	statusOK        = "ok"
	statusNotFound  = "not_found"
	statusConflict  = "conflict"
	statusCapacity  = "capacity_exceeded"
	statusInvalid   = "invalid_argument"
	statusInvariant = "invariant_violation"
	statusDetached  = "detached"
	statusError     = "error"
)

func statusOf(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, types.ErrCapacityExceeded):
		return statusCapacity
	case errors.Is(err, types.ErrConflict):
		return statusConflict
	case errors.Is(err, types.ErrNotFound):
		return statusNotFound
	case errors.Is(err, types.ErrInvalidArgument):
		return statusInvalid
	case errors.Is(err, types.ErrInvariantViolation):
		return statusInvariant
	case errors.Is(err, types.ErrStoreDetached):
		return statusDetached
	}
	return statusError
}

// observe starts a span for op and returns a function that ends it and
// records the outcome. Call it as defer func() { done(err) }().
func (b *Backend) observe(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := b.tracer.Start(ctx, "linkgraph.store."+op)
	return ctx, func(err error) {
		status := statusOf(err)
		b.metrics.RecordOperation(op, status, time.Since(start))
		span.SetAttributes(attribute.String("linkgraph.status", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		}
		span.End()
		if status == statusError {
			b.logger.Warn("operation failed", zap.String("operation", op), zap.Error(err))
		}
	}
}

// reportViolation logs and counts one broken pairing.
func (b *Backend) reportViolation(v types.Violation) {
	b.metrics.RecordInvariantViolation(v.Kind)
	b.logger.Error("invariant violation",
		zap.Bool("invariant_violation", true),
		zap.String("kind", v.Kind),
		zap.String("link_type_id", v.LinkTypeID),
		zap.String("link_id", v.LinkID),
		zap.String("source_class", v.SourceClass),
		zap.String("target_class", v.TargetClass),
		zap.String("source_id", v.SourceID),
		zap.String("target_id", v.TargetID),
		zap.String("detail", v.Detail),
	)
}
