// Package sweep runs the link graph consistency check on a cron schedule.
package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/internal/metrics"
	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// DefaultSchedule runs the sweep every fifteen minutes. Schedules use the
// six-field cron format with seconds, or descriptors such as "@every 1m".
const DefaultSchedule = "0 */15 * * * *"

// Checker is the part of the store a sweep needs.
type Checker interface {
	Check(ctx context.Context, opts types.CheckOptions) (*types.ConsistencyReport, error)
}

// Options configures a Scheduler.
type Options struct {
	Schedule string
	Repair   bool
	// Timeout bounds a single sweep. Zero means no limit.
	Timeout time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

// Scheduler runs Check periodically. Runs never overlap.
type Scheduler struct {
	cron    *cron.Cron
	checker Checker
	opts    Options
	log     *zap.Logger

	mu      sync.Mutex
	running bool
	last    *types.ConsistencyReport
}

// New creates a scheduler and registers the sweep. It does not start it.
func New(checker Checker, opts Options) (*Scheduler, error) {
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		checker: checker,
		opts:    opts,
		log:     log.Named("sweep"),
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if _, err := s.cron.AddFunc(opts.Schedule, s.runScheduled); err != nil {
		return nil, fmt.Errorf("parsing sweep schedule %q: %w", opts.Schedule, err)
	}
	return s, nil
}

// Start begins running sweeps on the schedule.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.log.Info("sweep scheduler started",
		zap.String("schedule", s.opts.Schedule),
		zap.Bool("repair", s.opts.Repair))
}

// Stop halts the schedule and waits for a running sweep or ctx, whichever
// ends first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	stopCtx := s.cron.Stop()
	s.running = false
	select {
	case <-stopCtx.Done():
		s.log.Info("sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// RunOnce runs a single sweep now.
func (s *Scheduler) RunOnce(ctx context.Context) (*types.ConsistencyReport, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := s.checker.Check(ctx, types.CheckOptions{Repair: s.opts.Repair})
	if err != nil {
		s.record("error", 0)
		s.log.Error("sweep failed", zap.Error(err))
		return nil, err
	}

	status := "ok"
	if !report.OK() {
		status = "violations"
	}
	s.record(status, len(report.Violations))

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	s.log.Info("sweep finished",
		zap.Int("violations", len(report.Violations)),
		zap.Int("repaired", report.Repaired),
		zap.Duration("duration", time.Since(start)))
	return report, nil
}

// Last returns the report of the most recent successful sweep, or nil.
func (s *Scheduler) Last() *types.ConsistencyReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) runScheduled() {
	_, _ = s.RunOnce(context.Background())
}

func (s *Scheduler) record(status string, violations int) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordSweep(status, violations)
	}
}
