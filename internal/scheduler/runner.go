// Package scheduler runs the expiry sweeps the workflows expose. The runner
// has no opinion on cadence; an external timer (cron, systemd timer) invokes
// one run at a time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"reunion/internal/audit"
)

// Sweeper is one expiry sweep exposed by a workflow. The returned count
// covers the records cleaned up even when an error reports partial failure.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Auditor records the system entry summarizing each run.
type Auditor interface {
	Record(ctx context.Context, in audit.RecordInput) audit.Outcome
}

type registration struct {
	name    string
	sweeper Sweeper
}

// Summary reports one run across all registered sweeps.
type Summary struct {
	// Counts holds per-sweep cleanup counts, including partial progress
	// from failed sweeps.
	Counts   map[string]int
	Failures map[string]error
}

func (s Summary) Failed() bool { return len(s.Failures) > 0 }

// Runner invokes every registered sweep once per Run call. A failure in one
// sweep never blocks the others.
type Runner struct {
	registrations []registration
	auditor       Auditor
	logger        *slog.Logger
	clock         func() time.Time
}

// Option configures optional Runner dependencies.
type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func NewRunner(auditor Auditor, opts ...Option) (*Runner, error) {
	if auditor == nil {
		return nil, fmt.Errorf("auditor is required")
	}
	r := &Runner{
		auditor: auditor,
		logger:  slog.New(slog.DiscardHandler),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Register adds a named sweep. Names label log lines, the audit summary,
// and failure reports; registration order is execution order.
func (r *Runner) Register(name string, sweeper Sweeper) error {
	if name == "" {
		return fmt.Errorf("sweep name is required")
	}
	if sweeper == nil {
		return fmt.Errorf("sweeper %q is required", name)
	}
	for _, reg := range r.registrations {
		if reg.name == name {
			return fmt.Errorf("sweep %q already registered", name)
		}
	}
	r.registrations = append(r.registrations, registration{name: name, sweeper: sweeper})
	return nil
}

// Run executes every registered sweep once and records a system audit entry
// summarizing the run. The error aggregates sweep failures; the Summary is
// valid either way.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	ctx, span := otel.Tracer("reunion/scheduler").Start(ctx, "scheduler.run")
	defer span.End()
	span.SetAttributes(attribute.Int("sweeps.registered", len(r.registrations)))

	summary := Summary{
		Counts:   make(map[string]int, len(r.registrations)),
		Failures: map[string]error{},
	}
	for _, reg := range r.registrations {
		started := r.clock()
		count, err := reg.sweeper.SweepExpired(ctx)
		summary.Counts[reg.name] = count
		if err != nil {
			summary.Failures[reg.name] = err
			r.logger.ErrorContext(ctx, "sweep failed",
				"sweep", reg.name,
				"expired", count,
				"error", err.Error(),
			)
			continue
		}
		r.logger.InfoContext(ctx, "sweep completed",
			"sweep", reg.name,
			"expired", count,
			"duration", r.clock().Sub(started).String(),
		)
	}

	detail := audit.SweepDetail{Counts: summary.Counts}
	for name := range summary.Failures {
		detail.Failures = append(detail.Failures, name)
	}
	sort.Strings(detail.Failures)

	outcome := r.auditor.Record(ctx, audit.RecordInput{
		Action:       audit.ActionSweep,
		ResourceType: audit.ResourceSystem,
		Detail:       detail,
	})
	if outcome.Suppressed() {
		r.logger.WarnContext(ctx, "sweep summary not recorded", "error", outcome.Err.Error())
	}

	if summary.Failed() {
		return summary, fmt.Errorf("%d of %d sweeps failed", len(summary.Failures), len(r.registrations))
	}
	return summary, nil
}
