package executor

import (
	"github.com/vk/gridcomp/internal/metrics"
	"github.com/vk/gridcomp/internal/progress"
	"github.com/vk/gridcomp/internal/workpackage"
)

// Observer is notified about package state changes. Calls come from worker
// goroutines as well as the controlling goroutine.
type Observer interface {
	PackageScheduled(pkg *workpackage.WorkPackage)
	PackageExecuted(pkg *workpackage.WorkPackage)
}

// Option configures an ExecutionSystem.
type Option func(*ExecutionSystem)

// WithMetrics records package and tier metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ExecutionSystem) {
		s.metrics = m
	}
}

// WithReporter sends tile progress to r.
func WithReporter(r progress.Reporter) Option {
	return func(s *ExecutionSystem) {
		s.reporter = r
	}
}

// WithObserver reports package state changes to o.
func WithObserver(o Observer) Option {
	return func(s *ExecutionSystem) {
		s.observer = o
	}
}
