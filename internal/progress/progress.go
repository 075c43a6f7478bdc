// Package progress reports tile completion while an evaluation runs.
package progress

import (
	"context"
	"sync"

	"github.com/vk/gridcomp/internal/ctxlog"
)

// Event describes one finished tile.
type Event struct {
	Evaluation string `json:"evaluation"`
	Group      int    `json:"group"`
	GroupName  string `json:"group_name"`
	Done       int    `json:"done"`
	Total      int    `json:"total"`
}

// Reporter receives progress events. TileDone is called from worker
// goroutines and must be safe for concurrent use.
type Reporter interface {
	TileDone(ctx context.Context, ev Event)
	EvaluationDone(ctx context.Context, evaluation string, err error)
	Close() error
}

// LogReporter writes progress to the context logger.
type LogReporter struct{}

// NewLogReporter returns a reporter that logs every tile at debug level and
// every finished group at info level.
func NewLogReporter() *LogReporter {
	return &LogReporter{}
}

func (r *LogReporter) TileDone(ctx context.Context, ev Event) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Tile done.", "group", ev.Group, "done", ev.Done, "total", ev.Total)
	if ev.Done == ev.Total {
		logger.Info("Group finished.", "group", ev.Group, "name", ev.GroupName, "tiles", ev.Total)
	}
}

func (r *LogReporter) EvaluationDone(ctx context.Context, evaluation string, err error) {
	logger := ctxlog.FromContext(ctx)
	if err != nil {
		logger.Error("Evaluation failed.", "evaluation", evaluation, "error", err)
		return
	}
	logger.Info("Evaluation finished.", "evaluation", evaluation)
}

func (r *LogReporter) Close() error { return nil }

// Multi fans events out to several reporters.
type Multi []Reporter

func (m Multi) TileDone(ctx context.Context, ev Event) {
	for _, r := range m {
		r.TileDone(ctx, ev)
	}
}

func (m Multi) EvaluationDone(ctx context.Context, evaluation string, err error) {
	for _, r := range m {
		r.EvaluationDone(ctx, evaluation, err)
	}
}

// Close closes every reporter and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, r := range m {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder keeps every event in memory. It is used by tests and by the CLI
// summary.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	done   []string
	errs   []error
}

func (r *Recorder) TileDone(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) EvaluationDone(_ context.Context, evaluation string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, evaluation)
	r.errs = append(r.errs, err)
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded tile events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Evaluations returns the finished evaluation IDs and their results.
func (r *Recorder) Evaluations() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.done...), append([]error(nil), r.errs...)
}
