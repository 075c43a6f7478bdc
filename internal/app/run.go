package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gridcomp/internal/ctxlog"
	"github.com/vk/gridcomp/internal/executor"
	"github.com/vk/gridcomp/internal/progress"
	"github.com/vk/gridcomp/internal/scheduler"
)

// Run evaluates the loaded node tree once.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		if err := a.startHealthcheckServer(a.config.HealthcheckPort); err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, a.closeHealthcheckServer(ctx))
		}()
	}

	compCtx, err := a.config.compositorContext(a.model.Settings)
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.WithWorkers(a.config.WorkerCount), scheduler.WithObserver(a.metrics))
	if err := sched.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}
	defer func() {
		err = errors.Join(err, sched.Shutdown(ctx))
	}()

	reporter, err := a.newReporter(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, reporter.Close())
	}()

	system, err := executor.New(ctx, compCtx, a.model, a.converter, sched,
		executor.WithMetrics(a.metrics),
		executor.WithReporter(reporter),
	)
	if err != nil {
		return fmt.Errorf("failed to build execution system: %w", err)
	}

	a.logger.Info("🚀 Starting evaluation...", "tree", a.model.Name, "workers", sched.Workers(), "chunk_size", compCtx.ChunkSize)
	if err := system.Execute(ctx); err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	st := system.Stats()
	a.logger.Info("🏁 Evaluation finished.",
		"groups", st.Groups,
		"packages", st.Packages,
		"executed", st.Executed,
		"tiers", len(st.Tiers),
		"duration", st.Duration,
	)
	a.logger.Debug("App.Run method finished.")
	return nil
}

// newReporter returns the log reporter, plus a socket.io reporter when a
// progress URL is configured.
func (a *App) newReporter(ctx context.Context) (progress.Reporter, error) {
	reporters := progress.Multi{progress.NewLogReporter()}
	if a.config.ProgressURL == "" {
		return reporters, nil
	}
	sio, err := progress.DialSocketIO(ctx, a.config.ProgressURL, progress.SocketIOOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect progress endpoint: %w", err)
	}
	return append(reporters, sio), nil
}
