package executor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/gridcomp/internal/builder"
	"github.com/vk/gridcomp/internal/config"
	"github.com/vk/gridcomp/internal/ctxlog"
	"github.com/vk/gridcomp/internal/execgroup"
	"github.com/vk/gridcomp/internal/metrics"
	"github.com/vk/gridcomp/internal/operation"
	"github.com/vk/gridcomp/internal/progress"
	"github.com/vk/gridcomp/internal/scheduler"
	"github.com/vk/gridcomp/internal/workpackage"
)

// ExecutionSystem owns the operations and groups of one node tree and
// evaluates them.
type ExecutionSystem struct {
	// ID identifies the system in logs and progress events.
	ID uuid.UUID

	tree         string
	cfg          config.Context
	sched        *scheduler.WorkScheduler
	operations   []operation.Operation
	groups       []*execgroup.ExecutionGroup
	bufferOwners map[int]int

	metrics  *metrics.Metrics
	reporter progress.Reporter
	observer Observer

	// Per-evaluation state.
	arena     *workpackage.Arena
	runCtx    context.Context
	notify    chan struct{}
	groupDone []atomic.Int32
	executed  atomic.Int32
	errMu     sync.Mutex
	firstErr  error
	stats     Stats
	executing atomic.Bool
	puller    *execgroup.Puller
	pullTier  workpackage.Priority
}

// New builds the operation graph of model and prepares it for evaluation.
// The model's own settings are expected to be applied to cfg already.
func New(ctx context.Context, cfg config.Context, model *config.Model, conv config.Converter, sched *scheduler.WorkScheduler, opts ...Option) (*ExecutionSystem, error) {
	res, err := builder.New(conv).Build(ctx, model)
	if err != nil {
		return nil, err
	}
	return NewFromResult(ctx, cfg, res, sched, opts...), nil
}

// NewFromResult prepares an already built operation graph for evaluation:
// it resolves group resolutions, applies the render and viewer borders, and
// decides once whether GPU devices are used.
func NewFromResult(ctx context.Context, cfg config.Context, res *builder.Result, sched *scheduler.WorkScheduler, opts ...Option) *ExecutionSystem {
	if sched == nil {
		panic("executor: nil scheduler")
	}
	s := &ExecutionSystem{
		ID:           uuid.New(),
		tree:         res.Tree,
		cfg:          cfg,
		sched:        sched,
		operations:   res.Operations,
		groups:       res.Groups,
		bufferOwners: res.BufferOwners,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.ChunkSize <= 0 {
		s.cfg.ChunkSize = config.DefaultChunkSize
	}

	logger := ctxlog.FromContext(ctx).With("system", s.ID.String())

	for _, g := range s.groups {
		g.DetermineResolution(operation.Resolution{})
	}

	if s.cfg.UseRenderBorder() {
		b := s.cfg.RenderData.Border
		for _, g := range s.groups {
			g.SetRenderBorder(b.XMin, b.XMax, b.YMin, b.YMax)
		}
	}
	if b := s.cfg.ViewerBorder; b != nil && b.Valid() {
		for _, g := range s.groups {
			g.SetViewerBorder(b.XMin, b.XMax, b.YMin, b.YMax)
		}
	}

	if s.cfg.HasActiveOpenCLDevices && !sched.HasGPUDevices() {
		logger.Debug("No GPU devices registered, falling back to CPU.")
		s.cfg.HasActiveOpenCLDevices = false
	}
	for _, g := range s.groups {
		g.SetUseGPU(s.cfg.HasActiveOpenCLDevices)
	}

	logger.Debug("Execution system created.", "operations", len(s.operations), "groups", len(s.groups), "use_gpu", s.cfg.HasActiveOpenCLDevices)
	return s
}

// Context returns the effective compositor context.
func (s *ExecutionSystem) Context() config.Context { return s.cfg }

// Groups returns the execution groups, output groups first.
func (s *ExecutionSystem) Groups() []*execgroup.ExecutionGroup { return s.groups }

// Operations returns every operation of the graph.
func (s *ExecutionSystem) Operations() []operation.Operation { return s.operations }

// Arena returns the work packages of the last evaluation.
func (s *ExecutionSystem) Arena() *workpackage.Arena { return s.arena }

// Stats returns statistics about the last evaluation.
func (s *ExecutionSystem) Stats() Stats {
	st := s.stats
	st.Executed = int(s.executed.Load())
	st.Tiers = slices.Clone(s.stats.Tiers)
	st.TierDurations = maps.Clone(s.stats.TierDurations)
	return st
}

// Execute evaluates every output group. Output buffers stay valid after it
// returns.
func (s *ExecutionSystem) Execute(ctx context.Context) (err error) {
	if !s.executing.CompareAndSwap(false, true) {
		return errors.New("executor: evaluation already running")
	}
	defer s.executing.Store(false)

	ctx, logger := ctxlog.With(ctx, "system", s.ID.String())
	start := time.Now()
	logger.Info("Evaluation started.", "groups", len(s.groups), "fast", s.cfg.FastCalculation, "mode", s.cfg.SchedulingMode.String())

	s.reset()
	defer func() {
		s.deinit()
		s.stats.Duration = time.Since(start)
		if s.metrics != nil {
			s.metrics.EvaluationDone(err)
		}
		if s.reporter != nil {
			s.reporter.EvaluationDone(ctx, s.ID.String(), err)
		}
		if err != nil {
			logger.Error("Evaluation failed.", "error", err, "duration", s.stats.Duration)
			return
		}
		logger.Info("Evaluation finished.", "packages", s.stats.Packages, "executed", s.executed.Load(), "duration", s.stats.Duration)
	}()

	if err := s.initExecution(ctx); err != nil {
		return err
	}
	s.linkWorkPackages()
	s.stats.Packages = s.arena.Len()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.runCtx = runCtx

	if err := s.sched.Start(runCtx, scheduler.StartOptions{UseGPU: s.cfg.HasActiveOpenCLDevices}); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if s.cfg.SchedulingMode == config.OutputToInput {
		s.puller = s.newPuller(runCtx)
	}

	runErr := s.executeTiers(runCtx)
	if runErr != nil {
		cancel()
	}
	if stopErr := s.sched.Stop(); stopErr != nil && runErr == nil {
		runErr = stopErr
	}
	return runErr
}

func (s *ExecutionSystem) reset() {
	s.arena = workpackage.NewArena()
	s.puller = nil
	s.notify = make(chan struct{}, 1)
	s.groupDone = make([]atomic.Int32, len(s.groups))
	s.executed.Store(0)
	s.firstErr = nil
	s.stats = Stats{Groups: len(s.groups), TierDurations: make(map[workpackage.Priority]time.Duration)}
}

// initExecution prepares buffers, operations and chunk layouts in the order
// the buffer wiring requires.
func (s *ExecutionSystem) initExecution(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	ctx = operation.WithQuality(ctx, s.cfg.Quality)

	offset := 0
	for _, op := range s.operations {
		if read, ok := op.(*operation.ReadBufferOperation); ok {
			read.SetOffset(offset)
			offset++
		}
	}

	writeCtx := operation.WithNodeTree(ctx, s.tree)
	for _, op := range s.operations {
		if operation.IsWriteBuffer(op) {
			if err := op.InitExecution(writeCtx); err != nil {
				return fmt.Errorf("init %s: %w", op.Name(), err)
			}
		}
	}
	for _, op := range s.operations {
		if read, ok := op.(*operation.ReadBufferOperation); ok {
			read.UpdateMemoryBuffer()
		}
	}
	for _, op := range s.operations {
		if operation.IsWriteBuffer(op) {
			continue
		}
		if err := op.InitExecution(ctx); err != nil {
			return fmt.Errorf("init %s: %w", op.Name(), err)
		}
	}

	for _, g := range s.groups {
		g.SetChunkSize(s.cfg.ChunkSize)
		g.SetSingleThreaded(s.cfg.SingleThreaded)
		g.InitExecution(s.arena)
	}
	logger.Debug("Initialized execution.", "read_buffers", offset, "packages", s.arena.Len())
	return nil
}

func (s *ExecutionSystem) deinit() {
	for _, op := range s.operations {
		op.DeinitExecution()
	}
	for _, g := range s.groups {
		g.DeinitExecution()
	}
}

func (s *ExecutionSystem) executeTiers(ctx context.Context) error {
	for _, prio := range workpackage.Tiers {
		if s.cfg.FastCalculation && prio != workpackage.High {
			break
		}
		start := time.Now()
		if err := s.executeGroups(ctx, prio); err != nil {
			return err
		}
		elapsed := time.Since(start)
		s.stats.TierDurations[prio] = elapsed
		if s.metrics != nil {
			s.metrics.TierDone(prio.String(), elapsed)
		}
	}
	return nil
}

// executeGroups evaluates every output group of the given tier.
func (s *ExecutionSystem) executeGroups(ctx context.Context, prio workpackage.Priority) error {
	s.stats.Tiers = append(s.stats.Tiers, prio)
	logger := ctxlog.FromContext(ctx).With("priority", prio.String())

	groups := s.outputGroups(prio)
	if len(groups) == 0 {
		logger.Debug("No output groups in tier.")
		return nil
	}
	logger.Debug("Tier started.", "groups", len(groups))

	switch s.cfg.SchedulingMode {
	case config.OutputToInput:
		s.pullTier = prio
		for _, g := range groups {
			if err := g.Execute(ctx, s.puller); err != nil {
				return fmt.Errorf("%w: %w", ErrTileFailed, err)
			}
		}
	default:
		for _, g := range groups {
			for _, idx := range g.WorkPackages() {
				s.markPriority(idx, prio)
			}
		}
		s.scheduleRootWorkPackages()
		if err := s.waitForCompletion(ctx, groups); err != nil {
			return err
		}
	}

	logger.Debug("Tier finished.")
	return nil
}

// newPuller returns the puller shared by every tier of one evaluation, so a
// buffer chunk pulled by a higher tier is not computed again by a lower one.
func (s *ExecutionSystem) newPuller(ctx context.Context) *execgroup.Puller {
	p := execgroup.NewPuller(s.sched, s.groupForRead)
	p.OnChunkDone = func(g *execgroup.ExecutionGroup, chunk int) {
		pkg := s.arena.Get(g.PackageIndex(chunk))
		pkg.SetPriority(s.pullTier)
		pkg.MarkScheduled()
		pkg.MarkExecuted()
		s.chunkDone(ctx, g)
		if s.observer != nil {
			s.observer.PackageExecuted(pkg)
		}
	}
	return p
}

func (s *ExecutionSystem) outputGroups(prio workpackage.Priority) []*execgroup.ExecutionGroup {
	var out []*execgroup.ExecutionGroup
	for _, g := range s.groups {
		if g.IsOutput() && g.RenderPriority() == prio {
			out = append(out, g)
		}
	}
	return out
}

// groupForRead returns the group rooted at the write buffer feeding read.
func (s *ExecutionSystem) groupForRead(read *operation.ReadBufferOperation) *execgroup.ExecutionGroup {
	write := read.Proxy().WriteBuffer()
	idx, ok := s.bufferOwners[write.ID()]
	if !ok {
		panic(fmt.Sprintf("executor: no group executes %s", write.Name()))
	}
	return s.groups[idx]
}

// chunkDone updates progress for one finished chunk of g.
func (s *ExecutionSystem) chunkDone(ctx context.Context, g *execgroup.ExecutionGroup) {
	done := s.groupDone[g.Index()].Add(1)
	s.executed.Add(1)
	if s.metrics != nil {
		s.metrics.PackageExecuted(g.Kind())
	}
	if s.reporter != nil {
		s.reporter.TileDone(ctx, progress.Event{
			Evaluation: s.ID.String(),
			Group:      g.Index(),
			GroupName:  g.OutputOperation().Name(),
			Done:       int(done),
			Total:      g.NumChunks(),
		})
	}
}
