package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/vk/gridcomp/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// Observer receives scheduler events. The metrics package implements it.
type Observer interface {
	QueueDepth(device string, depth int)
	TaskDone(device string, elapsed time.Duration, err error)
}

// Option configures a WorkScheduler.
type Option func(*WorkScheduler)

// WithWorkers sets the number of CPU devices. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(s *WorkScheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithDevices registers extra devices, typically GPU devices.
func WithDevices(devices ...Device) Option {
	return func(s *WorkScheduler) {
		s.extra = append(s.extra, devices...)
	}
}

// WithObserver reports queue depth and task timings to o.
func WithObserver(o Observer) Option {
	return func(s *WorkScheduler) {
		s.observer = o
	}
}

// StartOptions parameterize one run.
type StartOptions struct {
	// UseGPU routes GPU-capable tasks to GPU devices when any are registered.
	UseGPU bool
}

// WorkScheduler executes tasks on a pool of devices.
type WorkScheduler struct {
	workers  int
	extra    []Device
	observer Observer

	mu          sync.Mutex
	initialized bool
	devices     []Device
	started     bool
	useGPU      bool
	runCtx      context.Context
	cancel      context.CancelFunc
	group       *errgroup.Group
	queues      map[Capability]*queue

	pending sync.WaitGroup
}

// New creates a scheduler. Call Init before the first Start.
func New(opts ...Option) *WorkScheduler {
	s := &WorkScheduler{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init creates the CPU devices and registers the extra devices. Calling it
// again is a no-op.
func (s *WorkScheduler) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.devices = make([]Device, 0, s.workers+len(s.extra))
	for i := range s.workers {
		s.devices = append(s.devices, &CPUDevice{ID: i})
	}
	s.devices = append(s.devices, s.extra...)
	s.initialized = true

	ctxlog.FromContext(ctx).Debug("Scheduler initialized.", "cpu_devices", s.workers, "gpu_devices", s.countLocked(GPU))
	return nil
}

// Shutdown stops a run still in progress and releases the devices.
func (s *WorkScheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	var err error
	if started {
		err = s.Stop()
	}

	s.mu.Lock()
	s.devices = nil
	s.initialized = false
	s.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Scheduler shut down.")
	return err
}

// Workers returns the number of CPU devices.
func (s *WorkScheduler) Workers() int {
	return s.workers
}

// HasGPUDevices reports whether at least one GPU device is registered.
func (s *WorkScheduler) HasGPUDevices() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		for _, d := range s.extra {
			if d.Capability() == GPU {
				return true
			}
		}
		return false
	}
	return s.countLocked(GPU) > 0
}

func (s *WorkScheduler) countLocked(c Capability) int {
	n := 0
	for _, d := range s.devices {
		if d.Capability() == c {
			n++
		}
	}
	return n
}

// Start launches one worker per device. Workers stop when ctx is done or
// when Stop is called.
func (s *WorkScheduler) Start(ctx context.Context, opts StartOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if s.started {
		return ErrAlreadyStarted
	}

	s.useGPU = opts.UseGPU && s.countLocked(GPU) > 0
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.queues = map[Capability]*queue{CPU: newQueue(), GPU: newQueue()}

	var gctx context.Context
	s.group, gctx = errgroup.WithContext(s.runCtx)
	logger := ctxlog.FromContext(ctx)

	workerID := 0
	for _, dev := range s.devices {
		if dev.Capability() == GPU && !s.useGPU {
			continue
		}
		q := s.queues[dev.Capability()]
		id := workerID
		workerID++
		s.group.Go(func() error {
			s.worker(gctx, id, dev, q)
			return nil
		})
	}
	s.started = true

	logger.Debug("Scheduler started.", "workers", workerID, "use_gpu", s.useGPU)
	return nil
}

// Schedule enqueues task. The task's Complete method is always called, with
// an error when the task cannot run.
func (s *WorkScheduler) Schedule(task Task) {
	s.pending.Add(1)

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.complete(task, ErrNotStarted)
		return
	}
	if err := s.runCtx.Err(); err != nil {
		s.mu.Unlock()
		s.complete(task, err)
		return
	}
	c := CPU
	if task.Capability() == GPU && s.useGPU {
		c = GPU
	}
	q := s.queues[c]
	s.mu.Unlock()

	if !q.push(task) {
		s.complete(task, s.stopReason())
		return
	}
	if s.observer != nil {
		s.observer.QueueDepth(c.String(), q.len())
	}
}

// Submit enqueues task and returns a handle to wait for its result.
func (s *WorkScheduler) Submit(task Task) *Handle {
	h := &Handle{done: make(chan struct{})}
	s.Schedule(&handleTask{Task: task, handle: h})
	return h
}

// Finish blocks until every scheduled task has completed.
func (s *WorkScheduler) Finish() {
	s.pending.Wait()
}

// Stop closes the queues, lets the workers finish what is queued, and joins
// them.
func (s *WorkScheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	for _, q := range s.queues {
		q.close()
	}
	group, cancel := s.group, s.cancel
	s.mu.Unlock()

	err := group.Wait()

	s.mu.Lock()
	// Workers exit early on cancellation; whatever they left behind still
	// has to be completed.
	var leftover []Task
	for _, q := range s.queues {
		leftover = append(leftover, q.drain()...)
	}
	reason := s.stopReasonLocked()
	s.started = false
	s.mu.Unlock()

	for _, t := range leftover {
		s.complete(t, reason)
	}
	cancel()
	return err
}

func (s *WorkScheduler) stopReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopReasonLocked()
}

func (s *WorkScheduler) stopReasonLocked() error {
	if s.runCtx != nil && s.runCtx.Err() != nil {
		return s.runCtx.Err()
	}
	return ErrNotStarted
}

func (s *WorkScheduler) worker(ctx context.Context, id int, dev Device, q *queue) {
	logger := ctxlog.FromContext(ctx).With("workerID", id, "device", dev.Capability().String())
	logger.Debug("Worker started.")
	defer logger.Debug("Worker stopped.")

	for {
		task, ok := q.pop(ctx)
		if !ok {
			if ctx.Err() != nil {
				for _, t := range q.drain() {
					s.complete(t, ctx.Err())
				}
			}
			return
		}
		if err := ctx.Err(); err != nil {
			s.complete(task, err)
			continue
		}

		start := time.Now()
		err := s.execute(ctx, dev, task)
		if s.observer != nil {
			s.observer.TaskDone(dev.Capability().String(), time.Since(start), err)
		}
		if err != nil {
			logger.Debug("Task failed.", "error", err)
		}
		s.complete(task, err)
	}
}

func (s *WorkScheduler) execute(ctx context.Context, dev Device, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return dev.Execute(ctx, task)
}

func (s *WorkScheduler) complete(task Task, err error) {
	defer s.pending.Done()
	task.Complete(err)
}
