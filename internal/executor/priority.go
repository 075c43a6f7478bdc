package executor

import (
	"context"
	"fmt"

	"github.com/vk/gridcomp/internal/execgroup"
	"github.com/vk/gridcomp/internal/scheduler"
	"github.com/vk/gridcomp/internal/workpackage"
)

// linkWorkPackages connects every package to the packages of upstream groups
// whose tiles it reads.
func (s *ExecutionSystem) linkWorkPackages() {
	for _, g := range s.groups {
		out := g.OutputOperation()
		for _, idx := range g.WorkPackages() {
			pkg := s.arena.Get(idx)
			for _, read := range g.ReadOperations() {
				area, ok := out.DetermineDependingAreaOfInterest(pkg.Rect, read)
				if !ok {
					continue
				}
				s.groupForRead(read).LinkChildWorkPackage(s.arena, idx, area)
			}
		}
	}
}

// markPriority assigns prio to the package and, transitively, to every
// ancestor that has no priority yet. Already prioritized packages stop the
// walk, so their ancestors keep the higher priority they inherited.
func (s *ExecutionSystem) markPriority(idx int, prio workpackage.Priority) {
	stack := []int{idx}
	for len(stack) > 0 {
		n := len(stack) - 1
		pkg := s.arena.Get(stack[n])
		stack = stack[:n]
		if !pkg.SetPriority(prio) {
			continue
		}
		stack = append(stack, pkg.Parents...)
	}
}

// scheduleRootWorkPackages schedules every package that is ready to run.
func (s *ExecutionSystem) scheduleRootWorkPackages() {
	for _, pkg := range s.arena.All() {
		if pkg.Eligible() {
			s.schedule(pkg)
		}
	}
}

func (s *ExecutionSystem) schedule(pkg *workpackage.WorkPackage) {
	if !pkg.MarkScheduled() {
		return
	}
	if s.observer != nil {
		s.observer.PackageScheduled(pkg)
	}
	s.sched.Schedule(&packageTask{system: s, pkg: pkg})
}

func (s *ExecutionSystem) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *ExecutionSystem) setErr(err error) {
	s.errMu.Lock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	s.errMu.Unlock()
}

func (s *ExecutionSystem) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.firstErr
}

// waitForCompletion blocks until every package of groups has executed, a
// tile fails, or ctx is done.
func (s *ExecutionSystem) waitForCompletion(ctx context.Context, groups []*execgroup.ExecutionGroup) error {
	for {
		if err := s.err(); err != nil {
			return err
		}
		if s.allExecuted(groups) {
			return nil
		}
		select {
		case <-s.notify:
		case <-ctx.Done():
			if err := s.err(); err != nil {
				return err
			}
			return ctx.Err()
		}
	}
}

func (s *ExecutionSystem) allExecuted(groups []*execgroup.ExecutionGroup) bool {
	for _, g := range groups {
		for _, idx := range g.WorkPackages() {
			if s.arena.Get(idx).State() != workpackage.Executed {
				return false
			}
		}
	}
	return true
}

// packageTask runs one work package on a worker.
type packageTask struct {
	system *ExecutionSystem
	pkg    *workpackage.WorkPackage
}

func (t *packageTask) group() *execgroup.ExecutionGroup {
	return t.system.groups[t.pkg.Group]
}

func (t *packageTask) Capability() scheduler.Capability {
	return t.group().Capability()
}

func (t *packageTask) Execute(ctx context.Context) error {
	return t.group().ExecuteChunk(ctx, t.pkg.Rect)
}

// Complete releases the package's children and schedules those that became
// ready. It runs on the worker that executed the package.
func (t *packageTask) Complete(err error) {
	s, pkg := t.system, t.pkg
	if err != nil {
		s.setErr(fmt.Errorf("%w: package %d: %w", ErrTileFailed, pkg.Index, err))
		s.wake()
		return
	}
	if !pkg.MarkExecuted() {
		panic(fmt.Sprintf("executor: package %d completed twice", pkg.Index))
	}
	g := t.group()
	s.chunkDone(s.runCtx, g)
	if s.observer != nil {
		s.observer.PackageExecuted(pkg)
	}
	for _, child := range s.arena.Release(pkg.Index) {
		if child.Eligible() {
			s.schedule(child)
		}
	}
	s.wake()
}
