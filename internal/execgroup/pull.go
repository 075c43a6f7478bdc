package execgroup

import (
	"context"
	"fmt"

	"github.com/vk/gridcomp/internal/operation"
	"github.com/vk/gridcomp/internal/rect"
	"github.com/vk/gridcomp/internal/scheduler"
	"github.com/vk/gridcomp/internal/workpackage"
)

// Submitter hands tasks to the worker pool.
type Submitter interface {
	Submit(task scheduler.Task) *scheduler.Handle
}

// Resolver returns the group that owns the write buffer feeding read.
type Resolver func(read *operation.ReadBufferOperation) *ExecutionGroup

// Puller evaluates output groups on demand: a chunk is submitted once every
// chunk it reads from upstream groups has executed, and missing upstream
// chunks are scheduled recursively. State is shared across groups so that a
// buffer chunk is computed once per evaluation.
type Puller struct {
	submit  Submitter
	resolve Resolver
	// OnChunkDone is called on the controlling goroutine for every chunk that
	// executed successfully.
	OnChunkDone func(g *ExecutionGroup, chunk int)

	states   map[*ExecutionGroup][]workpackage.State
	inflight []inflightChunk
}

type inflightChunk struct {
	group  *ExecutionGroup
	chunk  int
	handle *scheduler.Handle
}

// NewPuller creates a puller for one evaluation.
func NewPuller(submit Submitter, resolve Resolver) *Puller {
	return &Puller{
		submit:  submit,
		resolve: resolve,
		states:  make(map[*ExecutionGroup][]workpackage.State),
	}
}

// Execute pulls every chunk of g, scheduling upstream chunks as needed.
func (g *ExecutionGroup) Execute(ctx context.Context, p *Puller) error {
	return p.Execute(ctx, g)
}

// Execute pulls every chunk of g.
func (p *Puller) Execute(ctx context.Context, g *ExecutionGroup) error {
	for {
		done := true
		for _, chunk := range g.order {
			if !p.scheduleChunkWhenPossible(g, chunk) {
				done = false
			}
		}
		if done {
			return nil
		}
		if len(p.inflight) == 0 {
			return fmt.Errorf("%s: no chunk can be scheduled", g)
		}
		if err := p.await(ctx); err != nil {
			return err
		}
	}
}

func (p *Puller) state(g *ExecutionGroup) []workpackage.State {
	st, ok := p.states[g]
	if !ok {
		st = make([]workpackage.State, g.NumChunks())
		p.states[g] = st
	}
	return st
}

// scheduleChunkWhenPossible reports whether chunk has executed. When it has
// not, it submits the chunk if all its inputs are available, or schedules
// the missing upstream chunks.
func (p *Puller) scheduleChunkWhenPossible(g *ExecutionGroup, chunk int) bool {
	st := p.state(g)
	switch st[chunk] {
	case workpackage.Executed:
		return true
	case workpackage.Scheduled:
		return false
	}

	ready := true
	r := g.ChunkRect(chunk)
	for _, read := range g.readOperations {
		area, ok := g.output.DetermineDependingAreaOfInterest(r, read)
		if !ok {
			continue
		}
		up := p.resolve(read)
		if up == nil {
			panic(fmt.Sprintf("%s: no group writes %s", g, read.Name()))
		}
		if !p.scheduleAreaWhenPossible(up, area) {
			ready = false
		}
	}
	if !ready {
		return false
	}

	st[chunk] = workpackage.Scheduled
	p.inflight = append(p.inflight, inflightChunk{
		group:  g,
		chunk:  chunk,
		handle: p.submit.Submit(&chunkTask{group: g, chunk: chunk}),
	})
	return false
}

func (p *Puller) scheduleAreaWhenPossible(g *ExecutionGroup, area rect.Rect) bool {
	ready := true
	for chunk := range g.NumChunks() {
		if !g.ChunkRect(chunk).Intersects(area) {
			continue
		}
		if !p.scheduleChunkWhenPossible(g, chunk) {
			ready = false
		}
	}
	return ready
}

// await waits for every submitted chunk and returns the first error.
func (p *Puller) await(ctx context.Context) error {
	var firstErr error
	for _, f := range p.inflight {
		err := f.handle.Await(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		p.state(f.group)[f.chunk] = workpackage.Executed
		if p.OnChunkDone != nil {
			p.OnChunkDone(f.group, f.chunk)
		}
	}
	p.inflight = p.inflight[:0]
	return firstErr
}

// chunkTask executes one chunk of a group for the pull path.
type chunkTask struct {
	group *ExecutionGroup
	chunk int
}

func (t *chunkTask) Capability() scheduler.Capability {
	return t.group.Capability()
}

func (t *chunkTask) Execute(ctx context.Context) error {
	return t.group.ExecuteChunk(ctx, t.group.ChunkRect(t.chunk))
}

func (t *chunkTask) Complete(error) {}
