package workpackage

import (
	"sync/atomic"

	"github.com/vk/gridcomp/internal/rect"
)

// WorkPackage is one tile of work for one execution group.
type WorkPackage struct {
	// Index is the package's position in its Arena.
	Index int
	// Group is the index of the owning execution group.
	Group int
	// ChunkNumber is the tile number inside the group's chunk grid.
	ChunkNumber int
	// Rect is the output area this package produces.
	Rect rect.Rect

	// Parents are the packages whose output this package reads.
	Parents []int
	// Children are the packages reading this package's output.
	Children []int

	state      atomic.Int32
	priority   atomic.Int32
	numParents atomic.Int32
}

// State returns the current state.
func (p *WorkPackage) State() State {
	return State(p.state.Load())
}

// Priority returns the assigned priority, Unset if none.
func (p *WorkPackage) Priority() Priority {
	return Priority(p.priority.Load())
}

// NumParents returns the number of parents that have not executed yet.
func (p *WorkPackage) NumParents() int {
	return int(p.numParents.Load())
}

// SetPriority assigns prio if the package has no priority yet and has not
// been scheduled. It reports whether the priority was changed.
func (p *WorkPackage) SetPriority(prio Priority) bool {
	if p.State() != NotScheduled {
		return false
	}
	return p.priority.CompareAndSwap(int32(Unset), int32(prio))
}

// Eligible reports whether the package may be scheduled right now.
func (p *WorkPackage) Eligible() bool {
	return p.State() == NotScheduled && p.NumParents() == 0 && p.Priority() != Unset
}

// MarkScheduled moves NotScheduled -> Scheduled. It returns false when another
// caller already scheduled the package.
func (p *WorkPackage) MarkScheduled() bool {
	return p.state.CompareAndSwap(int32(NotScheduled), int32(Scheduled))
}

// MarkExecuted moves Scheduled -> Executed. It returns false when the package
// was not in the Scheduled state.
func (p *WorkPackage) MarkExecuted() bool {
	return p.state.CompareAndSwap(int32(Scheduled), int32(Executed))
}

// releaseParent records that one parent has executed and returns the number
// of parents still outstanding.
func (p *WorkPackage) releaseParent() int {
	return int(p.numParents.Add(-1))
}
