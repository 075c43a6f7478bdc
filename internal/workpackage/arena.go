package workpackage

import (
	"sync"

	"github.com/vk/gridcomp/internal/rect"
)

// Arena owns every WorkPackage of one evaluation.
//
// Packages are appended during graph construction on the controlling
// goroutine; after that the slice is read-only and only the atomic fields of
// each package change.
type Arena struct {
	mu       sync.RWMutex
	packages []*WorkPackage
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add creates a package for the given group tile and returns its index.
func (a *Arena) Add(group, chunk int, r rect.Rect) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := len(a.packages)
	a.packages = append(a.packages, &WorkPackage{
		Index:       idx,
		Group:       group,
		ChunkNumber: chunk,
		Rect:        r,
	})
	return idx
}

// Get returns the package at idx.
func (a *Arena) Get(idx int) *WorkPackage {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.packages[idx]
}

// Len returns the number of packages.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.packages)
}

// All returns a snapshot of every package in index order.
func (a *Arena) All() []*WorkPackage {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*WorkPackage, len(a.packages))
	copy(out, a.packages)
	return out
}

// Link records that child reads the output of parent. Linking the same pair
// twice is ignored.
func (a *Arena) Link(parent, child int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, c := a.packages[parent], a.packages[child]
	for _, existing := range c.Parents {
		if existing == parent {
			return
		}
	}
	c.Parents = append(c.Parents, parent)
	c.numParents.Add(1)
	p.Children = append(p.Children, child)
}

// Release is called once parent has executed. It decrements the outstanding
// parent count of each child and returns the children that dropped to zero.
func (a *Arena) Release(parent int) []*WorkPackage {
	p := a.Get(parent)

	var ready []*WorkPackage
	for _, idx := range p.Children {
		child := a.Get(idx)
		if child.releaseParent() == 0 {
			ready = append(ready, child)
		}
	}
	return ready
}
